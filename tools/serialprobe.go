package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"rs485console/serial"
)

func main() {
	mode := flag.String("mode", "send", "Mode: send, receive, loopback, or list")
	device := flag.String("device", "/dev/ttyUSB0", "Serial device")
	baud := flag.Int("baud", 9600, "Baud rate")
	parity := flag.String("parity", "none", "Parity: none, even, or odd")
	stopBits := flag.Int("stop-bits", 1, "Stop bits: 1 or 2")
	message := flag.String("message", "PROBE", "Message to send")
	hex := flag.Bool("hex", false, "Treat the message as hex digit pairs")
	count := flag.Int("count", 10, "Number of messages")
	interval := flag.Duration("interval", 1*time.Second, "Interval between sends")
	flag.Parse()

	if *mode == "list" {
		listTest()
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := serial.Config{
		Port:         *device,
		Baud:         *baud,
		DataBits:     8,
		StopBits:     serial.StopBits(*stopBits),
		Parity:       serial.Parity(*parity),
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 300 * time.Millisecond,
	}

	encoding := serial.EncodingText
	if *hex {
		encoding = serial.EncodingHex
	}

	session := serial.NewSession(logger)

	switch *mode {
	case "send":
		sendTest(session, cfg, *message, encoding, *count, *interval)
	case "receive":
		receiveTest(session, cfg)
	case "loopback":
		loopbackTest(session, cfg, *message)
	default:
		log.Fatal("Invalid mode. Use: send, receive, loopback, or list")
	}
}

func listTest() {
	ports, err := serial.ListPorts()
	if err != nil {
		log.Fatalf("Failed to enumerate ports: %v", err)
	}
	fmt.Printf("Found %d ports:\n", len(ports))
	for _, port := range ports {
		fmt.Printf("  %s\n", port)
	}
}

func sendTest(session *serial.Session, cfg serial.Config, message string, encoding serial.Encoding, count int, interval time.Duration) {
	applied, err := session.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer session.Close()

	fmt.Printf("Sending on %s at %d baud (%s, %d stop bits)\n",
		applied.Port, applied.Baud, applied.Parity, applied.StopBits)
	fmt.Printf("Message: %s\n", message)
	fmt.Printf("Count: %d, Interval: %v\n\n", count, interval)

	for i := 0; i < count; i++ {
		payload := message
		if encoding == serial.EncodingText {
			payload = fmt.Sprintf("[%d] %s %s\n", i+1, message, time.Now().Format("15:04:05.000"))
		}
		n, err := session.Write(serial.Frame{Encoding: encoding, Payload: []byte(payload)})
		if err != nil {
			log.Printf("Write error after %d bytes: %v", n, err)
			continue
		}
		fmt.Printf("Sent %d bytes\n", n)
		time.Sleep(interval)
	}
	fmt.Println("\nSend test complete")
}

func receiveTest(session *serial.Session, cfg serial.Config) {
	if _, err := session.Open(cfg); err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer session.Close()

	fmt.Printf("Listening on %s at %d baud\n", cfg.Port, cfg.Baud)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	totalBytes := 0

	for {
		data, err := session.Read(1024)
		if err != nil {
			log.Printf("Read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if len(data) > 0 {
			totalBytes += len(data)
			fmt.Printf("[%s] Received %d bytes (total: %d):\n",
				time.Now().Format("15:04:05.000"), len(data), totalBytes)
			fmt.Printf("  text: %s\n", string(data))
			fmt.Printf("  hex:  %s\n", serial.EncodeHex(data))
		}
	}
}

func loopbackTest(session *serial.Session, cfg serial.Config, message string) {
	if _, err := session.Open(cfg); err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer session.Close()

	fmt.Printf("Loopback test on %s at %d baud\n", cfg.Port, cfg.Baud)
	fmt.Println("Connect the TX and RX lines with a jumper")
	fmt.Println()

	for i := 0; i < 5; i++ {
		testMsg := fmt.Sprintf("%s-%d\n", message, i+1)
		fmt.Printf("Sending: %s", testMsg)

		if _, err := session.Write(serial.Frame{Payload: []byte(testMsg)}); err != nil {
			log.Printf("Write error: %v", err)
			continue
		}

		time.Sleep(100 * time.Millisecond)
		data, err := session.Read(256)
		if err != nil {
			fmt.Printf("  FAIL read error: %v\n", err)
		} else if len(data) == 0 {
			fmt.Printf("  FAIL no data received (timeout)\n")
		} else if string(data) == testMsg {
			fmt.Printf("  OK loopback echoed %d bytes\n", len(data))
		} else {
			fmt.Printf("  WARN received different data: %s\n", serial.EncodeHex(data))
		}

		time.Sleep(1 * time.Second)
	}
}
