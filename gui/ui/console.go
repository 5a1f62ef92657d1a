package ui

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"rs485console/gateway"
)

// ConsoleTab represents the interactive serial console UI
type ConsoleTab struct {
	window    fyne.Window
	gw        *gateway.Gateway
	setStatus func(string)

	portSelect      *widget.Select
	baudSelect      *widget.Select
	paritySelect    *widget.Select
	stopBitsSelect  *widget.Select
	readTimeoutStr  *widget.Entry
	writeTimeoutStr *widget.Entry

	openBtn  *widget.Button
	closeBtn *widget.Button

	sendEntry     *widget.Entry
	encodingRadio *widget.RadioGroup
	sendBtn       *widget.Button

	receiveLog  *widget.Entry
	readBtn     *widget.Button
	autoRead    *widget.Check
	stopPolling chan bool
}

// NewConsoleTab creates a new console tab
func NewConsoleTab(window fyne.Window, gw *gateway.Gateway, setStatus func(string)) *ConsoleTab {
	return &ConsoleTab{
		window:      window,
		gw:          gw,
		setStatus:   setStatus,
		stopPolling: make(chan bool),
	}
}

// Build constructs the console UI
func (c *ConsoleTab) Build() *fyne.Container {
	// Line configuration
	c.portSelect = widget.NewSelect([]string{}, nil)
	c.refreshPorts()

	c.baudSelect = widget.NewSelect(
		[]string{"1200", "2400", "4800", "9600", "19200", "38400", "57600", "115200"}, nil)
	c.baudSelect.SetSelected("9600")

	c.paritySelect = widget.NewSelect([]string{"none", "even", "odd"}, nil)
	c.paritySelect.SetSelected("none")

	c.stopBitsSelect = widget.NewSelect([]string{"1", "2"}, nil)
	c.stopBitsSelect.SetSelected("1")

	c.readTimeoutStr = widget.NewEntry()
	c.readTimeoutStr.SetText("500")

	c.writeTimeoutStr = widget.NewEntry()
	c.writeTimeoutStr.SetText("300")

	refreshBtn := widget.NewButton("Refresh Ports", func() {
		c.refreshPorts()
	})

	c.openBtn = widget.NewButton("Open", func() {
		c.openPort()
	})
	c.openBtn.Importance = widget.HighImportance

	c.closeBtn = widget.NewButton("Close", func() {
		c.closePort()
	})
	c.closeBtn.Disable()

	configForm := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Port", Widget: c.portSelect},
			{Text: "Baud Rate", Widget: c.baudSelect},
			{Text: "Parity", Widget: c.paritySelect},
			{Text: "Stop Bits", Widget: c.stopBitsSelect},
			{Text: "Read Timeout (ms)", Widget: c.readTimeoutStr},
			{Text: "Write Timeout (ms)", Widget: c.writeTimeoutStr},
		},
	}

	configCard := widget.NewCard("Connection", "", container.NewVBox(
		configForm,
		container.NewHBox(refreshBtn, c.openBtn, c.closeBtn),
	))

	// Send section
	c.sendEntry = widget.NewEntry()
	c.sendEntry.SetPlaceHolder("Data to transmit")

	c.encodingRadio = widget.NewRadioGroup([]string{"text", "hex"}, nil)
	c.encodingRadio.Horizontal = true
	c.encodingRadio.SetSelected("text")

	c.sendBtn = widget.NewButton("Send", func() {
		c.sendData()
	})
	c.sendBtn.Disable()

	sendCard := widget.NewCard("Transmit", "", container.NewVBox(
		c.sendEntry,
		container.NewHBox(c.encodingRadio, c.sendBtn),
	))

	// Receive section
	c.receiveLog = widget.NewMultiLineEntry()
	c.receiveLog.Wrapping = fyne.TextWrapWord

	c.readBtn = widget.NewButton("Read Now", func() {
		c.readData()
	})
	c.readBtn.Disable()

	c.autoRead = widget.NewCheck("Auto-read (1s)", func(checked bool) {
		if checked {
			go c.startPolling()
		} else {
			c.stopPolling <- true
		}
	})

	clearBtn := widget.NewButton("Clear", func() {
		c.receiveLog.SetText("")
	})

	receiveCard := widget.NewCard("Receive", "", container.NewBorder(
		container.NewHBox(c.readBtn, c.autoRead, clearBtn),
		nil,
		nil,
		nil,
		container.NewScroll(c.receiveLog),
	))

	return container.NewBorder(
		container.NewVBox(configCard, sendCard),
		nil,
		nil,
		nil,
		receiveCard,
	)
}

// refreshPorts repopulates the port selector
func (c *ConsoleTab) refreshPorts() {
	ports, err := c.gw.ListPorts()
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to list ports: %w", err), c.window)
		return
	}
	selected := c.portSelect.Selected
	c.portSelect.Options = ports
	if selected != "" {
		c.portSelect.SetSelected(selected)
	}
	c.portSelect.Refresh()
}

// openPort opens the session with the configured line parameters
func (c *ConsoleTab) openPort() {
	baud, _ := strconv.Atoi(c.baudSelect.Selected)
	stopBits, _ := strconv.Atoi(c.stopBitsSelect.Selected)

	readTimeout, err := strconv.Atoi(c.readTimeoutStr.Text)
	if err != nil {
		dialog.ShowError(fmt.Errorf("invalid read timeout: %w", err), c.window)
		return
	}
	writeTimeout, err := strconv.Atoi(c.writeTimeoutStr.Text)
	if err != nil {
		dialog.ShowError(fmt.Errorf("invalid write timeout: %w", err), c.window)
		return
	}

	applied, err := c.gw.OpenPort(gateway.OpenRequest{
		Port:           c.portSelect.Selected,
		Baud:           baud,
		Parity:         c.paritySelect.Selected,
		StopBits:       stopBits,
		DataBits:       8,
		ReadTimeoutMs:  readTimeout,
		WriteTimeoutMs: writeTimeout,
	})
	if err != nil {
		dialog.ShowError(err, c.window)
		return
	}

	c.openBtn.Disable()
	c.closeBtn.Enable()
	c.sendBtn.Enable()
	c.readBtn.Enable()
	c.setStatus(fmt.Sprintf("Connected to %s @ %d baud", applied.Port, applied.Baud))
}

// closePort releases the session
func (c *ConsoleTab) closePort() {
	if c.autoRead.Checked {
		c.autoRead.SetChecked(false)
	}

	err := c.gw.ClosePort()

	// The handle is released even when close reported a fault, so the
	// UI always returns to the disconnected state.
	c.openBtn.Enable()
	c.closeBtn.Disable()
	c.sendBtn.Disable()
	c.readBtn.Disable()
	c.setStatus("Disconnected")

	if err != nil {
		dialog.ShowError(err, c.window)
	}
}

// sendData transmits the entry contents in the selected encoding
func (c *ConsoleTab) sendData() {
	resp, err := c.gw.WriteData(gateway.WriteRequest{
		Data:     c.sendEntry.Text,
		Encoding: c.encodingRadio.Selected,
	})
	if err != nil {
		if resp.BytesWritten > 0 {
			c.appendLine(fmt.Sprintf("[%s] TX partial: %d bytes before error: %v",
				timestamp(), resp.BytesWritten, err))
		}
		dialog.ShowError(err, c.window)
		return
	}
	c.appendLine(fmt.Sprintf("[%s] TX %d bytes", timestamp(), resp.BytesWritten))
}

// readData performs one bounded read and appends any data received
func (c *ConsoleTab) readData() {
	resp, err := c.gw.ReadData(gateway.ReadRequest{MaxBytes: 1024})
	if err != nil {
		dialog.ShowError(err, c.window)
		return
	}
	if resp.Len == 0 {
		return
	}
	c.appendLine(fmt.Sprintf("[%s] RX %d bytes", timestamp(), resp.Len))
	c.appendLine("  text: " + resp.Text)
	c.appendLine("  hex:  " + resp.Hex)
}

// startPolling reads the line once a second until stopped
func (c *ConsoleTab) startPolling() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			resp, err := c.gw.ReadData(gateway.ReadRequest{MaxBytes: 1024})
			if err != nil || resp.Len == 0 {
				continue
			}
			c.appendLine(fmt.Sprintf("[%s] RX %d bytes", timestamp(), resp.Len))
			c.appendLine("  text: " + resp.Text)
			c.appendLine("  hex:  " + resp.Hex)
		case <-c.stopPolling:
			return
		}
	}
}

func (c *ConsoleTab) appendLine(line string) {
	c.receiveLog.SetText(c.receiveLog.Text + line + "\n")
}

func timestamp() string {
	return time.Now().Format("15:04:05.000")
}
