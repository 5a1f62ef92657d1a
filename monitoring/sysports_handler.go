package monitoring

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// SysPortInfo contains kernel-level UART information for one port.
type SysPortInfo struct {
	Device  string `json:"device"`
	UART    string `json:"uart"`
	IRQ     int    `json:"irq"`
	TX      int64  `json:"tx"`
	RX      int64  `json:"rx"`
	Signals string `json:"signals"`
	Active  bool   `json:"active"`
}

// SysPortsHandler reports /proc/tty/driver/serial contents, giving the
// dashboard a view of hardware UART activity next to the enumerated
// device list.
type SysPortsHandler struct{}

// NewSysPortsHandler creates a new system ports handler
func NewSysPortsHandler() *SysPortsHandler {
	return &SysPortsHandler{}
}

// Example line: "4: uart:16550A port:000002F0 irq:7 tx:1195 rx:1170 CTS|DSR|CD"
var sysPortLine = regexp.MustCompile(`^\s*(\d+):\s+uart:(\S+)\s+port:[0-9A-Fa-f]+\s+irq:(\d+)\s+tx:(\d+)\s+rx:(\d+)(.*)$`)

// ServeHTTP handles the /api/sysports endpoint
func (h *SysPortsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ports, err := readSystemPorts("/proc/tty/driver/serial")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ports": ports})
}

func readSystemPorts(path string) ([]SysPortInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ports []SysPortInfo
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if info, ok := parseSysPortLine(scanner.Text()); ok {
			ports = append(ports, info)
		}
	}
	return ports, scanner.Err()
}

func parseSysPortLine(line string) (SysPortInfo, bool) {
	matches := sysPortLine.FindStringSubmatch(line)
	if len(matches) < 6 {
		return SysPortInfo{}, false
	}
	uart := matches[2]
	if uart == "unknown" {
		return SysPortInfo{}, false
	}

	num, _ := strconv.Atoi(matches[1])
	irq, _ := strconv.Atoi(matches[3])
	tx, _ := strconv.ParseInt(matches[4], 10, 64)
	rx, _ := strconv.ParseInt(matches[5], 10, 64)
	signals := strings.TrimSpace(matches[6])

	// A port counts as active when a remote device asserts modem
	// signals or traffic has moved in both directions.
	hasRemoteSignals := strings.Contains(signals, "CTS") ||
		strings.Contains(signals, "DSR") ||
		strings.Contains(signals, "CD")
	active := hasRemoteSignals || (tx > 0 && rx > 0)

	return SysPortInfo{
		Device:  "/dev/ttyS" + strconv.Itoa(num),
		UART:    uart,
		IRQ:     irq,
		TX:      tx,
		RX:      rx,
		Signals: signals,
		Active:  active,
	}, true
}
