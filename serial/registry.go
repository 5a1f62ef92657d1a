package serial

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial"
)

// Test seam for the OS enumeration call.
var getPortsList = serial.GetPortsList

// ListPorts enumerates the serial device identifiers visible on the
// host. USB serial adapters that the OS enumeration misses are picked
// up by scanning /dev directly and resolving /dev/serial/by-id links.
// The result is sorted and deduplicated so repeated calls within a run
// are stable; no visible ports is an empty list, not an error.
func ListPorts() ([]string, error) {
	listed, err := getPortsList()
	if err != nil {
		return nil, &Error{Kind: KindEnumerationFailed, Op: "list_ports", Msg: "port enumeration failed", Err: err}
	}

	ports := make([]string, 0, len(listed))
	ports = append(ports, listed...)
	ports = append(ports, scanDevNodes()...)
	ports = append(ports, resolveByIDLinks()...)

	sort.Strings(ports)
	return dedup(ports), nil
}

func scanDevNodes() []string {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil
	}
	var found []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
			found = append(found, "/dev/"+name)
		}
	}
	return found
}

func resolveByIDLinks() []string {
	const byIDDir = "/dev/serial/by-id"
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return nil
	}
	var found []string
	for _, entry := range entries {
		link := filepath.Join(byIDDir, entry.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(byIDDir, target)
		}
		if resolved, err := filepath.EvalSymlinks(target); err == nil {
			target = resolved
		}
		found = append(found, filepath.Clean(target))
	}
	return found
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			out = append(out, p)
		}
	}
	return out
}
