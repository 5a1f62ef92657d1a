package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"rs485console/gateway"
)

// PortsTab lists the serial devices visible on the host
type PortsTab struct {
	window   fyne.Window
	gw       *gateway.Gateway
	ports    []string
	portList *widget.List
}

// NewPortsTab creates a new ports tab
func NewPortsTab(window fyne.Window, gw *gateway.Gateway) *PortsTab {
	return &PortsTab{
		window: window,
		gw:     gw,
		ports:  make([]string, 0),
	}
}

// Build constructs the ports UI
func (p *PortsTab) Build() *fyne.Container {
	p.portList = widget.NewList(
		func() int {
			return len(p.ports)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			if id < len(p.ports) {
				label.SetText(p.ports[id])
			}
		},
	)

	countLabel := widget.NewLabel("")
	refresh := func() {
		p.refresh()
		countLabel.SetText(fmt.Sprintf("%d ports found", len(p.ports)))
	}
	refreshBtn := widget.NewButton("Refresh", refresh)

	refresh()

	return container.NewBorder(
		container.NewVBox(
			widget.NewLabel("Detected serial ports (USB adapters and /dev/serial/by-id aliases included)"),
			widget.NewSeparator(),
			container.NewHBox(refreshBtn, countLabel),
		),
		nil,
		nil,
		nil,
		container.NewScroll(p.portList),
	)
}

// refresh re-enumerates the host's serial devices
func (p *PortsTab) refresh() {
	ports, err := p.gw.ListPorts()
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to list ports: %w", err), p.window)
		return
	}
	p.ports = ports
	p.portList.Refresh()
}
