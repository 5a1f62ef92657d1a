package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"rs485console/gateway"
)

// MainUI represents the main user interface
type MainUI struct {
	window  fyne.Window
	console *ConsoleTab
	ports   *PortsTab
	status  *widget.Label
}

// NewMainUI creates a new main UI
func NewMainUI(window fyne.Window, gw *gateway.Gateway) *MainUI {
	ui := &MainUI{
		window: window,
		status: widget.NewLabel("Status: Disconnected"),
	}

	// Create tabs
	ui.console = NewConsoleTab(window, gw, ui.setStatus)
	ui.ports = NewPortsTab(window, gw)

	return ui
}

// Build constructs the UI layout
func (m *MainUI) Build() *fyne.Container {
	// Create tab container
	tabs := container.NewAppTabs(
		container.NewTabItem("Console", m.console.Build()),
		container.NewTabItem("Ports", m.ports.Build()),
	)

	return container.NewBorder(
		m.buildHeader(),
		m.buildFooter(),
		nil,
		nil,
		tabs,
	)
}

// buildHeader creates the header section
func (m *MainUI) buildHeader() *fyne.Container {
	title := widget.NewLabelWithStyle("RS485 Console",
		fyne.TextAlignCenter,
		fyne.TextStyle{Bold: true})

	return container.NewVBox(
		title,
		widget.NewSeparator(),
	)
}

// buildFooter creates the footer section
func (m *MainUI) buildFooter() *fyne.Container {
	return container.NewVBox(
		widget.NewSeparator(),
		m.status,
	)
}

func (m *MainUI) setStatus(text string) {
	m.status.SetText("Status: " + text)
}
