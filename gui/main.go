package main

import (
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"rs485console/gateway"
	"rs485console/gui/ui"
	"rs485console/serial"
	"rs485console/sessionlog"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	sink := sessionlog.New(sessionlog.Options{MaxSizeMB: 10, MaxBackups: 3}, logger)
	defer sink.Close()

	session := serial.NewSession(logger)
	gw := gateway.New(session, logger, sink)

	// Create the app
	myApp := app.New()
	myWindow := myApp.NewWindow("RS485 Console")
	myWindow.Resize(fyne.NewSize(900, 650))

	// Create the main UI
	mainUI := ui.NewMainUI(myWindow, gw)

	// Set up the window content
	myWindow.SetContent(mainUI.Build())
	myWindow.ShowAndRun()

	// The handle must not outlive the window.
	if session.State() == serial.StateOpen {
		gw.ClosePort()
	}
}
