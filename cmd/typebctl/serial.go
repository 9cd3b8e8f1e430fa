//go:build !tinygo

package main

import (
	"errors"
	"io"
	"runtime"

	"github.com/tarm/serial"
)

// openSerial opens dev as a serial front-end transport at baud. If dev
// is empty, it tries a short list of likely per-OS device paths, the
// same fallback mjolnir.Open uses for the engraver's UART.
func openSerial(dev string, baud int) (io.ReadWriteCloser, error) {
	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3", "COM4")
		case "darwin":
			devices = append(devices, "/dev/tty.usbserial-0", "/dev/tty.usbmodem0")
		default:
			devices = append(devices, "/dev/ttyACM0", "/dev/ttyUSB0")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("typebctl: no serial device specified")
	}
	var firstErr error
	for _, d := range devices {
		c := &serial.Config{Name: d, Baud: baud}
		s, err := serial.OpenPort(c)
		if err == nil {
			return s, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
