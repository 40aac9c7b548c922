// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"fmt"

	"go.bug.st/serial"

	"github.com/Thermoquad/trackside/pkg/livetiming"
)

// OpenSerial opens a serial relay carrying the raw stream. Keys and keyframes
// come from the archive set with WithArchive. The port is closed when ctx ends.
func OpenSerial(ctx context.Context, portName string, baudRate int, opts ...Option) (*Stream, error) {
	s := apply(opts)
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open serial port %s: %v", livetiming.ErrTransportUnavailable, portName, err)
	}

	return NewStream(fmt.Sprintf("serial %s @ %d baud", portName, baudRate), port, s.archive).Watch(ctx), nil
}

// SerialPorts lists the serial ports present on the system
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
