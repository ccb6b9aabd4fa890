package corexy

import (
	"fmt"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	devicePreferredDescriptor = "EiBotBoard"
	deviceVID                 = "04D8"
	devicePID                 = "FD92"
)

// SerialPort is the concrete, `go.bug.st/serial` backed Port.
type SerialPort struct {
	port serial.Port
}

// OpenSerialPort opens name at the device wire protocol's fixed settings:
// 9600 baud, 8-N-1, ASCII.
func OpenSerialPort(name string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("corexy: opening serial port %s: %w", name, err)
	}
	return &SerialPort{port: port}, nil
}

// Write implements Port.
func (s *SerialPort) Write(b []byte) error {
	_, err := s.port.Write(b)
	return err
}

// Flush implements Port by discarding both the input and output buffers.
func (s *SerialPort) Flush() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return err
	}
	return s.port.ResetOutputBuffer()
}

// Close implements Port.
func (s *SerialPort) Close() error {
	return s.port.Close()
}

// StartReader launches a background goroutine that reads bytes off the
// serial port and feeds them to engine until the port returns an error (most
// commonly because Close was called), logging the exit.
func StartReader(s *SerialPort, eng *ProtocolEngine, logger kitlog.Logger) {
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := s.port.Read(buf)
			if err != nil {
				logger.Log("level", "info", "event", "reader_closed", "err", err)
				return
			}
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				eng.FeedData(chunk)
			}
		}
	}()
}

// DiscoverPort enumerates serial devices and returns the first whose
// descriptor begins with EiBotBoard or whose VID:PID is 04D8:FD92. Returns
// an error if none match.
func DiscoverPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("corexy: listing serial ports: %w", err)
	}
	for _, p := range ports {
		if strings.HasPrefix(p.Product, devicePreferredDescriptor) {
			return p.Name, nil
		}
		if strings.EqualFold(p.VID, deviceVID) && strings.EqualFold(p.PID, devicePID) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("corexy: no plotter found (looked for descriptor %q or VID:PID %s:%s)",
		devicePreferredDescriptor, deviceVID, devicePID)
}
