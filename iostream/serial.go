package iostream

import (
	"context"
	"fmt"
	"io"

	goserial "go.bug.st/serial"
)

// SerialStream is a Stream backed by a real serial port via go.bug.st/serial,
// the cross-platform counterpart to the termios-ioctl style transport the
// retrieved corpus shows (daedaluz/goserial is Linux-only; this module needs
// to run its tests on any host).
type SerialStream struct {
	*base
	port goserial.Port
}

// NewSerial opens device at baud and wraps it as a Stream.
func NewSerial(device string, baud int) (Stream, error) {
	port, err := goserial.Open(device, &goserial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &SerialStream{base: newBase(port, nil), port: port}, nil
}

func (s *SerialStream) ReadByte(ctx context.Context) (byte, Symbol, error) {
	b, err := s.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, EOF, nil
		}
		return 0, EOF, err
	}
	return b, Data, nil
}

func (s *SerialStream) Close() error { return s.port.Close() }
