package iostream

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// TCPStream is a raw (non-Telnet) TCP Stream, used for devices that expose
// their console directly on a socket with no IAC negotiation at all.
type TCPStream struct {
	*base
	conn net.Conn
}

// NewTCP dials addr (host:port) with connectTimeout.
func NewTCP(addr string, connectTimeout time.Duration) (Stream, error) {
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	return &TCPStream{base: newBase(conn, nil), conn: conn}, nil
}

func (t *TCPStream) ReadByte(ctx context.Context) (byte, Symbol, error) {
	b, err := t.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, EOF, nil
		}
		return 0, EOF, err
	}
	return b, Data, nil
}

func (t *TCPStream) Close() error { return t.conn.Close() }
