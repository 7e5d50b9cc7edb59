package iostream

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// rwBuf adapts a bytes.Buffer pair into an io.ReadWriter for base tests.
type rwBuf struct {
	r *bytes.Reader
	w *bytes.Buffer
}

func (rw *rwBuf) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *rwBuf) Write(p []byte) (int, error) { return rw.w.Write(p) }

func TestReadLineTerminators(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lf", "hello\n", "hello"},
		{"crlf", "hello\r\n", "hello"},
		{"nul", "hello\x00", "hello"},
		{"bare-cr-reset", "garbage\rhello\n", "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw := &rwBuf{r: bytes.NewReader([]byte(tc.in)), w: &bytes.Buffer{}}
			b := newBase(rw, nil)
			got, err := b.ReadLine(time.Second)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRingBufferWraps(t *testing.T) {
	r := newRing()
	for i := 0; i < ringSize+5; i++ {
		r.push(string(rune('a' + (i % 26))))
	}
	lines := r.lines()
	require.Len(t, lines, ringSize)
}

func TestTelnetEscape(t *testing.T) {
	out := telnetEscape([]byte{0x41, 0xff, '\r', 0x42})
	require.Equal(t, []byte{0x41, 0xff, 0xff, '\r', 0, 0x42}, out)
}
