// Package rwx implements the read/write/exec engine (§4.D): a shared
// chunked-transfer loop driving capability-scoped drivers for bootloader
// RAM, BFC RAM/flash, the accelerated "code" dumper/writer, and the BFC
// DOCSIS config dumper. Mirrors the teacher's vm/exec.go central dispatch
// loop calling out to per-opcode handlers, here a central chunk loop
// calling out to per-driver ReadChunk/WriteChunk.
package rwx

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/profile"
)

// Caps is the capability set a Driver declares; calls requesting a missing
// capability fail fast rather than attempting and erroring mid-flight.
type Caps struct {
	Read    bool
	Write   bool
	Exec    bool
	Special bool
}

// Driver is the per-backend implementation every concrete rwx driver
// supplies; Session drives every instance through the same state machine
// (idle -> active -> idle, cleanup guaranteed on exit).
type Driver interface {
	Capabilities() Caps
	ReadLimits() profile.RWXLimits
	WriteLimits() profile.RWXLimits
	Init(ctx context.Context, offset, length uint64, write bool) error
	// ReadChunk fills buf (driver-determined length up to len(buf)) from
	// offset and returns the number of bytes parsed.
	ReadChunk(ctx context.Context, offset uint64, buf []byte) (int, error)
	WriteChunk(ctx context.Context, offset uint64, buf []byte) (int, error)
	Cleanup(ctx context.Context) error
}

// cancelled is the process-wide SIGINT flag every chunk loop polls (§5).
var cancelled atomic.Bool

// InstallSIGINTHandler arms the process-wide cancellation flag on the
// first ^C; a second ^C while cleanup is running is not handled specially.
func InstallSIGINTHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		cancelled.Store(true)
	}()
}

// ResetCancellation clears the flag; tests and successive CLI invocations
// within one process call this between operations.
func ResetCancellation() { cancelled.Store(false) }

// ProgramStoreListener is notified the first time a chunk loop observes a
// valid ProgramStore header, used for image scanning during a dump.
type ProgramStoreListener func(hdr ProgramStoreHeader)

// Session drives one Driver through a read or write transfer, widening to
// alignment/min_chunk, retrying protocol errors up to 5 times per chunk,
// and sniffing ProgramStore headers as they pass through.
type Session struct {
	Driver   Driver
	OnHeader ProgramStoreListener

	sniffed bool
}

const maxRetries = 5

// retryReadyWait is how long a chunk retry pauses before the second retry
// (the third attempt) (§4.D). The pause is a fixed sleep; the interface's
// readiness is not polled. Var, not const, so tests can shrink it instead
// of sleeping for real.
var retryReadyWait = 10 * time.Second

// widen returns (offset, length) widened outward to satisfy alignment and
// minChunk, per §4.D / §8's "unaligned offsets cause the engine to widen".
func widen(offset, length uint64, lim profile.RWXLimits) (uint64, uint64) {
	align := uint64(lim.Alignment)
	if align == 0 {
		align = 1
	}
	end := offset + length
	wOffset := offset - (offset % align)
	wEnd := end
	if end%align != 0 {
		wEnd = end + (align - end%align)
	}
	wLength := wEnd - wOffset
	if min := uint64(lim.MinChunk); min > 0 && wLength < min {
		wLength = min
	}
	return wOffset, wLength
}

// Read performs a full dump of [offset, offset+length) into out, emitting
// exactly the requested sub-window even though the underlying chunk reads
// may be wider (alignment widening).
func (s *Session) Read(ctx context.Context, offset, length uint64, out io.Writer) error {
	caps := s.Driver.Capabilities()
	if !caps.Read {
		return xerrors.Programmer("rwx: driver does not support read")
	}
	lim := s.Driver.ReadLimits()
	wOffset, wLength := widen(offset, length, lim)

	if err := s.Driver.Init(ctx, wOffset, wLength, false); err != nil {
		return err
	}
	defer s.Driver.Cleanup(ctx)

	maxChunk := uint64(lim.MaxChunk)
	if maxChunk == 0 {
		maxChunk = wLength
	}

	skipFront := offset - wOffset
	remainingWanted := length
	cur := wOffset
	end := wOffset + wLength
	skipped := uint64(0)

	for cur < end {
		if cancelled.Load() {
			return xerrors.Cancelled
		}
		step := maxChunk
		if cur+step > end {
			step = end - cur
		}
		buf := make([]byte, step)

		n, err := s.readChunkWithRetry(ctx, cur, buf)
		if err != nil {
			return err
		}
		if uint64(n) != step {
			return xerrors.Protocol(int64(cur), "", "chunk length mismatch: got %d want %d", n, step)
		}
		s.sniffHeader(buf)

		chunkOut := buf
		if skipped < skipFront {
			toSkip := skipFront - skipped
			if toSkip >= uint64(len(chunkOut)) {
				skipped += uint64(len(chunkOut))
				cur += step
				continue
			}
			chunkOut = chunkOut[toSkip:]
			skipped = skipFront
		}
		if uint64(len(chunkOut)) > remainingWanted {
			chunkOut = chunkOut[:remainingWanted]
		}
		if len(chunkOut) > 0 {
			if _, err := out.Write(chunkOut); err != nil {
				return err
			}
			remainingWanted -= uint64(len(chunkOut))
		}
		cur += step
	}
	return nil
}

func (s *Session) readChunkWithRetry(ctx context.Context, offset uint64, buf []byte) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt == 2 {
			// Before the second retry, pause for retryReadyWait.
			time.Sleep(retryReadyWait)
		}
		n, err := s.Driver.ReadChunk(ctx, offset, buf)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !xerrors.IsProtocol(err) {
			return 0, err
		}
	}
	return 0, xerrors.ProtocolWrap(lastErr, int64(offset), "")
}

// Write performs a write of data at offset, widening to alignment via
// read-modify-write when the driver supports reads and the widened region
// spans bytes the caller did not supply.
func (s *Session) Write(ctx context.Context, offset uint64, data []byte) error {
	caps := s.Driver.Capabilities()
	if !caps.Write {
		return xerrors.Programmer("rwx: driver does not support write")
	}
	lim := s.Driver.WriteLimits()
	length := uint64(len(data))
	wOffset, wLength := widen(offset, length, lim)

	payload := data
	if wOffset != offset || wLength != length {
		if !caps.Read {
			return xerrors.User("rwx: write at offset 0x%x requires alignment widening but driver has no read capability for read-modify-write", offset)
		}
		var buf writeAccum
		if err := s.Read(ctx, wOffset, wLength, &buf); err != nil {
			return err
		}
		payload = buf.Bytes()
		copy(payload[offset-wOffset:], data)
	}

	if err := s.Driver.Init(ctx, wOffset, wLength, true); err != nil {
		return err
	}
	defer s.Driver.Cleanup(ctx)

	maxChunk := uint64(lim.MaxChunk)
	if maxChunk == 0 {
		maxChunk = wLength
	}
	cur := wOffset
	end := wOffset + wLength
	pos := uint64(0)
	for cur < end {
		if cancelled.Load() {
			return xerrors.Cancelled
		}
		step := maxChunk
		if cur+step > end {
			step = end - cur
		}
		chunk := payload[pos : pos+step]
		n, err := s.writeChunkWithRetry(ctx, cur, chunk)
		if err != nil {
			return err
		}
		if uint64(n) != step {
			return xerrors.Protocol(int64(cur), "", "write chunk length mismatch: wrote %d want %d", n, step)
		}
		cur += step
		pos += step
	}
	return nil
}

func (s *Session) writeChunkWithRetry(ctx context.Context, offset uint64, buf []byte) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt == 2 {
			time.Sleep(retryReadyWait)
		}
		n, err := s.Driver.WriteChunk(ctx, offset, buf)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !xerrors.IsProtocol(err) {
			return 0, err
		}
	}
	return 0, xerrors.ProtocolWrap(lastErr, int64(offset), "")
}

func (s *Session) sniffHeader(chunk []byte) {
	if s.sniffed || s.OnHeader == nil || len(chunk) < programStoreLen {
		return
	}
	if hdr, ok := ParseProgramStoreHeader(chunk); ok {
		s.sniffed = true
		s.OnHeader(hdr)
	}
}

// writeAccum is an io.Writer accumulating bytes for the read-modify-write
// path's preliminary read.
type writeAccum struct{ buf []byte }

func (w *writeAccum) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
func (w *writeAccum) Bytes() []byte { return w.buf }
