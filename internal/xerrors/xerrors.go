// Package xerrors implements the error taxonomy shared by every layer of
// bcmhost: user errors, interface errors, protocol errors, cancellation and
// programmer errors. It stays close to plain errors.New/fmt.Errorf and
// errors.Is/errors.As rather than introducing a third-party errors package,
// since nothing in the retrieved example corpus pulls one in for this.
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the purposes of retry and presentation.
type Kind int

const (
	// KindUser covers bad arguments, misspecified ranges, unknown
	// partitions and wrong passwords. Surfaced verbatim, no I/O context.
	KindUser Kind = iota
	// KindInterface covers no-prompt, login refused, privilege escalation
	// failures and interrupted syscalls. Surfaced with the I/O tail.
	KindInterface
	// KindProtocol covers offset mismatches, unparseable lines, CRC/HCS
	// and magic mismatches. Retried up to 5 times per chunk.
	KindProtocol
	// KindCancel is raised by SIGINT and unwinds through cleanup guards.
	KindCancel
	// KindProgrammer covers label-out-of-range, bad args-mode and other
	// invariant violations. Never retried.
	KindProgrammer
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindInterface:
		return "interface"
	case KindProtocol:
		return "protocol"
	case KindCancel:
		return "cancel"
	case KindProgrammer:
		return "programmer"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carried through the stack. Kind decides
// retry and presentation behaviour; Lines is only populated for interface
// errors (the last up-to-50 I/O lines, oldest first).
type Error struct {
	Kind  Kind
	Msg   string
	Lines []string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Lines) > 0 {
		b.WriteString("\n--- last ")
		fmt.Fprintf(&b, "%d", len(e.Lines))
		b.WriteString(" I/O lines ---\n")
		b.WriteString(strings.Join(e.Lines, "\n"))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsProtocol is the predicate rwx.Session retries on.
func IsProtocol(err error) bool { return Is(err, KindProtocol) }

// IsCancel is the predicate scope guards unwind on.
func IsCancel(err error) bool { return Is(err, KindCancel) }

func User(format string, args ...any) error {
	return &Error{Kind: KindUser, Msg: fmt.Sprintf(format, args...)}
}

func Interface(lines []string, format string, args ...any) error {
	return &Error{Kind: KindInterface, Msg: fmt.Sprintf(format, args...), Lines: lines}
}

func InterfaceWrap(err error, lines []string, format string, args ...any) error {
	return &Error{Kind: KindInterface, Msg: fmt.Sprintf(format, args...), Lines: lines, Err: err}
}

func Protocol(offset int64, line string, format string, args ...any) error {
	return &Error{
		Kind: KindProtocol,
		Msg:  fmt.Sprintf("%s (offset=0x%x, line=%q)", fmt.Sprintf(format, args...), offset, line),
	}
}

func ProtocolWrap(err error, offset int64, line string) error {
	return &Error{
		Kind: KindProtocol,
		Msg:  fmt.Sprintf("protocol error at offset 0x%x, line=%q", offset, line),
		Err:  err,
	}
}

// Cancelled is the single cancellation sentinel; every ^C unwinds to this.
var Cancelled = &Error{Kind: KindCancel, Msg: "interrupted"}

func Programmer(format string, args ...any) error {
	return &Error{Kind: KindProgrammer, Msg: fmt.Sprintf(format, args...)}
}
