// Package ifacedrv implements the interface-driver layer (§4.B): detecting
// which on-device CLI is present, escalating privilege, and exposing the
// small runcmd/readln/pending/foreach_line vocabulary the rwx engine drives.
package ifacedrv

import (
	"context"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/iostream"
)

// Driver is the shared base every concrete console driver embeds: the
// stream and the interface id.
type Driver struct {
	Stream iostream.Stream
	name   string
}

// Kind returns the interface-id used to key profile.Version lookups
// ("bldr", "bfc", "bfc-telnet").
func (d *Driver) Kind() string { return d.name }

// RunCmd sends a line with no reply scanning.
func (d *Driver) RunCmd(ctx context.Context, cmd string) error {
	if err := d.Stream.WriteLine(ctx, cmd); err != nil {
		return xerrors.InterfaceWrap(err, d.Stream.RecentLines(), "runcmd %q", cmd)
	}
	return nil
}

// RunCmdExpect sends cmd, then scans subsequent lines for a substring match.
// If stopOnMatch is false, every line up to the timeout is scanned and the
// result reports whether any of them matched; RunCmdExpect always returns
// once the device goes quiet for lineTimeout.
func (d *Driver) RunCmdExpect(ctx context.Context, cmd, expect string, stopOnMatch bool, lineTimeout time.Duration) (bool, error) {
	if err := d.RunCmd(ctx, cmd); err != nil {
		return false, err
	}
	matched := false
	for {
		line, err := d.Stream.ReadLine(lineTimeout)
		if err != nil {
			break
		}
		if strings.Contains(line, expect) {
			matched = true
			if stopOnMatch {
				break
			}
		}
	}
	return matched, nil
}

// ForeachLine consumes lines until fn returns true or the overall timeout
// expires, giving each individual ReadLine call lineTimeout to produce a
// line.
func (d *Driver) ForeachLine(timeout, lineTimeout time.Duration, fn func(line string) bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		line, err := d.Stream.ReadLine(lineTimeout)
		if err != nil {
			continue
		}
		if fn(line) {
			return nil
		}
	}
	return xerrors.Interface(d.Stream.RecentLines(), "foreach_line: timed out after %s", timeout)
}

// WaitReady polls isReady at 100 Hz until it reports true or timeout elapses.
func WaitReady(timeout time.Duration, isReady func() bool) bool {
	deadline := time.Now().Add(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for time.Now().Before(deadline) {
		if isReady() {
			return true
		}
		<-tick.C
	}
	return isReady()
}
