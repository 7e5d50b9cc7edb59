package ifacedrv

import (
	"bytes"
	"context"
	"time"

	"github.com/brcm33xx/bcmhost/internal/xerrors"
	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
)

// ConsoleDriver is the subset of the concrete drivers Detect needs: liveness
// probing plus the runcmd/readln vocabulary rwx drives operations through.
type ConsoleDriver interface {
	Kind() string
	IsActive(ctx context.Context, timeout time.Duration) bool
	RunCmd(ctx context.Context, cmd string) error
	RunCmdExpect(ctx context.Context, cmd, expect string, stopOnMatch bool, lineTimeout time.Duration) (bool, error)
	ForeachLine(timeout, lineTimeout time.Duration, fn func(line string) bool) error
	Cleanup() error
}

// MagicReader reads length bytes at addr from the active interface's RAM,
// used only for profile/version auto-detection. Supplied by the caller
// since reading RAM is an rwx-engine concern; ifacedrv stays agnostic of it.
type MagicReader func(ctx context.Context, addr uint32, length int) ([]byte, error)

// Detect tries bfc-telnet, then bootloader, then bfc, returning the first
// driver whose IsActive probe succeeds.
func Detect(ctx context.Context, stream iostream.Stream, probeTimeout time.Duration, telnetUser, telnetPass string, defaultOpts profile.Options) (ConsoleDriver, error) {
	candidates := []ConsoleDriver{
		NewBFCTelnet(stream, defaultOpts, telnetUser, telnetPass),
		NewBootloader(stream),
		NewBFC(stream, defaultOpts),
	}
	for _, d := range candidates {
		if d.IsActive(ctx, probeTimeout) {
			return d, nil
		}
	}
	return nil, xerrors.Interface(stream.RecentLines(), "no known interface responded within %s", probeTimeout)
}

// ResolveProfile scans every magic candidate for iface (ascending address,
// longest magic first, as Catalog.MagicCandidates already orders them),
// reading each candidate's expected bytes via read and returning the first
// exact match.
func ResolveProfile(ctx context.Context, cat *profile.Catalog, iface string, read MagicReader) (*profile.Profile, profile.Version, error) {
	for _, cand := range cat.MagicCandidates(iface) {
		got, err := read(ctx, cand.Version.Magic.Addr, len(cand.Version.Magic.Data))
		if err != nil {
			continue
		}
		if bytes.Equal(got, cand.Version.Magic.Data) {
			return cand.Profile, cand.Version, nil
		}
	}
	return nil, profile.Version{}, xerrors.Interface(nil, "no profile magic matched for interface %q", iface)
}
