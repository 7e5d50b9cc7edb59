package ifacedrv

import (
	"context"
	"strings"
	"time"

	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
)

// BFCTelnet is a BFC console reached over Telnet, gated by a login
// handshake (Login: / Password: / Invalid login vs. prompt).
type BFCTelnet struct {
	BFC
	Username string
	Password string
}

// NewBFCTelnet wraps stream as a BFC-telnet driver.
func NewBFCTelnet(stream iostream.Stream, opts profile.Options, username, password string) *BFCTelnet {
	t := &BFCTelnet{BFC: *NewBFC(stream, opts), Username: username, Password: password}
	t.name = "bfc-telnet"
	return t
}

// IsActive performs the login handshake, then falls back to the BFC
// prompt scan once authenticated.
func (t *BFCTelnet) IsActive(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	sawLogin := false
	for time.Now().Before(deadline) {
		line, err := t.Stream.ReadLine(300 * time.Millisecond)
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(line, "Login:"):
			sawLogin = true
			t.Stream.WriteLine(ctx, t.Username)
		case strings.Contains(line, "Password:"):
			t.Stream.WriteLine(ctx, t.Password)
		case strings.Contains(line, "Invalid login"):
			return false
		case isBFCPrompt(line):
			t.privilege = !isRestrictedPrompt(line)
			return true
		}
	}
	return sawLogin && t.BFC.IsActive(ctx, 2*time.Second)
}
