package settings

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/brcm33xx/bcmhost/profile"
)

// Container is whichever of the three settings formats Load decoded.
// Exactly one of GatewaySettings, PermDyn, or BoltEnv is non-nil.
type Container struct {
	Kind            Kind
	GatewaySettings *GatewaySettings
	PermDyn         *PermDyn
	BoltEnv         *BoltEnv
}

// LoadOptions carries the inputs a caller may supply to help a container
// decode: an explicit profile (skips auto-detection), an explicit cipher
// key, a password to derive one from, and a request to treat the buffer as
// BOLT env regardless of what Sniff would guess (BOLT env is never
// auto-detected, per §4.H).
type LoadOptions struct {
	Catalog   *profile.Catalog
	Profile   *profile.Profile
	Password  string
	Key       []byte
	ForceBolt bool
	Log       *zap.Logger
}

// Load sniffs raw and decodes it as whichever settings container it
// identifies as, using opts to resolve ambiguous profile/key choices.
func Load(raw []byte, opts LoadOptions) (*Container, error) {
	if opts.ForceBolt {
		be, err := ReadBoltEnv(raw, opts.Key, opts.Log)
		if err != nil {
			return nil, err
		}
		return &Container{Kind: KindBoltEnv, BoltEnv: be}, nil
	}

	switch Sniff(raw) {
	case KindPermDyn:
		pd, err := ReadPermDyn(raw, opts.Key, opts.Log)
		if err != nil {
			return nil, err
		}
		return &Container{Kind: KindPermDyn, PermDyn: pd}, nil
	case KindGatewaySettings:
		if opts.Catalog == nil {
			return nil, fmt.Errorf("settings: load: gatewaysettings requires a profile catalog")
		}
		gw, err := ReadGatewaySettings(raw, opts.Catalog, opts.Profile, opts.Password, opts.Key, opts.Log)
		if err != nil {
			return nil, err
		}
		return &Container{Kind: KindGatewaySettings, GatewaySettings: gw}, nil
	default:
		return nil, fmt.Errorf("settings: load: could not identify container format")
	}
}

// Write serialises c back to bytes. originalSize is required for the
// formats that live in a fixed-size region (perm/dyn's dual-segment
// layout, BOLT env's padded partition) and is ignored otherwise.
func (c *Container) Write(originalSize int, pad bool) ([]byte, error) {
	switch c.Kind {
	case KindGatewaySettings:
		return c.GatewaySettings.Write(pad)
	case KindPermDyn:
		return c.PermDyn.Write(originalSize)
	case KindBoltEnv:
		return c.BoltEnv.Write(originalSize)
	default:
		return nil, fmt.Errorf("settings: write: unknown container kind")
	}
}
