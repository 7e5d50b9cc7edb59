package settings

// Kind is the detected top-level settings-container format.
type Kind int

const (
	KindUnknown Kind = iota
	KindGatewaySettings
	KindPermDyn
	KindBoltEnv
)

// Sniff inspects the first 16 bytes of data: all 0xFF selects the legacy
// perm/dyn layout; anything else defaults to GatewaySettings. BOLT env is
// never auto-detected — callers select it explicitly (§4.H).
func Sniff(data []byte) Kind {
	if len(data) < 16 {
		return KindUnknown
	}
	allFF := true
	for _, b := range data[:16] {
		if b != 0xff {
			allFF = false
			break
		}
	}
	if allFF {
		return KindPermDyn
	}
	return KindGatewaySettings
}
