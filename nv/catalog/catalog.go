// Package catalog holds concrete group definitions, registered as data
// (not executable spec content — populated profile/group records are
// configuration, per spec.md §1). Each definition below is grounded
// directly on its nonvoldef.cc nv_group_* counterpart: MLog (the "user
// interface" login-credentials group), CMAp (the CM-prefixed console/BFC
// settings group), T802 (the WIFI group), FIRE (the FIREWALL group), and
// CMEV (the REMOTELOG group) — enough of the commonly-referenced magics
// to exercise round-trip tests across every nv.Value kind; anything else
// falls back to the generic opaque-data group.
package catalog

import (
	"github.com/brcm33xx/bcmhost/nv"
	"github.com/brcm33xx/bcmhost/nv/registry"
)

// MLogMagic is the 4 byte magic of the user-interface login group.
var MLogMagic = [4]byte{'M', 'L', 'o', 'g'}

// mlogDef builds the MLog body for the given group version, including the
// version-gated fields (> 0x0006) the reference implementation adds.
func mlogDef(version uint16) *nv.Compound {
	children := []nv.Child{
		{Name: "http_user", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU16, FixedWidth: 32})},
		{Name: "http_pass", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU16, FixedWidth: 32})},
		{Name: "http_admin_user", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU16, FixedWidth: 32})},
		{Name: "http_admin_pass", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU16, FixedWidth: 32})},
		{Name: "telnet_enabled", Val: &nv.Bool{}},
		{Name: "remote_acc_user", Val: nv.NewString(nv.StringFlags{FixedWidth: 16})},
		{Name: "remote_acc_pass", Val: nv.NewString(nv.StringFlags{FixedWidth: 16})},
		{Name: "telnet_ipstacks", Val: ipStacks()},
	}
	if version > 0x0006 {
		children = append(children,
			nv.Child{Name: "ssh_ip_stacks", Val: ipStacks()},
			nv.Child{Name: "ssh_enabled", Val: nv.NewInt(nv.U8)},
			nv.Child{Name: "http_enabled", Val: nv.NewInt(nv.U8)},
			nv.Child{Name: "remote_acc_timeout", Val: nv.NewInt(nv.U16)},
		)
	}
	children = append(children,
		nv.Child{Name: "http_ipstacks", Val: ipStacks()},
		nv.Child{Name: "http_adv_ipstacks", Val: ipStacks()},
	)
	return nv.NewCompound(false, 0, children)
}

func ipStacks() *nv.Bitmask {
	return nv.NewBitmask(nv.U8, map[string]int64{
		"ipv4": 0x01,
		"ipv6": 0x02,
	})
}

// CMApMagic is the 4 byte magic of the BFC console-settings group, one of
// the CM-prefixed groups nonvoldef.cc registers ("CMAp", space "bfc").
var CMApMagic = [4]byte{'C', 'M', 'A', 'p'}

// cmapDef mirrors nv_group_cmap: three console-behavior flags plus the
// serial console mode enum.
func cmapDef(version uint16) *nv.Compound {
	return nv.NewCompound(false, 0, []nv.Child{
		{Name: "stop_at_console", Val: &nv.Bool{}},
		{Name: "skip_driver_init_prompt", Val: &nv.Bool{}},
		{Name: "stop_at_console_prompt", Val: &nv.Bool{}},
		{Name: "serial_console_mode", Val: nv.NewEnum(nv.U8, map[int64]string{
			0: "disabled",
			1: "ro",
			2: "rw",
			3: "factory",
		})},
	})
}

// T802Magic is the 4 byte magic of the WIFI radio-settings group
// (nv_group_t802, space "tmmwifi").
var T802Magic = [4]byte{'T', '8', '0', '2'}

// t802Def mirrors nv_group_t802's dual-band SSID/PSK/factory-string
// layout; the nv_u8 discard-byte fields ahead of the p8strings are kept
// as padding to preserve the on-wire offsets of the fields that follow.
func t802Def(version uint16) *nv.Compound {
	return nv.NewCompound(false, 0, []nv.Child{
		{Name: "", Val: nv.NewData(14)}, // wifi_sleep
		{Name: "ssid_24", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "ssid_50", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "", Val: nv.NewInt(nv.U8)},
		{Name: "wpa_psk_24", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU8})},
		{Name: "", Val: nv.NewInt(nv.U8)},
		{Name: "wpa_psk_50", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU8})},
		{Name: "", Val: nv.NewData(4)},
		{Name: "wifi_opt60_replace", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "", Val: nv.NewData(8)},
		{Name: "card1_prefix", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "card1_random", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "card2_prefix", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "card2_random", Val: nv.NewString(nv.StringFlags{FixedWidth: 33})},
		{Name: "card1_regul_rev", Val: nv.NewInt(nv.U8)},
		{Name: "card2_regul_rev", Val: nv.NewInt(nv.U8)},
	})
}

// FireMagic is the 4 byte magic of the FIREWALL settings group
// (nv_group_fire, space "firewall").
var FireMagic = [4]byte{'F', 'I', 'R', 'E'}

// fireDef mirrors nv_group_fire's feature bitmask, word/domain filter
// arrays, and time-of-day filter window.
func fireDef(version uint16) *nv.Compound {
	return nv.NewCompound(false, 0, []nv.Child{
		{Name: "", Val: nv.NewData(2)},
		{Name: "features", Val: nv.NewBitmask(nv.U16, map[string]int64{
			"keyword_blocking":     0x0001,
			"domain_blocking":      0x0002,
			"http_proxy_blocking":  0x0004,
			"disable_cookies":      0x0008,
			"disable_java_applets": 0x0010,
			"disable_activex_ctrl": 0x0020,
			"disable_popups":       0x0040,
			"mac_tod_filtering":    0x0080,
			"email_alerts":         0x0100,
			"block_fragmented_ip":  0x1000,
			"port_scan_detection":  0x2000,
			"syn_flood_detection":  0x4000,
		})},
		{Name: "", Val: nv.NewData(4)},
		{Name: "word_filter_count", Val: nv.NewInt(nv.U8)},
		{Name: "", Val: nv.NewData(3)},
		{Name: "domain_filter_count", Val: nv.NewInt(nv.U8)},
		{Name: "word_filters", Val: nv.NewArray(func() nv.Value {
			return nv.NewString(nv.StringFlags{FixedWidth: 0x20})
		}, 16, nil)},
		{Name: "domain_filters", Val: nv.NewArray(func() nv.Value {
			return nv.NewString(nv.StringFlags{FixedWidth: 0x40})
		}, 16, nil)},
		{Name: "", Val: nv.NewData(0x2d4)},
		{Name: "", Val: nv.NewData(0xc)},
		{Name: "tod_filter_days", Val: nv.NewBitmask(nv.U8, map[string]int64{
			"sunday":   0x01,
			"saturday": 0x40,
		})},
		{Name: "", Val: nv.NewData(1)},
		{Name: "tod_filter_begin_h", Val: nv.NewInt(nv.U8)},
		{Name: "tod_filter_end_h", Val: nv.NewInt(nv.U8)},
		{Name: "tod_filter_begin_m", Val: nv.NewInt(nv.U8)},
		{Name: "tod_filter_end_m", Val: nv.NewInt(nv.U8)},
		{Name: "", Val: nv.NewData(0x2a80)},
		{Name: "syslog_ip", Val: &nv.IPv4{}},
		{Name: "", Val: nv.NewData(2)},
		{Name: "syslog_events", Val: nv.NewInt(nv.U16)},
	})
}

// CMEVMagic is the 4 byte magic of the REMOTELOG group (nv_group_cmev,
// space "cmlog"): a p8-counted list of timestamped log entries.
var CMEVMagic = [4]byte{'C', 'M', 'E', 'V'}

func cmevLogEntryDef() *nv.Compound {
	return nv.NewCompound(false, 0, []nv.Child{
		{Name: "data", Val: nv.NewData(8)},
		{Name: "time1", Val: nv.NewInt(nv.U32)},
		{Name: "time2", Val: nv.NewInt(nv.U32)},
		{Name: "msg", Val: nv.NewString(nv.StringFlags{Prefix: nv.PrefixU16})},
	})
}

func cmevDef(version uint16) *nv.Compound {
	return nv.NewCompound(false, 0, []nv.Child{
		{Name: "", Val: nv.NewInt(nv.U8)},
		{Name: "log", Val: nv.NewList(func() nv.Value { return cmevLogEntryDef() }, 1)},
	})
}

// Register installs every catalog group definition into r for format.
func Register(r *registry.Registry, format nv.Format) {
	r.Register(format, MLogMagic, 0, mlogDef)
	r.Register(format, CMApMagic, 0, cmapDef)
	r.Register(format, T802Magic, 0, t802Def)
	r.Register(format, FireMagic, 0, fireDef)
	r.Register(format, CMEVMagic, 0, cmevDef)
}
