package profile

// Builtin returns the small set of profiles bcmhost ships and tests
// against: a name-only "generic" profile usable with any device provided
// the caller supplies an explicit dump length, and "tc7200", grounded on
// the Technicolor TC7200 entry of the reference implementation's profile
// table (profiledef.c), exercised by the end-to-end fixtures of §8.
func Builtin() []*Profile {
	return []*Profile{genericProfile(), tc7200Profile()}
}

func genericProfile() *Profile {
	return &Profile{
		Name:   "generic",
		Pretty: "Generic Profile",
		Arch:   "generic",
		MD5Key: "3250736c633b752865676d64302d2778",
		DefaultKeys: [][]byte{
			mustHex("0000000000000000000000000000000000000000000000000000000000000000")[:32],
			mustHex("0001020304050607080910111213141516171819202122232425262728293031")[:32],
			mustHex("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")[:32],
		},
		Spaces: map[string]*Space{
			"ram": {
				Name:      "ram",
				IsRAM:     true,
				Alignment: 4,
				Partitions: []Partition{
					{Name: "bootloader", Offset: 0xbfc00000},
				},
			},
			"flash": {
				Name: "flash",
				Partitions: []Partition{
					{Name: "bootloader"},
					{Name: "dynnv", AltName: "dyn"},
					{Name: "vennv", AltName: "ven"},
					{Name: "permnv", AltName: "perm"},
					{Name: "image1"}, {Name: "image2"}, {Name: "image3"}, {Name: "image3e"},
					{Name: "linux"}, {Name: "linuxapps"}, {Name: "linuxkfs"}, {Name: "dhtml"},
				},
			},
		},
	}
}

func tc7200Profile() *Profile {
	return &Profile{
		Name:        "tc7200",
		Pretty:      "Technicolor TC7200",
		Arch:        "bcm3383",
		BaudRate:    115200,
		PSSignature: 0xa825,
		BLSignature: 0x3386,
		Kseg1Mask:   0x20000000,
		Flags: ConfigFlags{
			Encryption:  EncAES256ECB,
			Padding:     PadFullZeroBlock,
			PadOptional: true,
		},
		MD5Key: "544d4d5f544337323030000000000000",
		DefaultKeys: [][]byte{
			mustHex("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"),
			mustHex("0001020304050607080910111213141516171819202122232425262728293031"),
		},
		KDF: tc7200KeyFun,
		Spaces: map[string]*Space{
			"ram": {
				Name: "ram", IsRAM: true, Alignment: 4,
				MinAddr: 0x80000000, Size: 128 * 1024 * 1024,
				Partitions: []Partition{
					{Name: "bootloader", Offset: 0x83f80000, Length: 0x020000},
					{Name: "image", Offset: 0x85f00000, Length: 0x6c0000},
					{Name: "linux", Offset: 0x87000000, Length: 0x480000},
				},
			},
			"nvram": {
				Name: "nvram", Alignment: 4, Size: 0x100000,
				Partitions: []Partition{
					{Name: "bootloader", Offset: 0x00000, Length: 0x10000},
					{Name: "permnv", AltName: "perm", Offset: 0x10000, Length: 0x10000},
					{Name: "dynnv", AltName: "dyn", Offset: 0xe0000, Length: 0x20000},
				},
			},
			"flash": {
				Name: "flash", Alignment: 4, Size: 64 * 1024 * 1024,
				Partitions: []Partition{
					{Name: "linuxapps", AltName: "image3e", Offset: 0x0000000, Length: 0x19c0000},
					{Name: "image1", Offset: 0x19c0000, Length: 0x06c0000},
					{Name: "image2", Offset: 0x2080000, Length: 0x06c0000},
					{Name: "linux", AltName: "image3", Offset: 0x2740000, Length: 0x0480000},
					{Name: "linuxkfs", Offset: 0x2bc0000, Length: 0x1200000},
					{Name: "dhtml", Offset: 0x3dc0000, Length: 0x0240000},
				},
			},
		},
		Versions: []Version{
			{
				Interface: "bldr",
				RWCode:    0x80002000,
				Buffer:    0x85f00000,
			},
		},
	}
}

// tc7200KeyFun mirrors the reference keyfun_tc7200: the key is 0..size-1 by
// default, with the password (if any) overlaid at the start.
func tc7200KeyFun(password string, keyLen int) []byte {
	key := make([]byte, keyLen)
	for i := range key {
		key[i] = byte(i)
	}
	if password != "" {
		copy(key, password)
	}
	return key
}

func mustHex(s string) []byte {
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
