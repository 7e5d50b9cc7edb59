package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalogValidates(t *testing.T) {
	cat := NewCatalog(Builtin()...)
	p, ok := cat.Get("tc7200")
	require.True(t, ok)
	require.Equal(t, "Technicolor TC7200", p.Pretty)

	flash, ok := p.Space("flash")
	require.True(t, ok)
	part, ok := flash.FindPartition("image1")
	require.True(t, ok)
	require.EqualValues(t, 0x19c0000, part.Offset)
	require.EqualValues(t, 0x06c0000, part.Length)
}

func TestOverlappingPartitionsRejected(t *testing.T) {
	bad := &Profile{
		Name: "bad",
		Spaces: map[string]*Space{
			"flash": {
				Name: "flash",
				Partitions: []Partition{
					{Name: "a", Offset: 0, Length: 0x100},
					{Name: "b", Offset: 0x80, Length: 0x100},
				},
			},
		},
	}
	require.Panics(t, func() { NewCatalog(bad) })
}

func TestVersionInheritsFromDefault(t *testing.T) {
	p := &Profile{
		Name: "x",
		Versions: []Version{
			{Interface: "bldr", Name: "", LoadAddr: 0x1000, Buffer: 0x2000},
			{Interface: "bldr", Name: "v1", Buffer: 0x3000},
		},
	}
	v, ok := p.Resolve("bldr", "v1")
	require.True(t, ok)
	require.EqualValues(t, 0x1000, v.LoadAddr) // inherited
	require.EqualValues(t, 0x3000, v.Buffer)   // overridden
}

func TestMagicCandidateOrdering(t *testing.T) {
	p1 := &Profile{Name: "p1", Versions: []Version{
		{Interface: "bldr", Magic: Magic{Addr: 0x100, Data: []byte("AB")}},
	}}
	p2 := &Profile{Name: "p2", Versions: []Version{
		{Interface: "bldr", Magic: Magic{Addr: 0x100, Data: []byte("ABCD")}},
		{Interface: "bldr", Magic: Magic{Addr: 0x50, Data: []byte("Z")}},
	}}
	cat := NewCatalog(p1, p2)
	cands := cat.MagicCandidates("bldr")
	require.Len(t, cands, 3)
	require.EqualValues(t, 0x50, cands[0].Version.Magic.Addr)
	require.EqualValues(t, 0x100, cands[1].Version.Magic.Addr)
	require.Len(t, cands[1].Version.Magic.Data, 4) // longer magic first at equal addr
}
