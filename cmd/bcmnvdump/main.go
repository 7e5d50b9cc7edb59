// Command bcmnvdump decodes a GatewaySettings/perm-dyn/BOLT-env blob dumped
// from a device (or read off a flash image) and prints the groups and
// variables it finds. It is the smoke test for settings.Load wired to a
// real profile catalog and disk I/O rather than the in-memory fixtures the
// package tests use.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/brcm33xx/bcmhost/internal/xlog"
	"github.com/brcm33xx/bcmhost/nv"
	"github.com/brcm33xx/bcmhost/profile"
	"github.com/brcm33xx/bcmhost/settings"
)

func main() {
	path := flag.String("in", "", "path to a GatewaySettings/perm-dyn/BOLT-env blob")
	profileName := flag.String("profile", "", "profile name to try decrypting with (blank: auto-detect)")
	password := flag.String("password", "", "password to derive a decryption key from, if the profile has a KDF")
	forceBolt := flag.Bool("bolt", false, "treat the input as a BOLT env blob instead of auto-sniffing")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := xlog.New(*debug)
	defer log.Sync()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "bcmnvdump: -in is required")
		os.Exit(2)
	}

	if err := run(*path, *profileName, *password, *forceBolt, log); err != nil {
		log.Sugar().Errorf("bcmnvdump: %v", err)
		os.Exit(1)
	}
}

func run(path, profileName, password string, forceBolt bool, log *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cat := profile.NewCatalog(profile.Builtin()...)
	var forced *profile.Profile
	if profileName != "" {
		p, ok := cat.Get(profileName)
		if !ok {
			return fmt.Errorf("unknown profile %q", profileName)
		}
		forced = p
	}

	container, err := settings.Load(raw, settings.LoadOptions{
		Catalog:   cat,
		Profile:   forced,
		Password:  password,
		ForceBolt: forceBolt,
		Log:       log,
	})
	if err != nil {
		return err
	}

	switch container.Kind {
	case settings.KindGatewaySettings:
		gw := container.GatewaySettings
		fmt.Printf("gatewaysettings: magic=%q version=%d groups=%d\n", gw.Magic, gw.Version, len(gw.Groups))
		if gw.Profile != nil {
			fmt.Printf("  decrypted with profile: %s\n", gw.Profile.Name)
		}
		dumpGroups(gw.Groups)
	case settings.KindPermDyn:
		pd := container.PermDyn
		fmt.Printf("permdyn: old_style=%v write_count=%d groups=%d\n", pd.OldStyle, pd.WriteCount, len(pd.Groups))
		dumpGroups(pd.Groups)
	case settings.KindBoltEnv:
		be := container.BoltEnv
		fmt.Printf("boltenv: write_count=%d vars=%d\n", be.WriteCount, len(be.Vars))
		for _, v := range be.Vars {
			switch {
			case v.Block:
				fmt.Printf("  [block %s] %d bytes\n", v.Name, len(v.Data))
			default:
				flags := ""
				if v.Temp {
					flags += " temp"
				}
				if v.RO {
					flags += " ro"
				}
				fmt.Printf("  %s=%s%s\n", v.Name, v.Value, flags)
			}
		}
	}
	return nil
}

func dumpGroups(groups []*nv.Group) {
	for _, g := range groups {
		fmt.Printf("  group %q v%d: %s\n", g.Magic, g.Version, g.Body.ToString(1, true))
	}
}
