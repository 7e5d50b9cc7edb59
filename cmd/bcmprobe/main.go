// Command bcmprobe connects to one device named in a config.toml, detects
// which console interface is live, and resolves the profile/version that
// interface's magic bytes match, printing a two-line summary. It is the
// smoke test for ifacedrv.Detect/ResolveProfile wired to a real profile
// catalog and a real RAM reader rather than the fakes the package tests use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/brcm33xx/bcmhost/ifacedrv"
	"github.com/brcm33xx/bcmhost/internal/config"
	"github.com/brcm33xx/bcmhost/internal/xlog"
	"github.com/brcm33xx/bcmhost/iostream"
	"github.com/brcm33xx/bcmhost/profile"
	"github.com/brcm33xx/bcmhost/rwx"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to device config.toml")
	deviceName := flag.String("device", "", "device name from config.toml to probe")
	probeTimeout := flag.Duration("probe-timeout", 2*time.Second, "per-interface liveness probe timeout")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := xlog.New(*debug)
	defer log.Sync()

	if *deviceName == "" {
		fmt.Fprintln(os.Stderr, "bcmprobe: -device is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *deviceName, *probeTimeout); err != nil {
		log.Sugar().Errorf("bcmprobe: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, deviceName string, probeTimeout time.Duration) error {
	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	dev, ok := file.Get(deviceName)
	if !ok {
		return fmt.Errorf("no device named %q in %s", deviceName, configPath)
	}

	stream, err := iostream.Dial(dev.DialConfig())
	if err != nil {
		return fmt.Errorf("dial %s: %w", deviceName, err)
	}
	defer stream.Close()

	opts := dev.ProfileOptions(profile.Options{})
	driver, err := ifacedrv.Detect(ctx, stream, probeTimeout, dev.TelnetUser, dev.TelnetPass, opts)
	if err != nil {
		return err
	}
	defer driver.Cleanup()

	fmt.Printf("interface: %s\n", driver.Kind())

	cat := profile.NewCatalog(profile.Builtin()...)
	reader, err := magicReaderFor(driver)
	if err != nil {
		fmt.Printf("profile: unresolved (%v)\n", err)
		return nil
	}

	p, v, err := ifacedrv.ResolveProfile(ctx, cat, driver.Kind(), reader)
	if err != nil {
		fmt.Printf("profile: unresolved (%v)\n", err)
		return nil
	}
	fmt.Printf("profile: %s (%s), version %q\n", p.Name, p.Pretty, v.Name)
	return nil
}

// magicReaderFor adapts whichever RAM driver matches the detected console
// interface into an ifacedrv.MagicReader, since profile auto-detection
// needs to read raw bytes and ifacedrv itself stays agnostic of rwx.
func magicReaderFor(driver ifacedrv.ConsoleDriver) (ifacedrv.MagicReader, error) {
	var ramDriver rwx.Driver
	switch d := driver.(type) {
	case *ifacedrv.Bootloader:
		ramDriver = rwx.NewBootloaderRAM(d)
	case *ifacedrv.BFC:
		ramDriver = rwx.NewBFCRam(d)
	case *ifacedrv.BFCTelnet:
		ramDriver = rwx.NewBFCRam(&d.BFC)
	default:
		return nil, fmt.Errorf("no RAM reader known for interface type %T", driver)
	}

	return func(ctx context.Context, addr uint32, length int) ([]byte, error) {
		buf := make([]byte, length)
		if err := ramDriver.Init(ctx, uint64(addr), uint64(length), false); err != nil {
			return nil, err
		}
		defer ramDriver.Cleanup(ctx)
		n, err := ramDriver.ReadChunk(ctx, uint64(addr), buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}, nil
}
