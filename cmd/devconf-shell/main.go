// Command devconf-shell applies a YAML-described USB configuration to a stub
// device and lets the user query and modify it interactively.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/yifeimfd/usbip-win/internal/config"
	"github.com/yifeimfd/usbip-win/internal/fixture"
	"github.com/yifeimfd/usbip-win/internal/usbid"
	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub"
)

var (
	configPath  = flag.String("config", "", "Path to YAML settings file")
	fixturePath = flag.String("fixture", "", "Path to YAML configuration fixture (overrides settings)")
	busID       = flag.String("busid", "1-1", "Bus ID of the stub device")
	verbose     = flag.Bool("v", false, "Enable debug logging")
	jsonOut     = flag.Bool("json", false, "Output logs as JSON")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "devconf-shell:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *jsonOut {
		cfg.Log.Format = "json"
	}
	if *fixturePath != "" {
		cfg.Fixture = *fixturePath
	}

	logw, err := cfg.Log.Apply()
	if err != nil {
		return err
	}
	defer logw.Close()

	var f *fixture.Fixture
	if cfg.Fixture != "" {
		if f, err = fixture.Load(cfg.Fixture); err != nil {
			return err
		}
	}

	ids := usbid.New()
	if !ids.Load() {
		pkg.LogDebug(pkg.ComponentShell, "usb.ids not found, using builtin class names")
	}

	pool := cfg.NewPool()
	dev := stub.NewDevice(*busID, stub.WithPool(pool))
	pkg.LogInfo(pkg.ComponentShell, "stub device ready",
		"busid", *busID,
		"fixture", cfg.Fixture,
		"level", pkg.GetLogLevel().String(),
		"debug", pkg.GetLogLevel() <= slog.LevelDebug)

	return newShell(dev, f, pool, ids).run()
}
