package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed    = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen  = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagAssets      = flag.String("assets", "", "Asset root directory")
	flagManifest    = flag.String("manifest", "", "Asset manifest path")
	flagConcurrency = flag.Int("concurrency", -1, "Max concurrent asset loads (0 = unbounded)")
	flagWriteConfig = flag.String("write-config", "", "Write the merged config to this path (- for stdout) and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the --write-config destination, empty when unset.
func WriteConfigPath() string {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagAssets != "" {
		cfg.Assets.Root = *flagAssets
	}
	if *flagManifest != "" {
		cfg.Assets.Manifest = *flagManifest
	}
	if *flagConcurrency >= 0 {
		cfg.Assets.Concurrency = *flagConcurrency
	}
}
