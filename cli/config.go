package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/abiiranathan/pdfhighlight/logging"
	"github.com/abiiranathan/pdfhighlight/viewer"
)

// Resolver holds the scroll request tuning.
type Resolver struct {
	// Distances in pixels at scale 1, multiplied by the viewport scale
	// when a request is resolved.
	NearDistance    float64 `toml:"near_distance"`
	OverlapDistance float64 `toml:"overlap_distance"`

	// Wait before resolving a scroll request, e.g. "150ms".
	SettleDelay time.Duration `toml:"settle_delay"`
}

// Config holds the configuration for the CLI.
type Config struct {
	// Max files processed at a time.
	// Large values will increase CPU and memory usage.
	// Default is 10.
	MaxConcurrency int `toml:"concurrency"`

	// SQLite database file.
	Database string `toml:"db"`

	// server port. default is 8080
	Port int `toml:"port"`

	// Viewport scale used to lay out pages.
	Scale float64 `toml:"scale"`

	// Directory for generated page images.
	PagesDir string `toml:"pages_dir"`

	Log      logging.Config `toml:"log"`
	Resolver Resolver       `toml:"resolver"`

	// Command line only.
	ConfigFile string `toml:"-"`
	Directory  string `toml:"-"` // the directory to walk
	Filename   string `toml:"-"` // the PDF to locate fragments in
	Fragments  string `toml:"-"` // file holding the fragments
	Zoom       int    `toml:"-"` // percent; overrides Scale when set
}

var DefaultConfig = Config{
	MaxConcurrency: 10,
	Database:       "pdfhighlight.sqlite3",
	Port:           8080,
	Scale:          1,
	PagesDir:       "pages",
	Log: logging.Config{
		Level:  "info",
		Format: "text",
	},
	Resolver: Resolver{
		NearDistance:    highlight.DefaultThresholds.NearDistance,
		OverlapDistance: highlight.DefaultThresholds.OverlapDistance,
		SettleDelay:     150 * time.Millisecond,
	},
}

// LoadConfig reads the TOML file at path into config. Keys missing from
// the file keep their current value; unknown keys are an error.
func LoadConfig(path string, config *Config) error {
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return fmt.Errorf("cli: load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("cli: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ConfigPath returns the value of the --config flag in args, if any. The
// file has to be loaded before the other flags are parsed so that flags
// override it.
func ConfigPath(args []string) string {
	for i, arg := range args {
		for _, name := range []string{"--config", "-config", "-C"} {
			if arg == name && i+1 < len(args) {
				return args[i+1]
			}
			if v, ok := strings.CutPrefix(arg, name+"="); ok {
				return v
			}
		}
	}
	return ""
}

// EffectiveScale returns the layout scale, honoring --zoom.
func (c *Config) EffectiveScale() float64 {
	if c.Zoom > 0 {
		return float64(c.Zoom) / 100
	}
	if c.Scale > 0 {
		return c.Scale
	}
	return 1
}

// Thresholds returns the resolver distances.
func (c *Config) Thresholds() highlight.Thresholds {
	return highlight.Thresholds{
		NearDistance:    c.Resolver.NearDistance,
		OverlapDistance: c.Resolver.OverlapDistance,
	}
}

// SessionOptions returns viewer options for c.
func (c *Config) SessionOptions(logger *slog.Logger) viewer.Options {
	return viewer.Options{
		Scale:       c.EffectiveScale(),
		SettleDelay: c.Resolver.SettleDelay,
		Thresholds:  c.Thresholds(),
		Logger:      logger,
	}
}
