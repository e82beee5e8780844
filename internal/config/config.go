// Package config loads apexlog settings from flags, environment and an
// optional .apexlog.yaml file.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
	"github.com/jamestexas/apex-log-parsin/internal/render"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. APEXLOG_OUTPUT.
	EnvPrefix = "APEXLOG"

	// FileName is the config file looked up in $HOME and the working directory.
	FileName = ".apexlog"

	maxIDWidth = 12
)

// Config holds every setting the CLI consults.
type Config struct {
	Output  string `mapstructure:"output"`
	Pretty  bool   `mapstructure:"pretty"`
	IDWidth int    `mapstructure:"id_width"`
	Debug   bool   `mapstructure:"debug"`

	Tree   TreeConfig   `mapstructure:"tree"`
	Server ServerConfig `mapstructure:"server"`
	Kube   KubeConfig   `mapstructure:"kube"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// TreeConfig controls the tree printer.
type TreeConfig struct {
	BarWidth      int     `mapstructure:"bar_width"`
	Color         bool    `mapstructure:"color"`
	MinDurationMs float64 `mapstructure:"min_duration_ms"`
}

// ServerConfig controls the HTTP parse API.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	MaxBodyMb int    `mapstructure:"max_body_mb"`
}

// KubeConfig names a pod whose output is read instead of files.
type KubeConfig struct {
	Namespace  string `mapstructure:"namespace"`
	Pod        string `mapstructure:"pod"`
	Container  string `mapstructure:"container"`
	Kubeconfig string `mapstructure:"kubeconfig"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Pattern string `mapstructure:"pattern"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Output:  render.FormatJSON,
		IDWidth: apexlog.DefaultIDWidth,
		Tree: TreeConfig{
			BarWidth: render.DefaultBarWidth,
			Color:    true,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			MaxBodyMb: 32,
		},
		Kube: KubeConfig{
			Namespace: "default",
		},
		Watch: WatchConfig{
			Pattern: "**/*.log",
		},
	}
}

// SetDefaults registers DefaultConfig with v and wires environment lookups,
// so nested keys such as tree.bar_width read APEXLOG_TREE_BAR_WIDTH.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("output", d.Output)
	v.SetDefault("pretty", d.Pretty)
	v.SetDefault("id_width", d.IDWidth)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("tree.bar_width", d.Tree.BarWidth)
	v.SetDefault("tree.color", d.Tree.Color)
	v.SetDefault("tree.min_duration_ms", d.Tree.MinDurationMs)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_body_mb", d.Server.MaxBodyMb)
	v.SetDefault("kube.namespace", d.Kube.Namespace)
	v.SetDefault("kube.pod", d.Kube.Pod)
	v.SetDefault("kube.container", d.Kube.Container)
	v.SetDefault("kube.kubeconfig", d.Kube.Kubeconfig)
	v.SetDefault("watch.pattern", d.Watch.Pattern)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile reads the config file named by path, or searches $HOME and the
// working directory for .apexlog.yaml when path is empty. A missing file
// in the search path is not an error.
func ReadFile(v *viper.Viper, path string, home string) error {
	if path != "" {
		v.SetConfigFile(path)
		return errors.Wrapf(v.ReadInConfig(), "reading config %s", path)
	}

	if home != "" {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "reading config")
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if c.IDWidth < 1 || c.IDWidth > maxIDWidth {
		return errors.Errorf("id_width must be between 1 and %d, got %d", maxIDWidth, c.IDWidth)
	}
	if c.Tree.BarWidth < 1 {
		return errors.Errorf("tree.bar_width must be at least 1, got %d", c.Tree.BarWidth)
	}
	if c.Tree.MinDurationMs < 0 {
		return errors.Errorf("tree.min_duration_ms must not be negative, got %v", c.Tree.MinDurationMs)
	}
	if c.Server.MaxBodyMb < 1 {
		return errors.Errorf("server.max_body_mb must be at least 1, got %d", c.Server.MaxBodyMb)
	}
	for _, f := range render.Formats {
		if c.Output == f {
			return nil
		}
	}
	return errors.Errorf("output must be one of %s, got %q", strings.Join(render.Formats, ", "), c.Output)
}

// TreePrinter returns a tree printer configured from c.
func (c Config) TreePrinter() *render.TreePrinter {
	p := render.NewTreePrinter()
	p.BarWidth = c.Tree.BarWidth
	p.Color = c.Tree.Color
	p.MinDurationMs = c.Tree.MinDurationMs
	return p
}

// Parser returns a debug log parser configured from c.
func (c Config) Parser() *apexlog.Parser {
	return apexlog.NewParser(apexlog.WithIDWidth(c.IDWidth))
}
