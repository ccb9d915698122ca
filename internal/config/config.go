// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/p4calc/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `p4calc:` root key in YAML.
type GlobalConfig struct {
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Link      LinkConfig      `mapstructure:"link" yaml:"link"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Responder ResponderConfig `mapstructure:"responder" yaml:"responder"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ─── Transport ───

// TransportConfig selects the link-layer transport and its options.
type TransportConfig struct {
	Type      string                 `mapstructure:"type" yaml:"type"`           // afpacket | loopback
	Interface string                 `mapstructure:"interface" yaml:"interface"` // e.g. eth0
	PcapOut   string                 `mapstructure:"pcap_out" yaml:"pcap_out"`   // Empty = no recording
	Options   map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// ─── Link ───

// LinkConfig describes the Ethernet envelope of P4calc frames.
type LinkConfig struct {
	DstMAC    string `mapstructure:"dst_mac" yaml:"dst_mac"`
	EtherType uint16 `mapstructure:"ether_type" yaml:"ether_type"`
	Trailer   string `mapstructure:"trailer" yaml:"trailer"`
}

// HardwareAddr parses DstMAC.
func (l LinkConfig) HardwareAddr() (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(l.DstMAC)
	if err != nil {
		return nil, fmt.Errorf("%w: link.dst_mac: %v", core.ErrConfigInvalid, err)
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("%w: link.dst_mac must be a 48-bit MAC, got %s", core.ErrConfigInvalid, l.DstMAC)
	}
	return mac, nil
}

// ─── Session ───

// SessionConfig controls the interactive round loop.
type SessionConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"` // Bounded wait for a reply
	Prompt  string        `mapstructure:"prompt" yaml:"prompt"`
	Dump    bool          `mapstructure:"dump" yaml:"dump"` // Print frame hexdumps
}

// ─── Responder ───

// ResponderConfig configures the software device.
type ResponderConfig struct {
	Script string        `mapstructure:"script" yaml:"script"` // Lua fault script, empty = none
	Delay  time.Duration `mapstructure:"delay" yaml:"delay"`   // Added before every reply
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string        `mapstructure:"level" yaml:"level"`     // trace / debug / info / warn / error
	Pattern string        `mapstructure:"pattern" yaml:"pattern"` // %time %level %field %msg
	Time    string        `mapstructure:"time" yaml:"time"`       // Go time layout
	File    FileLogConfig `mapstructure:"file" yaml:"file"`
}

// FileLogConfig configures rotating file output.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `p4calc: ...`.
type configRoot struct {
	P4calc GlobalConfig `mapstructure:"p4calc"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"interface": "p4calc.transport.interface",
	"transport": "p4calc.transport.type",
	"pcap-out":  "p4calc.transport.pcap_out",
	"dst-mac":   "p4calc.link.dst_mac",
	"timeout":   "p4calc.session.timeout",
	"dump":      "p4calc.session.dump",
	"script":    "p4calc.responder.script",
	"delay":     "p4calc.responder.delay",
	"log-level": "p4calc.log.level",
	"metrics":   "p4calc.metrics.enabled",
}

// Load loads configuration from an optional file, environment and flags.
// Env vars use the P4CALC_ prefix (e.g., P4CALC_TRANSPORT_INTERFACE).
// Flags that were set on the command line win over everything else.
func Load(path string, flags *pflag.FlagSet) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.P4calc

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "p4calc." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Transport defaults
	v.SetDefault("p4calc.transport.type", "afpacket")
	v.SetDefault("p4calc.transport.interface", "eth0")
	v.SetDefault("p4calc.transport.pcap_out", "")

	// Link defaults
	v.SetDefault("p4calc.link.dst_mac", "62:9b:0c:db:ac:20")
	v.SetDefault("p4calc.link.ether_type", 0x1234)
	v.SetDefault("p4calc.link.trailer", "P4calc test")

	// Session defaults
	v.SetDefault("p4calc.session.timeout", "1s")
	v.SetDefault("p4calc.session.prompt", "> ")
	v.SetDefault("p4calc.session.dump", true)

	// Responder defaults
	v.SetDefault("p4calc.responder.script", "")
	v.SetDefault("p4calc.responder.delay", "0s")

	// Metrics defaults
	v.SetDefault("p4calc.metrics.enabled", false)
	v.SetDefault("p4calc.metrics.listen", ":9092")
	v.SetDefault("p4calc.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("p4calc.log.level", "info")
	v.SetDefault("p4calc.log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("p4calc.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("p4calc.log.file.enabled", false)
	v.SetDefault("p4calc.log.file.path", "/var/log/p4calc/p4calc.log")
	v.SetDefault("p4calc.log.file.max_size_mb", 20)
	v.SetDefault("p4calc.log.file.max_age_days", 7)
	v.SetDefault("p4calc.log.file.max_backups", 3)
	v.SetDefault("p4calc.log.file.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Transport validation ──
	cfg.Transport.Type = strings.ToLower(strings.TrimSpace(cfg.Transport.Type))
	if cfg.Transport.Type == "" {
		return fmt.Errorf("%w: transport.type is required", core.ErrConfigInvalid)
	}
	if cfg.Transport.Type == "afpacket" && cfg.Transport.Interface == "" {
		return fmt.Errorf("%w: transport.interface is required for afpacket", core.ErrConfigInvalid)
	}

	// ── Link validation ──
	if _, err := cfg.Link.HardwareAddr(); err != nil {
		return err
	}
	// Values below 0x0600 are 802.3 lengths, not EtherTypes.
	if cfg.Link.EtherType < 0x0600 {
		return fmt.Errorf("%w: link.ether_type 0x%04x is not a valid EtherType", core.ErrConfigInvalid, cfg.Link.EtherType)
	}

	// ── Session validation ──
	if cfg.Session.Timeout <= 0 {
		return fmt.Errorf("%w: session.timeout must be positive, got %s", core.ErrConfigInvalid, cfg.Session.Timeout)
	}
	if cfg.Responder.Delay < 0 {
		return fmt.Errorf("%w: responder.delay must not be negative", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
