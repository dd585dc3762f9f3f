// Package config loads keyboard-sensor settings from flags, environment and
// an optional YAML file using Viper, and watches the file for changes.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

// EnvPrefix prefixes every environment override, e.g. KEYBOARD_SENSOR_BROKER
// or KEYBOARD_SENSOR_CHROME_REMOTE_URL.
const EnvPrefix = "KEYBOARD_SENSOR"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the daemon configuration.
type Config struct {
	Broker     string        `mapstructure:"broker"`
	HTTP       string        `mapstructure:"http"`
	WSBroker   string        `mapstructure:"ws_broker"`
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
	BufferSize int           `mapstructure:"buffer_size"`
	Chrome     ChromeConfig  `mapstructure:"chrome"`
	Tuning     TuningConfig  `mapstructure:"tuning"`
}

// ChromeConfig selects the browser tab being watched.
type ChromeConfig struct {
	RemoteURL string `mapstructure:"remote_url"`
	URL       string `mapstructure:"url"`
	Family    string `mapstructure:"family"`
	Headless  bool   `mapstructure:"headless"`
	Width     int64  `mapstructure:"width"`
	Height    int64  `mapstructure:"height"`
}

// TuningConfig mirrors logic.Tuning. Zero values keep the defaults.
type TuningConfig struct {
	ViewportRatioThreshold float64       `mapstructure:"viewport_ratio_threshold"`
	FallbackDeltaRatio     float64       `mapstructure:"fallback_delta_ratio"`
	BaselineRatio          float64       `mapstructure:"baseline_ratio"`
	FocusGrace             time.Duration `mapstructure:"focus_grace"`
	OrientationSettle      time.Duration `mapstructure:"orientation_settle"`
	ResizeQuiet            time.Duration `mapstructure:"resize_quiet"`
	ResizeSettle           time.Duration `mapstructure:"resize_settle"`
	VisibilityLag          time.Duration `mapstructure:"visibility_lag"`
}

// New returns a Viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := logic.DefaultTuning()
	v.SetDefault("broker", "tcp://192.168.1.200:1883")
	v.SetDefault("http", ":80")
	v.SetDefault("ws_broker", "=broker")
	v.SetDefault("heartbeat", "15m")
	v.SetDefault("buffer_size", 100)
	v.SetDefault("chrome.remote_url", "")
	v.SetDefault("chrome.url", "")
	v.SetDefault("chrome.family", "auto")
	v.SetDefault("chrome.headless", true)
	v.SetDefault("chrome.width", 0)
	v.SetDefault("chrome.height", 0)
	v.SetDefault("tuning.viewport_ratio_threshold", d.ViewportRatioThreshold)
	v.SetDefault("tuning.fallback_delta_ratio", d.FallbackDeltaRatio)
	v.SetDefault("tuning.baseline_ratio", d.BaselineRatio)
	v.SetDefault("tuning.focus_grace", d.FocusGrace.String())
	v.SetDefault("tuning.orientation_settle", d.OrientationSettle.String())
	v.SetDefault("tuning.resize_quiet", d.ResizeQuiet.String())
	v.SetDefault("tuning.resize_settle", d.ResizeSettle.String())
	v.SetDefault("tuning.visibility_lag", d.VisibilityLag.String())
	return v
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"broker":      "broker",
	"http":        "http",
	"ws-broker":   "ws_broker",
	"heartbeat":   "heartbeat",
	"buffer-size": "buffer_size",
	"remote-url":  "chrome.remote_url",
	"url":         "chrome.url",
	"family":      "chrome.family",
	"headless":    "chrome.headless",
	"width":       "chrome.width",
	"height":      "chrome.height",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	fs.String("http", ":80", "HTTP status address (empty to disable)")
	fs.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.Int("buffer-size", 100, "Messages kept while the broker is unreachable")
	fs.String("remote-url", "", "DevTools websocket URL of the device browser (empty launches a local browser)")
	fs.String("url", "", "Page to open after attaching")
	fs.String("family", "auto", "Device family: auto, viewport or heuristic")
	fs.Bool("headless", true, "Run a locally launched browser headless")
	fs.Int64("width", 0, "Emulated mobile viewport width for a local browser")
	fs.Int64("height", 0, "Emulated mobile viewport height for a local browser")
}

// BindFlags binds the flags registered by RegisterFlags to v. Only flags
// set on the command line override the file and the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}

// Load reads the YAML file at path (when not empty) into v and decodes the
// result. A missing explicit file is an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the current state of v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.Chrome.Family = strings.ToLower(strings.TrimSpace(cfg.Chrome.Family))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.Wrap(ErrInvalid, "broker is required")
	}
	if _, err := url.Parse(c.Broker); err != nil {
		return errors.Wrapf(ErrInvalid, "broker %q: %v", c.Broker, err)
	}
	if c.Heartbeat < 0 {
		return errors.Wrapf(ErrInvalid, "heartbeat %v must not be negative", c.Heartbeat)
	}
	if c.BufferSize < 1 {
		return errors.Wrapf(ErrInvalid, "buffer_size %d must be positive", c.BufferSize)
	}
	switch c.Chrome.Family {
	case "", "auto", string(platform.FamilyViewport), string(platform.FamilyHeuristic):
	default:
		return errors.Wrapf(ErrInvalid, "chrome.family %q must be auto, viewport or heuristic", c.Chrome.Family)
	}
	if c.Chrome.Width < 0 || c.Chrome.Height < 0 {
		return errors.Wrap(ErrInvalid, "chrome emulation size must not be negative")
	}
	if err := c.LogicTuning().Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "tuning"), ErrInvalid)
	}
	return nil
}

// LogicTuning returns the detector tuning with defaults filled in.
func (c Config) LogicTuning() logic.Tuning {
	return logic.Tuning{
		ViewportRatioThreshold: c.Tuning.ViewportRatioThreshold,
		FallbackDeltaRatio:     c.Tuning.FallbackDeltaRatio,
		BaselineRatio:          c.Tuning.BaselineRatio,
		FocusGrace:             c.Tuning.FocusGrace,
		OrientationSettle:      c.Tuning.OrientationSettle,
		ResizeQuiet:            c.Tuning.ResizeQuiet,
		ResizeSettle:           c.Tuning.ResizeSettle,
		VisibilityLag:          c.Tuning.VisibilityLag,
	}.WithDefaults()
}

// ChromeOptions returns the browser attachment options.
func (c Config) ChromeOptions() platform.ChromeOptions {
	family := c.Chrome.Family
	if family == "auto" {
		family = ""
	}
	return platform.ChromeOptions{
		RemoteURL:     c.Chrome.RemoteURL,
		URL:           c.Chrome.URL,
		Family:        family,
		Headless:      c.Chrome.Headless,
		EmulateWidth:  c.Chrome.Width,
		EmulateHeight: c.Chrome.Height,
	}
}

// Target describes the watched browser for display.
func (c Config) Target() string {
	if c.Chrome.RemoteURL != "" {
		return c.Chrome.RemoteURL
	}
	return c.Chrome.URL
}

// WSBrokerURL converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" and
// empty disable the live UI.
func (c Config) WSBrokerURL() string {
	switch c.WSBroker {
	case "", "off":
		return ""
	case "=broker":
	default:
		return c.WSBroker
	}
	u, err := url.Parse(c.Broker)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

// YAML renders the effective configuration with human readable durations.
func (c Config) YAML() ([]byte, error) {
	t := c.LogicTuning()
	doc := map[string]any{
		"broker":      c.Broker,
		"http":        c.HTTP,
		"ws_broker":   c.WSBroker,
		"heartbeat":   c.Heartbeat.String(),
		"buffer_size": c.BufferSize,
		"chrome": map[string]any{
			"remote_url": c.Chrome.RemoteURL,
			"url":        c.Chrome.URL,
			"family":     c.Chrome.Family,
			"headless":   c.Chrome.Headless,
			"width":      c.Chrome.Width,
			"height":     c.Chrome.Height,
		},
		"tuning": map[string]any{
			"viewport_ratio_threshold": t.ViewportRatioThreshold,
			"fallback_delta_ratio":     t.FallbackDeltaRatio,
			"baseline_ratio":           t.BaselineRatio,
			"focus_grace":              t.FocusGrace.String(),
			"orientation_settle":       t.OrientationSettle.String(),
			"resize_quiet":             t.ResizeQuiet.String(),
			"resize_settle":            t.ResizeSettle.String(),
			"visibility_lag":           t.VisibilityLag.String(),
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return out, nil
}

// Watch reloads the config file whenever it changes and hands every valid
// result to onChange. Invalid edits are logged and ignored. onChange runs on
// the watcher goroutine. Watch does nothing when no file was loaded.
func Watch(v *viper.Viper, logger pslog.Logger, onChange func(Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	log := logger.With("component", "config")
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			log.Warn("config reload rejected", "file", e.Name, "err", err)
			return
		}
		log.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}
