package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyboard-sensor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.Broker)
	assert.Equal(t, ":80", cfg.HTTP)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
	assert.Equal(t, 100, cfg.BufferSize)
	assert.Equal(t, "auto", cfg.Chrome.Family)
	assert.True(t, cfg.Chrome.Headless)
	assert.Equal(t, logic.DefaultTuning(), cfg.LogicTuning())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
broker: tcp://mqtt.local:1883
heartbeat: 1m
chrome:
  remote_url: ws://127.0.0.1:9222/devtools/browser/abc
  family: Heuristic
tuning:
  focus_grace: 200ms
  baseline_ratio: 0.85
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://mqtt.local:1883", cfg.Broker)
	assert.Equal(t, time.Minute, cfg.Heartbeat)
	assert.Equal(t, "heuristic", cfg.Chrome.Family)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Target())

	tuning := cfg.LogicTuning()
	assert.Equal(t, 200*time.Millisecond, tuning.FocusGrace)
	assert.InDelta(t, 0.85, tuning.BaselineRatio, 1e-9)
	assert.Equal(t, time.Second, tuning.OrientationSettle)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "broker: tcp://file:1883\n")
	t.Setenv("KEYBOARD_SENSOR_BROKER", "tcp://env:1883")
	t.Setenv("KEYBOARD_SENSOR_CHROME_URL", "https://example.test/form")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.Broker)
	assert.Equal(t, "https://example.test/form", cfg.Chrome.URL)
}

func TestFlagsOverrideEverything(t *testing.T) {
	path := writeFile(t, "broker: tcp://file:1883\nheartbeat: 1m\n")
	t.Setenv("KEYBOARD_SENSOR_BROKER", "tcp://env:1883")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--broker", "tcp://flag:1883", "--family", "viewport"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://flag:1883", cfg.Broker)
	assert.Equal(t, "viewport", cfg.Chrome.Family)
	assert.Equal(t, time.Minute, cfg.Heartbeat, "unset flags do not mask the file")
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty broker", func(c *Config) { c.Broker = "" }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"unknown family", func(c *Config) { c.Chrome.Family = "tablet" }},
		{"negative size", func(c *Config) { c.Chrome.Width = -1 }},
		{"ratio too large", func(c *Config) { c.Tuning.ViewportRatioThreshold = 1.5 }},
		{"settle below grace", func(c *Config) {
			c.Tuning.FocusGrace = 2 * time.Second
			c.Tuning.OrientationSettle = time.Second
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
	assert.NoError(t, base.Validate())
}

func TestValidateKeepsTuningCause(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	cfg.Tuning.BaselineRatio = 2

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(err, logic.ErrInvalidTuning))
}

func TestChromeOptions(t *testing.T) {
	cfg := Config{Chrome: ChromeConfig{URL: "https://example.test", Family: "auto", Headless: true, Width: 390, Height: 844}}
	opts := cfg.ChromeOptions()
	assert.Equal(t, platform.ChromeOptions{
		URL:           "https://example.test",
		Headless:      true,
		EmulateWidth:  390,
		EmulateHeight: 844,
	}, opts)
	assert.Equal(t, "https://example.test", cfg.Target())

	cfg.Chrome.Family = "viewport"
	assert.Equal(t, "viewport", cfg.ChromeOptions().Family)
}

func TestWSBrokerURL(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"=broker", "tcp://mqtt.local", "ws://mqtt.local:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"", "tcp://192.168.1.200:1883", ""},
		{"wss://example.test/mqtt", "tcp://192.168.1.200:1883", "wss://example.test/mqtt"},
		{"=broker", "::bad", ""},
	}
	for _, tt := range tests {
		got := Config{WSBroker: tt.ws, Broker: tt.broker}.WSBrokerURL()
		assert.Equal(t, tt.want, got, "ws=%q broker=%q", tt.ws, tt.broker)
	}
}

func TestYAML(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "15m0s", doc["heartbeat"])
	tuning := doc["tuning"].(map[string]any)
	assert.Equal(t, "300ms", tuning["focus_grace"])
	assert.Equal(t, "1s", tuning["orientation_settle"])

	// The rendered file loads back to the same configuration.
	again, err := Load(New(), writeFile(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, "broker: tcp://one:1883\n")
	v := New()
	_, err := Load(v, path)
	require.NoError(t, err)

	got := make(chan Config, 4)
	Watch(v, pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured}), func(c Config) { got <- c })

	require.NoError(t, os.WriteFile(path, []byte("broker: tcp://two:1883\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Broker == "tcp://two:1883" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatchWithoutFile(t *testing.T) {
	v := New()
	_, err := Load(v, "")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		Watch(v, pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured}), func(Config) {})
	})
}
