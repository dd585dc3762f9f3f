package main

import (
	"os"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/clock"
	"github.com/sweeney/keyboard-sensor/internal/config"
	"github.com/sweeney/keyboard-sensor/internal/keyboard"
	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/mqtt"
	"github.com/sweeney/keyboard-sensor/internal/platform"
	"github.com/sweeney/keyboard-sensor/internal/status"
)

// errBrowserGone is returned by runLoop when the watched tab disappears.
var errBrowserGone = errors.New("browser disconnected")

// daemon ties the detector to the publisher and the status tracker. All
// methods run on the loop goroutine.
type daemon struct {
	p          platform.Platform
	clk        clock.Clock
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	recorder   *logic.Recorder
	log        pslog.Logger

	cfg   config.Config
	unsub keyboard.Unsubscribe
}

func newDaemon(p platform.Platform, clk clock.Clock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, cfg config.Config, logger pslog.Logger) *daemon {
	return &daemon{
		p:          p,
		clk:        clk,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		recorder:   logic.NewRecorder(clk.Now()),
		log:        logger,
		cfg:        cfg,
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTP,
		WSBroker:    cfg.WSBrokerURL(),
		Target:      cfg.Target(),
		Family:      cfg.ChromeOptions().Family,
	}
}

// subscribe starts a detector subscription with the current tuning.
func (d *daemon) subscribe() {
	det := keyboard.New(d.p, d.clk,
		keyboard.WithTuning(d.cfg.LogicTuning()),
		keyboard.WithLogger(d.log),
		keyboard.WithBaselineListener(d.tracker.SetBaseline),
	)
	d.tracker.SetDetector(det.Strategy(), det.IsSupported())
	if err := det.Check(); err != nil {
		d.log.Warn("keyboard detection unavailable", "err", err)
	}
	d.unsub = det.Subscribe(d.onState)
	d.log.Info("detector subscribed", "strategy", det.Strategy())
}

func (d *daemon) onState(s logic.State) {
	event := d.recorder.Record(s, d.clk.Now())
	if event == nil {
		return
	}
	d.log.Info("event", "type", event.Type, "state", event.State)
	if err := d.publisher.Publish(*event); err != nil {
		// Don't crash on publish failure
		d.log.Warn("publish error", "err", err)
	}
	d.tracker.Update(d.recorder.CurrentState(), d.recorder.EventCountsSnapshot())
}

// reconfigure applies a reloaded configuration. The detector is restarted
// only when the tuning changed, keeping learned baselines otherwise. The
// recorder keeps its state so a restarted detector that re-reports the
// current state publishes nothing. Broker, HTTP and browser changes need a
// restart.
func (d *daemon) reconfigure(cfg config.Config) {
	if cfg.Broker != d.cfg.Broker || cfg.HTTP != d.cfg.HTTP || cfg.Chrome != d.cfg.Chrome {
		d.log.Warn("broker, http and chrome changes apply after restart")
	}
	retune := cfg.LogicTuning() != d.cfg.LogicTuning()
	d.cfg = cfg
	d.tracker.SetConfig(statusConfig(cfg))

	if retune {
		if d.unsub != nil {
			d.unsub()
		}
		d.subscribe()
	}

	d.publishStatus(mqtt.EventReconfigure, "", false)
}

// tick handles periodic work: heartbeat and connectivity.
func (d *daemon) tick(t time.Time) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	hb := d.recorder.CheckHeartbeat(t, d.cfg.Heartbeat)
	if hb == nil {
		return
	}
	d.log.Info("heartbeat", "uptime", hb.Uptime, "shown", hb.Counts.Shown, "hidden", hb.Counts.Hidden)
	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}
	d.publishStatus(mqtt.EventHeartbeat, "", false)
}

func (d *daemon) startup() {
	d.publishStatus(mqtt.EventStartup, "", true)
}

func (d *daemon) shutdown(reason string) {
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	d.publishStatus(mqtt.EventShutdown, reason, true)
}

// publishStatus sends a system event carrying the full status snapshot.
func (d *daemon) publishStatus(name, reason string, retained bool) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  d.clk.Now(),
		Event:      name,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, name, reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.log.Warn("system event publish error", "event", name, "err", err)
		return
	}
	d.log.Info("published system event", "event", name)
}

// runLoop is the daemon's event loop. Engine tasks, ticks and signals are
// handled one at a time on the calling goroutine.
func runLoop(d *daemon, tasks <-chan func(), tick <-chan time.Time, sig <-chan os.Signal, browserDone <-chan struct{}) error {
	for {
		select {
		case task := <-tasks:
			task()

		case t := <-tick:
			d.tick(t)

		case s := <-sig:
			d.log.Info("shutting down", "signal", s)
			d.shutdown(signalName(s))
			return nil

		case <-browserDone:
			d.log.Error("browser disconnected")
			d.shutdown("BROWSER_GONE")
			return errBrowserGone
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
