// Command keyboard-sensor watches a browser tab for the on-screen keyboard
// and publishes its state changes to MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/clock"
	"github.com/sweeney/keyboard-sensor/internal/config"
	"github.com/sweeney/keyboard-sensor/internal/eventloop"
	"github.com/sweeney/keyboard-sensor/internal/keyboard"
	"github.com/sweeney/keyboard-sensor/internal/mqtt"
	"github.com/sweeney/keyboard-sensor/internal/platform"
	"github.com/sweeney/keyboard-sensor/internal/status"
	"github.com/sweeney/keyboard-sensor/internal/web"
)

// tickInterval paces heartbeat checks and connectivity refreshes.
const tickInterval = time.Second

func main() {
	os.Exit(submain(context.Background()))
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("keyboard-sensor command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "keyboard-sensor",
		Short:         "Publish on-screen keyboard visibility of a browser tab to MQTT",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (watched for changes)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Watch the browser and publish keyboard events (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Attach to the browser, print capabilities and current state, and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			return probe(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return root
}

func loadConfig(cmd *cobra.Command, path string) (*viper.Viper, config.Config, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, config.Config{}, err
	}
	return v, cfg, nil
}

func runCommand(cmd *cobra.Command, cfgPath string) error {
	v, cfg, err := loadConfig(cmd, cfgPath)
	if err != nil {
		return err
	}
	return run(cmd.Context(), v, cfg)
}

func run(ctx context.Context, v *viper.Viper, cfg config.Config) error {
	logger := pslog.Ctx(ctx)

	loop := eventloop.New(256)
	defer loop.Close()
	post := func(fn func()) { loop.Post(fn) }

	// Attach to the browser
	browser, err := platform.NewChrome(ctx, loop.TryPost, cfg.ChromeOptions(), logger)
	if err != nil {
		return errors.Wrap(err, "init browser")
	}
	defer browser.Close()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Config{Broker: cfg.Broker, BufferSize: cfg.BufferSize}, logger)
	if err != nil {
		return errors.Wrap(err, "init mqtt")
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	d := newDaemon(browser, clock.NewLoop(post), publisher, publisher, tracker, cfg, logger)
	d.subscribe()
	d.startup()

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP)
	}

	config.Watch(v, logger, func(c config.Config) {
		loop.Post(func() { d.reconfigure(c) })
	})

	logger.Info("started", "broker", cfg.Broker, "heartbeat", cfg.Heartbeat, "target", cfg.Target())

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(d, loop.Tasks(), ticker.C, sigCh, browser.Done())
}

func probe(ctx context.Context, w io.Writer, cfg config.Config) error {
	// Nothing drains this loop; browser events beyond its capacity are dropped.
	loop := eventloop.New(16)
	defer loop.Close()
	post := func(fn func()) { loop.TryPost(fn) }

	browser, err := platform.NewChrome(ctx, loop.TryPost, cfg.ChromeOptions(), pslog.Ctx(ctx))
	if err != nil {
		return errors.Wrap(err, "init browser")
	}
	defer browser.Close()

	det := keyboard.New(browser, clock.NewLoop(post), keyboard.WithTuning(cfg.LogicTuning()))
	printProbe(w, browser, det)
	return nil
}

func printProbe(w io.Writer, p platform.Platform, det *keyboard.Detector) {
	caps := p.Probe()
	fmt.Fprintf(w, "family: %s\n", caps.Family)
	fmt.Fprintf(w, "visual viewport: %t\n", caps.HasVisualViewport)
	fmt.Fprintf(w, "strategy: %s\n", det.Strategy())
	fmt.Fprintf(w, "supported: %t\n", det.IsSupported())
	fmt.Fprintf(w, "window: %dx%d (avail height %d)\n", p.InnerWidth(), p.InnerHeight(), p.AvailHeight())
	fmt.Fprintf(w, "orientation: %s\n", p.Orientation())
	fmt.Fprintf(w, "document: %s\n", p.Visibility())
	fmt.Fprintf(w, "focused: %t\n", p.HasFocus())
}
