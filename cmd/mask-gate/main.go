// Command mask-gate watches a camera for masked or unmasked faces and drives
// an allow/deny light and audio cue, publishing confirmed transitions to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/mask-gate/internal/actuator"
	"github.com/sweeney/mask-gate/internal/audio/flacplayer"
	"github.com/sweeney/mask-gate/internal/config"
	"github.com/sweeney/mask-gate/internal/driver"
	"github.com/sweeney/mask-gate/internal/gpio"
	"github.com/sweeney/mask-gate/internal/logging"
	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/mqtt"
	"github.com/sweeney/mask-gate/internal/observe"
	"github.com/sweeney/mask-gate/internal/status"
	"github.com/sweeney/mask-gate/internal/store"
	"github.com/sweeney/mask-gate/internal/vision"
	"github.com/sweeney/mask-gate/internal/vision/cv"
	"github.com/sweeney/mask-gate/internal/web"
)

// overrides holds command-line values that replace config file settings.
// Only flags present on the command line are applied.
type overrides struct {
	modelDir  string
	threshold float64
	dwell     time.Duration
	headless  bool
	broker    string
	httpAddr  string
	logLevel  string
	set       map[string]bool
}

func (o overrides) apply(cfg *config.Config) {
	if o.set["modeldir"] {
		cfg.Detector.ModelDir = o.modelDir
	}
	if o.set["threshold"] {
		cfg.Detector.Threshold = o.threshold
	}
	if o.set["dwell"] {
		cfg.Controller.Dwell = o.dwell
		cfg.Controller.GrantDwell = 0
		cfg.Controller.DenyDwell = 0
	}
	if o.set["headless"] {
		cfg.Display.Enabled = !o.headless
	}
	if o.set["broker"] {
		cfg.MQTT.Broker = o.broker
	}
	if o.set["http"] {
		cfg.HTTP = o.httpAddr
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.logLevel
	}
}

func main() {
	var o overrides
	configPath := flag.String("config", "", "YAML config file (built-in defaults when empty)")
	flag.StringVar(&o.modelDir, "modeldir", "", "Directory holding detect.tflite and labelmap.txt")
	flag.Float64Var(&o.threshold, "threshold", logic.DefaultThreshold, "Minimum detection score (exclusive)")
	flag.DurationVar(&o.dwell, "dwell", logic.DefaultDwell, "Minimum time between confirmed transitions")
	flag.BoolVar(&o.headless, "headless", false, "Run without the preview window")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty disables MQTT)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	printState := flag.Bool("print-state", false, "Print the resolved configuration and exit")

	flag.Parse()

	o.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	if *printState {
		printConfig(os.Stdout, cfg)
		return
	}

	logging.Init(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		c := config.Default()
		cfg = &c
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	o.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// printConfig writes the resolved hardware and model settings.
func printConfig(w io.Writer, cfg *config.Config) {
	dwell := cfg.Dwell()
	fmt.Fprintf(w, "model: %s\n", cfg.ModelPath())
	fmt.Fprintf(w, "labels: %s (positive %q, negative %q)\n", cfg.LabelMapPath(), cfg.Labels.Positive, cfg.Labels.Negative)
	fmt.Fprintf(w, "threshold: %v\n", cfg.Detector.Threshold)
	fmt.Fprintf(w, "dwell: grant %v, deny %v\n", dwell.Positive, dwell.Negative)
	fmt.Fprintf(w, "gpio: %s allow=%d deny=%d\n", cfg.GPIO.Chip, cfg.GPIO.AllowPin, cfg.GPIO.DenyPin)
	fmt.Fprintf(w, "audio: granted=%s denied=%s\n", cfg.Audio.Granted, cfg.Audio.Denied)
	fmt.Fprintf(w, "camera: %s display=%v\n", cfg.Camera.Device, cfg.Display.Enabled)
}

func statusConfig(cfg *config.Config) status.Config {
	dwell := cfg.Dwell()
	return status.Config{
		Threshold:    cfg.Detector.Threshold,
		GrantDwellMs: dwell.Positive.Milliseconds(),
		DenyDwellMs:  dwell.Negative.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Camera:       cfg.Camera.Device,
		Headless:     !cfg.Display.Enabled,
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP,
	}
}

// statusServer is the part of web.Server that serveStatus drives.
type statusServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serveStatus runs srv until ctx is done. A listen failure is logged and
// returned from Wait but does not cancel ctx, so the frame loop keeps
// running without the status page.
func serveStatus(ctx context.Context, srv statusServer) *errgroup.Group {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g
}

// publisher is what the loop needs from the MQTT side.
type publisher interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

func openPublisher(cfg *config.Config) publisher {
	if cfg.MQTT.Broker == "" {
		return mqtt.Discard{}
	}
	return mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
}

func run(cfg *config.Config) error {
	labels, err := vision.LoadLabels(cfg.LabelMapPath())
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	indicator, err := gpio.NewRealIndicator(cfg.GPIO.Chip, cfg.GPIO.AllowPin, cfg.GPIO.DenyPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer indicator.Close()

	player, err := flacplayer.New(cfg.Audio.Granted, cfg.Audio.Denied)
	if err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer player.Close()

	camera, err := cv.OpenCamera(cfg.Camera.Device)
	if err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	defer camera.Close()
	width, height := camera.Size()

	detector, err := cv.NewDetector(cv.DetectorConfig{
		ModelPath:   cfg.ModelPath(),
		InputWidth:  cfg.Detector.InputWidth,
		InputHeight: cfg.Detector.InputHeight,
		FloatModel:  cfg.Detector.FloatModel,
	})
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}
	defer detector.Close()

	var renderer vision.Renderer = vision.Headless{}
	if cfg.Display.Enabled {
		renderer = cv.NewDisplay(cfg.Display.Title)
	}
	defer renderer.Close()

	pub := openPublisher(cfg)
	defer pub.Close()

	var events driver.EventStore
	var history web.EventSource
	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer db.Close()
		events, history = db, db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mp, shutdownMetrics, err := observe.InitProvider(ctx)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := status.NetworkFromEnv(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		slog.Warn("publish startup event", "err", err)
	}

	d, err := driver.New(driver.Config{
		Source:   camera,
		Detector: detector,
		Classifier: logic.NewClassifier(logic.ClassifierConfig{
			Threshold:     cfg.Detector.Threshold,
			Labels:        labels,
			PositiveLabel: cfg.Labels.Positive,
			NegativeLabel: cfg.Labels.Negative,
		}),
		Dwell:      cfg.Dwell(),
		Actuator:   actuator.New(indicator, player),
		Renderer:   renderer,
		Publisher:  pub,
		ConnStatus: pub,
		Tracker:    tracker,
		Store:      events,
		Metrics:    metrics,
		Heartbeat:  cfg.Heartbeat,
	})
	if err != nil {
		return err
	}

	g := new(errgroup.Group)
	if cfg.HTTP != "" {
		g = serveStatus(ctx, web.New(cfg.HTTP, tracker, history, promhttp.Handler()))
		slog.Info("http status server listening", "addr", cfg.HTTP)
	}

	dwell := cfg.Dwell()
	slog.Info("started",
		"camera", cfg.Camera.Device,
		"size", fmt.Sprintf("%dx%d", width, height),
		"model", cfg.ModelPath(),
		"labels", len(labels),
		"threshold", cfg.Detector.Threshold,
		"grant_dwell", dwell.Positive,
		"deny_dwell", dwell.Negative,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Heartbeat)

	// The loop stays on this goroutine; OpenCV windows want the main thread.
	reason, runErr := d.Run(ctx)
	if runErr != nil {
		slog.Warn("video source failed", "err", runErr)
	}
	slog.Info("stopped", "reason", reason)

	stop()
	return g.Wait()
}
