// Package driver runs the per-frame loop: read a frame, classify it, debounce
// it, actuate on confirmed transitions, render, and stop on quit, end of
// stream or context cancellation.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/mqtt"
	"github.com/sweeney/mask-gate/internal/observe"
	"github.com/sweeney/mask-gate/internal/status"
	"github.com/sweeney/mask-gate/internal/vision"
)

// StopReason says why Run returned.
type StopReason string

const (
	StopSignal      StopReason = "SIGNAL"
	StopQuit        StopReason = "QUIT"
	StopEndOfStream StopReason = "END_OF_STREAM"
)

// Actuator applies confirmed states. *actuator.Gateway implements it.
type Actuator interface {
	Apply(s logic.State) error
	Neutral() error
}

// EventStore persists confirmed transitions. *store.Store implements it.
type EventStore interface {
	Record(ctx context.Context, e logic.Event) error
}

// Config wires the loop's collaborators. Source, Detector, Classifier and
// Actuator are required; the rest are optional.
type Config struct {
	Source     vision.Source
	Detector   vision.Detector
	Classifier *logic.Classifier
	Dwell      logic.Dwell
	Actuator   Actuator

	// Renderer defaults to vision.Headless.
	Renderer vision.Renderer
	// Publisher defaults to mqtt.Discard.
	Publisher  mqtt.Publisher
	ConnStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	Store      EventStore
	Metrics    *observe.Metrics

	// Heartbeat is the HEARTBEAT system event interval; <= 0 disables it.
	Heartbeat time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to uuid.NewString.
	NewID func() string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Driver owns the controller and the loop counters. It is single-use and
// not safe for concurrent use.
type Driver struct {
	cfg        Config
	log        *slog.Logger
	controller *logic.Controller
	heartbeat  *logic.Heartbeat

	counts logic.EventCounts
	frames uint64
	fps    float64
}

// New validates cfg, fills defaults and creates the controller. The
// controller's dwell baseline is the time of this call.
func New(cfg Config) (*Driver, error) {
	var missing []error
	if cfg.Source == nil {
		missing = append(missing, errors.New("source is required"))
	}
	if cfg.Detector == nil {
		missing = append(missing, errors.New("detector is required"))
	}
	if cfg.Classifier == nil {
		missing = append(missing, errors.New("classifier is required"))
	}
	if cfg.Actuator == nil {
		missing = append(missing, errors.New("actuator is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}

	if cfg.Dwell.Positive == 0 {
		cfg.Dwell.Positive = logic.DefaultDwell
	}
	if cfg.Dwell.Negative == 0 {
		cfg.Dwell.Negative = logic.DefaultDwell
	}
	if cfg.Renderer == nil {
		cfg.Renderer = vision.Headless{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = mqtt.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	start := cfg.Now()
	return &Driver{
		cfg:        cfg,
		log:        cfg.Logger,
		controller: logic.NewController(cfg.Dwell, start),
		heartbeat:  logic.NewHeartbeat(start, cfg.Heartbeat),
	}, nil
}

// Run drives frames until ctx is cancelled, the renderer reports quit, or
// the source ends. Cancellation is checked once per frame. The indicator is
// set neutral before the first frame and again on exit, and a retained
// SHUTDOWN system event is published.
//
// A non-EOF read failure also ends the loop with StopEndOfStream; the
// underlying error is returned for logging.
func (d *Driver) Run(ctx context.Context) (StopReason, error) {
	if err := d.cfg.Actuator.Neutral(); err != nil {
		d.log.Warn("neutral indicator at start", "err", err)
	}

	reason, err := d.loop(ctx)

	d.shutdown(reason)
	return reason, err
}

func (d *Driver) loop(ctx context.Context) (StopReason, error) {
	for {
		if ctx.Err() != nil {
			return StopSignal, nil
		}

		began := d.cfg.Now()
		frame, err := d.cfg.Source.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return StopEndOfStream, nil
			}
			return StopEndOfStream, fmt.Errorf("read frame: %w", err)
		}
		d.frames++

		cl := d.classify(ctx, frame)

		now := d.cfg.Now()
		if state, changed := d.controller.Tick(cl, now); changed {
			d.transition(ctx, state, cl, now)
		}

		quit, err := d.cfg.Renderer.Render(frame, vision.Overlay{
			FPS:            d.fps,
			Classification: cl,
			State:          d.controller.Confirmed(),
		})
		if err != nil {
			d.log.Warn("render frame", "err", err)
		}

		end := d.cfg.Now()
		if elapsed := end.Sub(began); elapsed > 0 {
			d.fps = 1 / elapsed.Seconds()
			if d.cfg.Metrics != nil {
				d.cfg.Metrics.LoopFPS.Record(ctx, d.fps)
			}
		}

		d.updateTracker(cl)
		d.checkHeartbeat(end)

		if quit {
			return StopQuit, nil
		}
	}
}

// classify runs inference. A detector failure counts as no evidence.
func (d *Driver) classify(ctx context.Context, frame vision.Frame) logic.Classification {
	began := d.cfg.Now()
	raw, err := d.cfg.Detector.Detect(frame)
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordDetect(ctx, d.cfg.Now().Sub(began), err)
	}

	cl := logic.None
	if err != nil {
		d.log.Warn("detect", "frame", d.frames, "err", err)
	} else {
		cl = d.cfg.Classifier.Classify(raw)
	}

	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordFrame(ctx, cl.Kind)
	}
	return cl
}

// transition handles a confirmed change. The controller has already
// committed it; collaborator failures are logged and do not undo it.
func (d *Driver) transition(ctx context.Context, state logic.State, cl logic.Classification, now time.Time) {
	event := logic.NewEvent(d.cfg.NewID(), state, cl, now)
	d.counts.Add(state)

	d.log.Info("access transition",
		"event", event.Type,
		"state", state,
		"label", cl.Label,
		"confidence", cl.Confidence,
		"id", event.ID)

	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordTransition(ctx, state)
	}

	if err := d.cfg.Actuator.Apply(state); err != nil {
		d.log.Error("actuate", "state", state, "err", err)
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.ActuationErrors.Add(ctx, 1)
		}
	}

	if err := d.cfg.Publisher.Publish(event); err != nil {
		d.log.Warn("publish transition", "id", event.ID, "err", err)
	}

	if d.cfg.Store != nil {
		// Persist even if shutdown has begun.
		if err := d.cfg.Store.Record(context.WithoutCancel(ctx), event); err != nil {
			d.log.Warn("store transition", "id", event.ID, "err", err)
		}
	}
}

func (d *Driver) updateTracker(cl logic.Classification) {
	if d.cfg.Tracker == nil {
		return
	}
	d.cfg.Tracker.Update(d.controller.Confirmed(), d.controller.LastChange(), cl, d.counts, d.fps, d.frames)
	if d.cfg.ConnStatus != nil {
		d.cfg.Tracker.SetMQTTConnected(d.cfg.ConnStatus.IsConnected())
	}
}

func (d *Driver) checkHeartbeat(now time.Time) {
	hb := d.heartbeat.Check(now, d.counts)
	if hb == nil {
		return
	}
	d.log.Info("heartbeat",
		"uptime", hb.Uptime,
		"granted", hb.Counts.Granted,
		"denied", hb.Counts.Denied,
		"fps", d.fps)

	event := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if d.cfg.Tracker != nil {
		if net := status.NetworkFromEnv(); net != nil {
			d.cfg.Tracker.SetNetwork(net)
		}
		event.RawPayload = status.FormatStatusEvent(d.cfg.Tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := d.cfg.Publisher.PublishSystem(event); err != nil {
		d.log.Warn("publish heartbeat", "err", err)
	}
}

func (d *Driver) shutdown(reason StopReason) {
	d.log.Info("stopping", "reason", reason, "frames", d.frames,
		"granted", d.counts.Granted, "denied", d.counts.Denied)

	if err := d.cfg.Actuator.Neutral(); err != nil {
		d.log.Warn("neutral indicator at shutdown", "err", err)
	}

	event := mqtt.SystemEvent{
		Timestamp: d.cfg.Now(),
		Event:     "SHUTDOWN",
		Reason:    string(reason),
		Retained:  true,
	}
	if d.cfg.Tracker != nil {
		if d.cfg.ConnStatus != nil {
			d.cfg.Tracker.SetMQTTConnected(d.cfg.ConnStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(d.cfg.Tracker.Snapshot(), "SHUTDOWN", string(reason))
	}
	if err := d.cfg.Publisher.PublishSystem(event); err != nil {
		d.log.Warn("publish shutdown", "err", err)
	}
}

// Confirmed returns the controller's confirmed state.
func (d *Driver) Confirmed() logic.State {
	return d.controller.Confirmed()
}

// Counts returns the confirmed transitions so far.
func (d *Driver) Counts() logic.EventCounts {
	return d.counts
}
