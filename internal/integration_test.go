package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/mask-gate/internal/actuator"
	"github.com/sweeney/mask-gate/internal/audio"
	"github.com/sweeney/mask-gate/internal/driver"
	"github.com/sweeney/mask-gate/internal/gpio"
	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/mqtt"
	"github.com/sweeney/mask-gate/internal/status"
	"github.com/sweeney/mask-gate/internal/store"
	"github.com/sweeney/mask-gate/internal/vision"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// stepClock advances by step each time a frame is read.
type stepClock struct {
	now  time.Time
	step time.Duration
}

type clockedSource struct {
	*vision.FakeSource
	clock *stepClock
}

func (s *clockedSource) Read() (vision.Frame, error) {
	f, err := s.FakeSource.Read()
	if err == nil {
		s.clock.now = s.clock.now.Add(s.clock.step)
	}
	return f, err
}

// sequence returns detector output for a scripted run of labels at 10 fps.
// "" means nothing detected.
func sequence(labels map[string]int, runs ...run) []logic.RawResult {
	var out []logic.RawResult
	for _, r := range runs {
		for i := 0; i < r.frames; i++ {
			if r.label == "" {
				out = append(out, logic.RawResult{})
				continue
			}
			out = append(out, logic.RawResult{
				Boxes:   []logic.Box{{YMin: 0.2, XMin: 0.3, YMax: 0.7, XMax: 0.6}},
				Classes: []int{labels[r.label]},
				Scores:  []float64{0.88},
			})
		}
	}
	return out
}

type run = struct {
	label  string
	frames int
}

// TestIntegrationFullFlow drives the loop from label map to stored events:
// nobody -> masked -> unmasked -> nobody.
func TestIntegrationFullFlow(t *testing.T) {
	labels, err := vision.ReadLabels(strings.NewReader("mask\nno mask\n"))
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	index := map[string]int{}
	for i, l := range labels {
		index[l] = i
	}

	script := sequence(index,
		run{"", 10},         // 0.1s - 1.0s
		run{"mask", 30},     // 1.1s - 4.0s: grant at 2.1s
		run{"no mask", 30},  // 4.1s - 7.0s: deny at 4.2s
		run{"", 20},         // 7.1s - 9.0s: no change
	)

	clock := &stepClock{now: startTime, step: 100 * time.Millisecond}
	source := &clockedSource{FakeSource: vision.NewFakeSource(len(script)), clock: clock}
	indicator := gpio.NewFakeIndicator()
	player := audio.NewFakePlayer()
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(startTime, status.Config{Threshold: logic.DefaultThreshold})

	db, err := store.Open(filepath.Join(t.TempDir(), "gate.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer db.Close()

	d, err := driver.New(driver.Config{
		Source:   source,
		Detector: vision.NewFakeDetector(script...),
		Classifier: logic.NewClassifier(logic.ClassifierConfig{
			Threshold: logic.DefaultThreshold,
			Labels:    labels,
		}),
		Dwell:     logic.SymmetricDwell(logic.DefaultDwell),
		Actuator:  actuator.New(indicator, player),
		Publisher: publisher,
		Tracker:   tracker,
		Store:     db,
		Now:       func() time.Time { return clock.now },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}

	reason, err := d.Run(context.Background())
	if err != nil || reason != driver.StopEndOfStream {
		t.Fatalf("Run: %s, %v", reason, err)
	}

	if len(publisher.Events) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(publisher.Events))
	}
	if publisher.Events[0].Type != logic.EventGranted || !publisher.Events[0].Timestamp.Equal(startTime.Add(2100*time.Millisecond)) {
		t.Errorf("event 0: got %+v", publisher.Events[0])
	}
	if publisher.Events[1].Type != logic.EventDenied || !publisher.Events[1].Timestamp.Equal(startTime.Add(4200*time.Millisecond)) {
		t.Errorf("event 1: got %+v", publisher.Events[1])
	}

	if got := player.Played; len(got) != 2 || got[0] != audio.ClipGranted || got[1] != audio.ClipDenied {
		t.Errorf("cues: got %v", got)
	}
	if indicator.Current() != gpio.LightOff {
		t.Errorf("expected neutral light after shutdown, got %s", indicator.Current())
	}

	stored, err := db.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(stored) != 2 || stored[0].ID != publisher.Events[1].ID || stored[1].ID != publisher.Events[0].ID {
		t.Errorf("stored events do not match published ones: %+v", stored)
	}

	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Access.ID == "" || parsed.Access.Timestamp == "" {
			t.Errorf("payload %d: missing id or timestamp", i)
		}
	}

	snap := tracker.Snapshot()
	if snap.State != logic.StateNegative || snap.Counts.Granted != 1 || snap.Counts.Denied != 1 {
		t.Errorf("tracker: got state %s counts %+v", snap.State, snap.Counts)
	}
	if publisher.Counts != snap.Counts {
		t.Errorf("published tallies %+v differ from tracker %+v", publisher.Counts, snap.Counts)
	}
	if len(publisher.Retained) != 1 || publisher.Retained[0] != "SHUTDOWN" {
		t.Errorf("expected retained SHUTDOWN, got %v", publisher.Retained)
	}
}

// TestIntegrationNoActuationWithoutEvidence verifies an empty scene never
// drives the lights or the speaker.
func TestIntegrationNoActuationWithoutEvidence(t *testing.T) {
	clock := &stepClock{now: startTime, step: 100 * time.Millisecond}
	indicator := gpio.NewFakeIndicator()
	player := audio.NewFakePlayer()
	publisher := mqtt.NewFakePublisher()

	d, err := driver.New(driver.Config{
		Source:     &clockedSource{FakeSource: vision.NewFakeSource(600), clock: clock},
		Detector:   vision.NewFakeDetector(),
		Classifier: logic.NewClassifier(logic.ClassifierConfig{Threshold: 0.7, Labels: []string{"mask", "no mask"}}),
		Dwell:      logic.SymmetricDwell(logic.DefaultDwell),
		Actuator:   actuator.New(indicator, player),
		Publisher:  publisher,
		Now:        func() time.Time { return clock.now },
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	d.Run(context.Background())

	if len(publisher.Events) != 0 || len(player.Played) != 0 {
		t.Errorf("expected no activity, got %d events %d cues", len(publisher.Events), len(player.Played))
	}
	for _, l := range indicator.Lights {
		if l != gpio.LightOff {
			t.Errorf("unexpected light %s", l)
		}
	}
	if len(publisher.SystemEvents) != 1 || publisher.SystemEvents[0].Reason != "END_OF_STREAM" {
		t.Errorf("expected END_OF_STREAM shutdown, got %+v", publisher.SystemEvents)
	}
}
