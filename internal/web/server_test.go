package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeEvents struct {
	events    []logic.Event
	err       error
	lastLimit int
}

func (f *fakeEvents) Recent(_ context.Context, limit int) ([]logic.Event, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func sampleEvents() *fakeEvents {
	return &fakeEvents{events: []logic.Event{
		{ID: "b", Timestamp: start.Add(5 * time.Second), Type: logic.EventDenied, State: logic.StateNegative, Label: "no mask", Confidence: 0.8},
		{ID: "a", Timestamp: start.Add(2 * time.Second), Type: logic.EventGranted, State: logic.StatePositive, Label: "mask", Confidence: 0.9},
	}}
}

func newTestServer(t *testing.T, events EventSource, metrics http.Handler) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		Threshold:    0.7,
		GrantDwellMs: 2000,
		DenyDwellMs:  2000,
		HeartbeatMs:  900000,
		Camera:       "0",
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, events, metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
	}
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)
	tr.Update(logic.StatePositive, start.Add(3*time.Second),
		logic.Classification{Kind: logic.KindPositive, Label: "mask", Confidence: 0.92},
		logic.EventCounts{Granted: 5, Denied: 2}, 15, 300)
	tr.SetMQTTConnected(true)

	var sj status.StatusJSON
	resp := getJSON(t, ts.URL+"/index.json", &sj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if sj.Status.State != "POSITIVE" {
		t.Errorf("State: got %q, want POSITIVE", sj.Status.State)
	}
	if sj.Status.Last.Label != "mask" {
		t.Errorf("Last.Label: got %q", sj.Status.Last.Label)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Granted != 5 || sj.Status.Counts.Denied != 2 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Frames != 300 {
		t.Errorf("Frames: got %d, want 300", sj.Status.Frames)
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestJSONUnknownBeforeFirstTransition(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestEventsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, sampleEvents(), nil)

	var ej EventsJSON
	resp := getJSON(t, ts.URL+"/events.json", &ej)

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if len(ej.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(ej.Events))
	}
	first := ej.Events[0]
	if first.ID != "b" || first.Event != "ACCESS_DENIED" || first.State != "NEGATIVE" {
		t.Errorf("unexpected first event %+v", first)
	}
	if first.Timestamp != "2026-01-01T00:00:05Z" {
		t.Errorf("Timestamp: got %q", first.Timestamp)
	}
}

func TestEventsLimit(t *testing.T) {
	events := sampleEvents()
	ts, _ := newTestServer(t, events, nil)

	var ej EventsJSON
	getJSON(t, ts.URL+"/events.json?limit=1", &ej)
	if len(ej.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(ej.Events))
	}

	getJSON(t, ts.URL+"/events.json?limit=100000", nil)
	if events.lastLimit != maxEventLimit {
		t.Errorf("limit should be capped at %d, got %d", maxEventLimit, events.lastLimit)
	}

	getJSON(t, ts.URL+"/events.json", nil)
	if events.lastLimit != defaultEventLimit {
		t.Errorf("default limit: got %d, want %d", events.lastLimit, defaultEventLimit)
	}
}

func TestEventsBadLimit(t *testing.T) {
	ts, _ := newTestServer(t, sampleEvents(), nil)

	for _, q := range []string{"abc", "0", "-3"} {
		resp := getJSON(t, ts.URL+"/events.json?limit="+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestEventsEmptyIsArray(t *testing.T) {
	ts, _ := newTestServer(t, &fakeEvents{}, nil)

	resp, err := http.Get(ts.URL + "/events.json")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"events":[]`) {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestEventsStoreError(t *testing.T) {
	ts, _ := newTestServer(t, &fakeEvents{err: errors.New("disk I/O error")}, nil)

	resp := getJSON(t, ts.URL+"/events.json", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestEventsDisabledWithoutStore(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp := getJSON(t, ts.URL+"/events.json", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "maskgate_frames_total 3\n")
	})
	ts, _ := newTestServer(t, nil, metrics)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "maskgate_frames_total") {
		t.Errorf("unexpected metrics body %q", body)
	}
}

func TestMetricsAbsentWithoutHandler(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp := getJSON(t, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, sampleEvents(), nil)
	tr.Update(logic.StateNegative, start, logic.None, logic.EventCounts{Denied: 1}, 12, 40)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	if !strings.Contains(page, `class="denied">NEGATIVE`) {
		t.Error("expected confirmed state in page")
	}
	if !strings.Contains(page, "Recent Transitions") || !strings.Contains(page, "ACCESS_GRANTED") {
		t.Error("expected recent transitions table")
	}
}

func TestHTMLSurvivesStoreError(t *testing.T) {
	ts, _ := newTestServer(t, &fakeEvents{err: errors.New("locked")}, nil)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp := getJSON(t, ts.URL+"/nonexistent", nil)
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)

	var sj1 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj1)
	if sj1.Status.MQTT.Connected {
		t.Error("expected MQTT disconnected initially")
	}

	tr.Update(logic.StateNegative, start.Add(time.Minute), logic.None, logic.EventCounts{Denied: 1}, 9, 10)
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj2)
	if sj2.Status.State != "NEGATIVE" {
		t.Errorf("State: got %q, want NEGATIVE", sj2.Status.State)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
