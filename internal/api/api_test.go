package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/weatherslots/internal/events"
	"github.com/friendsincode/weatherslots/internal/logbuffer"
	"github.com/friendsincode/weatherslots/internal/reveal"
	"github.com/friendsincode/weatherslots/internal/weather"
)

// heldTimers keeps callbacks until the test fires them.
type heldTimers struct {
	mu      sync.Mutex
	pending []func()
}

func (h *heldTimers) AfterFunc(_ time.Duration, f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, f)
}

// FireAll runs pending callbacks in scheduling order.
func (h *heldTimers) FireAll() {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

type testEnv struct {
	router http.Handler
	timers *heldTimers
	logs   *logbuffer.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	timers := &heldTimers{}
	e := newTestEnvWithTimers(t, timers)
	e.timers = timers
	return e
}

// newTestEnvWithTimers builds an env whose sessions use timers; nil means
// real timers.
func newTestEnvWithTimers(t *testing.T, timers reveal.Timers) *testEnv {
	t.Helper()
	bus := events.NewBus()
	logs := logbuffer.New(100)
	logger := zerolog.New(logbuffer.NewWriter(logs))

	registry := reveal.NewRegistry(reveal.RegistryConfig{
		MinPct: 0,
		MaxPct: 100,
		Timers: timers,
	}, bus, logger)

	r := chi.NewRouter()
	New(registry, bus, logs, logger).Routes(r)
	return &testEnv{router: r, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, e *testEnv, body string) reveal.Snapshot {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/v1/sessions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status = %d body=%s", rr.Code, rr.Body.String())
	}
	return decode[reveal.Snapshot](t, rr)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/api/v1/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestCatalogRoutes(t *testing.T) {
	e := newTestEnv(t)

	presets := decode[struct {
		Rain   []weather.Preset `json:"rain"`
		Dry    []weather.Preset `json:"dry"`
		Random weather.Preset   `json:"random"`
	}](t, e.do(t, http.MethodGet, "/api/v1/presets", ""))
	if len(presets.Rain) != 4 || len(presets.Dry) != 4 || presets.Random.ID != "RAND" {
		t.Fatalf("unexpected presets: %+v", presets)
	}

	tracks := decode[map[string][]map[string]string](t, e.do(t, http.MethodGet, "/api/v1/tracks", ""))
	if len(tracks["tracks"]) != 10 {
		t.Fatalf("tracks = %d, want 10", len(tracks["tracks"]))
	}

	profiles := decode[map[string][]reveal.Profile](t, e.do(t, http.MethodGet, "/api/v1/profiles", ""))
	if len(profiles["profiles"]) != 2 {
		t.Fatalf("profiles = %+v", profiles)
	}
}

func TestGenerate(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		query  string
		status int
		lo, hi int
	}{
		{name: "defaults", query: "", status: http.StatusOK, lo: 0, hi: 100},
		{name: "reversed band", query: "?min=80&max=30", status: http.StatusOK, lo: 30, hi: 80},
		{name: "all rain", query: "?min=100&max=100", status: http.StatusOK, lo: 100, hi: 100},
		{name: "bad min", query: "?min=lots", status: http.StatusBadRequest},
		{name: "empty max uses default", query: "?max=", status: http.StatusOK, lo: 0, hi: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, http.MethodGet, "/api/v1/weather"+tt.query, "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			res := decode[weather.Result](t, rr)
			if res.RainPercent < tt.lo || res.RainPercent > tt.hi {
				t.Fatalf("rain percent %d outside [%d, %d]", res.RainPercent, tt.lo, tt.hi)
			}
			if len(res.RainIndices) != res.RainSlots {
				t.Fatalf("indices %v do not match rain slots %d", res.RainIndices, res.RainSlots)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	snap := createSession(t, e, `{"track":"fuji","profile":"slow","min_pct":100,"max_pct":100}`)
	if snap.TrackID != "fuji" || snap.Profile != "slow" || snap.HasStarted {
		t.Fatalf("unexpected new session: %+v", snap)
	}
	base := "/api/v1/sessions/" + snap.SessionID

	rr := e.do(t, http.MethodPost, base+"/start", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rr.Code)
	}
	started := decode[reveal.Snapshot](t, rr)
	if !started.Running || started.Revealed != 0 || started.RunID != 1 {
		t.Fatalf("unexpected started snapshot: %+v", started)
	}
	if started.Result.RainSlots != weather.Slots {
		t.Fatalf("rain slots = %d, want 9", started.Result.RainSlots)
	}

	e.timers.FireAll()

	done := decode[reveal.Snapshot](t, e.do(t, http.MethodGet, base, ""))
	if done.Running || done.Revealed != weather.Slots {
		t.Fatalf("unexpected finished snapshot: %+v", done)
	}

	rr = e.do(t, http.MethodPut, base+"/track", `{"track":"monza"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("track status = %d", rr.Code)
	}
	if decode[reveal.Snapshot](t, rr).HasStarted {
		t.Fatal("track change should clear has_started")
	}

	rr = e.do(t, http.MethodPut, base+"/bounds", `{"min_pct":0,"max_pct":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("bounds status = %d", rr.Code)
	}
	again := decode[reveal.Snapshot](t, e.do(t, http.MethodPost, base+"/start", ""))
	if again.Result.RainPercent != 0 || again.RunID != 2 {
		t.Fatalf("unexpected second run: %+v", again)
	}

	rr = e.do(t, http.MethodGet, base+"/logs?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("logs status = %d", rr.Code)
	}
	logs := decode[map[string][]logbuffer.LogEntry](t, rr)
	if len(logs["entries"]) == 0 {
		t.Fatal("expected session log entries")
	}
	for _, entry := range logs["entries"] {
		if entry.SessionID != snap.SessionID {
			t.Fatalf("log entry from another session: %+v", entry)
		}
	}

	if rr := e.do(t, http.MethodDelete, base, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := e.do(t, http.MethodGet, base, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	e := newTestEnv(t)
	snap := createSession(t, e, "")
	base := "/api/v1/sessions/" + snap.SessionID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown session", method: http.MethodGet, path: "/api/v1/sessions/nope", status: http.StatusNotFound, code: "session_not_found"},
		{name: "unknown profile", method: http.MethodPost, path: "/api/v1/sessions", body: `{"profile":"glacial"}`, status: http.StatusBadRequest, code: "unknown_profile"},
		{name: "unknown track on create", method: http.MethodPost, path: "/api/v1/sessions", body: `{"track":"le-mans"}`, status: http.StatusBadRequest, code: "unknown_track"},
		{name: "bad create json", method: http.MethodPost, path: "/api/v1/sessions", body: `{`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "unknown track", method: http.MethodPut, path: base + "/track", body: `{"track":"le-mans"}`, status: http.StatusBadRequest, code: "unknown_track"},
		{name: "partial bounds", method: http.MethodPut, path: base + "/bounds", body: `{"min_pct":10}`, status: http.StatusBadRequest, code: "min_pct_and_max_pct_required"},
		{name: "bad logs limit", method: http.MethodGet, path: base + "/logs?limit=-1", status: http.StatusBadRequest, code: "invalid_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[map[string]string](t, rr)["error"]; got != tt.code {
				t.Fatalf("error = %q, want %q", got, tt.code)
			}
		})
	}
}

func dialEvents(t *testing.T, ctx context.Context, srv *httptest.Server, sessionID string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + sessionID + "/events"
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *ws.Conn) streamMessageJSON {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg streamMessageJSON
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

// readRun reads messages until reveal.completed and checks they arrived as
// started, slot 1..9, completed, all for sessionID.
func readRun(t *testing.T, ctx context.Context, conn *ws.Conn, sessionID string) {
	t.Helper()
	var order []string
	for len(order) == 0 || order[len(order)-1] != string(events.EventRevealCompleted) {
		if len(order) > weather.Slots+2 {
			t.Fatalf("run did not complete after %d messages: %v", len(order), order)
		}
		msg := readMessage(t, ctx, conn)
		if msg.Type == "ping" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if sid := payload["session_id"]; sid != sessionID {
			t.Fatalf("received event for session %v", sid)
		}
		entry := msg.Type
		if events.EventType(msg.Type) == events.EventRevealSlot {
			entry = fmt.Sprintf("%s:%d", msg.Type, int(payload["revealed"].(float64)))
		}
		order = append(order, entry)
	}

	want := []string{string(events.EventRevealStarted)}
	for i := 1; i <= weather.Slots; i++ {
		want = append(want, fmt.Sprintf("%s:%d", events.EventRevealSlot, i))
	}
	want = append(want, string(events.EventRevealCompleted))
	if strings.Join(order, " ") != strings.Join(want, " ") {
		t.Fatalf("message order = %v, want %v", order, want)
	}
}

func TestSessionEventsStream(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	snap := createSession(t, e, `{"min_pct":50,"max_pct":50}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialEvents(t, ctx, srv, snap.SessionID)

	if first := readMessage(t, ctx, conn); first.Type != "snapshot" {
		t.Fatalf("first message type = %q, want snapshot", first.Type)
	}

	// An unrelated session must not leak into this stream.
	other := createSession(t, e, "")
	e.do(t, http.MethodPost, "/api/v1/sessions/"+other.SessionID+"/start", "")

	for run := 0; run < 20; run++ {
		if rr := e.do(t, http.MethodPost, "/api/v1/sessions/"+snap.SessionID+"/start", ""); rr.Code != http.StatusAccepted {
			t.Fatalf("start status = %d", rr.Code)
		}
		e.timers.FireAll()
		readRun(t, ctx, conn, snap.SessionID)
	}
}

func TestSessionEventsStream_RealTimers(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full reveal on wall-clock timers")
	}
	e := newTestEnvWithTimers(t, nil)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	snap := createSession(t, e, `{"profile":"fast"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dialEvents(t, ctx, srv, snap.SessionID)

	if first := readMessage(t, ctx, conn); first.Type != "snapshot" {
		t.Fatalf("first message type = %q, want snapshot", first.Type)
	}
	if rr := e.do(t, http.MethodPost, "/api/v1/sessions/"+snap.SessionID+"/start", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rr.Code)
	}
	readRun(t, ctx, conn, snap.SessionID)
}

type streamMessageJSON struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func TestHandleSessionCreate_EmptyBody(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
}
