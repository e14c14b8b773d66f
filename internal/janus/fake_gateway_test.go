package janus_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/janus"
)

// fakeGateway is an httptest stand-in for the Janus HTTP API. It answers the
// four envelope kinds the client sends, echoes transactions, counts calls and
// records the last plugin body so tests can assert on the exact wire payload.
type fakeGateway struct {
	srv *httptest.Server

	mu            sync.Mutex
	creates       int
	attaches      int
	keepalives    int
	messages      int
	lastBody      map[string]any
	pluginData    string
	keepaliveFail bool
	staleLeft     int
	nextID        int64
}

func newFakeGateway(t *testing.T) *fakeGateway {
	f := &fakeGateway{
		pluginData: `{"videoroom":"success"}`,
		nextID:     1000,
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Janus       string         `json:"janus"`
		Transaction string         `json:"transaction"`
		SessionID   int64          `json:"session_id"`
		HandleID    int64          `json:"handle_id"`
		Body        map[string]any `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(v map[string]any) {
		v["transaction"] = req.Transaction
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	sessionGone := func() {
		reply(map[string]any{
			"janus": "error",
			"error": map[string]any{"code": 458, "reason": "No such session"},
		})
	}

	switch req.Janus {
	case "create":
		f.creates++
		f.nextID++
		reply(map[string]any{"janus": "success", "data": map[string]any{"id": f.nextID}})
	case "attach":
		f.attaches++
		f.nextID++
		reply(map[string]any{"janus": "success", "data": map[string]any{"id": f.nextID}})
	case "keepalive":
		f.keepalives++
		if f.keepaliveFail {
			sessionGone()
			return
		}
		reply(map[string]any{"janus": "ack"})
	case "message":
		f.messages++
		f.lastBody = req.Body
		if f.staleLeft > 0 {
			f.staleLeft--
			sessionGone()
			return
		}
		reply(map[string]any{
			"janus": "success",
			"plugindata": map[string]any{
				"plugin": "janus.plugin.videoroom",
				"data":   json.RawMessage(f.pluginData),
			},
		})
	default:
		reply(map[string]any{
			"janus": "error",
			"error": map[string]any{"code": 457, "reason": "Unknown request"},
		})
	}
}

func (f *fakeGateway) setPluginData(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pluginData = data
}

func (f *fakeGateway) setKeepaliveFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepaliveFail = fail
}

func (f *fakeGateway) setStale(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleLeft = n
}

func (f *fakeGateway) counts() (creates, attaches, keepalives, messages int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.attaches, f.keepalives, f.messages
}

func (f *fakeGateway) lastMessageBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func gatewayConfig(f *fakeGateway, keepaliveSeconds int64) *config.Config {
	return &config.Config{
		JanusServerURL:         f.srv.URL,
		JanusCallTimeout:       5,
		JanusKeepaliveInterval: keepaliveSeconds,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRoomService(t *testing.T, f *fakeGateway) (*janus.RoomService, *janus.Manager) {
	cfg := gatewayConfig(f, 60)
	client := janus.NewClient(cfg, discardLogger())
	manager := janus.NewManager(client, cfg, discardLogger())
	t.Cleanup(manager.Close)
	return janus.NewRoomService(manager, client, discardLogger()), manager
}
