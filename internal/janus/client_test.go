package janus_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/janus"
)

// respondWith spins up a server that answers every request with the given
// handler. The handler gets the transaction id so it can echo or mangle it.
func respondWith(t *testing.T, fn func(w http.ResponseWriter, transaction string)) *janus.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transaction string `json:"transaction"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fn(w, req.Transaction)
	}))
	t.Cleanup(srv.Close)

	return janus.NewClient(&config.Config{
		JanusServerURL:   srv.URL,
		JanusCallTimeout: 5,
	}, discardLogger())
}

func TestClient_CreateSessionAndAttach(t *testing.T) {
	gw := newFakeGateway(t)
	client := janus.NewClient(gatewayConfig(gw, 60), discardLogger())

	sessionID, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, sessionID)

	handleID, err := client.Attach(context.Background(), sessionID)
	require.NoError(t, err)
	assert.NotZero(t, handleID)
	assert.NotEqual(t, sessionID, handleID)

	creates, attaches, _, _ := gw.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, attaches)
}

func TestClient_KeepAlive(t *testing.T) {
	gw := newFakeGateway(t)
	client := janus.NewClient(gatewayConfig(gw, 60), discardLogger())

	sessionID, err := client.CreateSession(context.Background())
	require.NoError(t, err)

	assert.NoError(t, client.KeepAlive(context.Background(), sessionID))
}

func TestClient_GatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := janus.NewClient(&config.Config{
		JanusServerURL:   srv.URL,
		JanusCallTimeout: 1,
	}, discardLogger())

	_, err := client.CreateSession(context.Background())
	assert.ErrorIs(t, err, janus.ErrGatewayUnreachable)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	client := respondWith(t, func(w http.ResponseWriter, tx string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"janus":       "error",
			"transaction": tx,
			"error":       map[string]any{"code": 403, "reason": "Unauthorized request"},
		})
	})

	_, err := client.CreateSession(context.Background())

	var gwErr *janus.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 403, gwErr.Code)
	assert.Equal(t, "Unauthorized request", gwErr.Reason)
	assert.False(t, gwErr.SessionExpired())
}

func TestClient_Non2xxStatus(t *testing.T) {
	client := respondWith(t, func(w http.ResponseWriter, tx string) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.CreateSession(context.Background())

	var gwErr *janus.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.Code)
}

func TestClient_MalformedBody(t *testing.T) {
	client := respondWith(t, func(w http.ResponseWriter, tx string) {
		_, _ = w.Write([]byte("this is not json"))
	})

	_, err := client.CreateSession(context.Background())
	assert.ErrorIs(t, err, janus.ErrUnexpectedResponse)
}

func TestClient_TransactionMismatch(t *testing.T) {
	client := respondWith(t, func(w http.ResponseWriter, tx string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"janus":       "success",
			"transaction": "someone-elses-transaction",
			"data":        map[string]any{"id": 1},
		})
	})

	_, err := client.CreateSession(context.Background())
	assert.ErrorIs(t, err, janus.ErrUnexpectedResponse)
}

func TestClient_MessagePluginError(t *testing.T) {
	gw := newFakeGateway(t)
	gw.setPluginData(`{"videoroom":"event","error_code":426,"error":"No such room"}`)
	client := janus.NewClient(gatewayConfig(gw, 60), discardLogger())

	_, err := client.Message(context.Background(), 1, 2, map[string]any{"request": "list"})

	var gwErr *janus.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 426, gwErr.Code)
	assert.Equal(t, "No such room", gwErr.Reason)
	assert.False(t, gwErr.SessionExpired())
}

func TestGatewayError_SessionExpired(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{code: 458, want: true}, // session not found
		{code: 459, want: true}, // handle not found
		{code: 426, want: false},
		{code: 403, want: false},
	}

	for _, tt := range tests {
		err := &janus.GatewayError{Code: tt.code}
		assert.Equal(t, tt.want, err.SessionExpired(), "code %d", tt.code)
	}
}
