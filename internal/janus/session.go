package janus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/janusgate/backend/internal/config"
	"github.com/janusgate/backend/internal/worker"
)

// Manager owns the single shared Janus session/handle pair. The two ids are
// always set or cleared together; room operations never touch them directly.
type Manager struct {
	client   *Client
	logger   *slog.Logger
	pool     *worker.Pool
	interval time.Duration

	mu        sync.RWMutex
	sessionID int64
	handleID  int64
	running   bool
}

// NewManager creates a session manager. The keep-alive loop starts lazily
// with the first successful initialization and stops via Close.
func NewManager(client *Client, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		client:   client,
		logger:   logger,
		pool:     worker.NewPool(logger),
		interval: time.Duration(cfg.JanusKeepaliveInterval) * time.Second,
	}
}

// EnsureSession returns the current session/handle pair, initializing it on
// first use. Concurrent callers while uninitialized are serialized so exactly
// one create/attach sequence reaches the gateway; callers that see an
// already-set pair never block on the write lock.
func (m *Manager) EnsureSession(ctx context.Context) (int64, int64, error) {
	m.mu.RLock()
	sessionID, handleID := m.sessionID, m.handleID
	m.mu.RUnlock()
	if sessionID != 0 {
		return sessionID, handleID, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check: another caller may have initialized while we waited.
	if m.sessionID != 0 {
		return m.sessionID, m.handleID, nil
	}

	sessionID, err := m.client.CreateSession(ctx)
	if err != nil {
		return 0, 0, err
	}

	handleID, err = m.client.Attach(ctx, sessionID)
	if err != nil {
		// Leave state unset so the next caller retries from scratch.
		return 0, 0, err
	}

	m.sessionID = sessionID
	m.handleID = handleID

	m.logger.Info("✅ [Janus] Session established",
		"session_id", sessionID,
		"handle_id", handleID,
	)

	if !m.running {
		m.running = true
		m.pool.Submit(m.keepalive)
	}

	return sessionID, handleID, nil
}

// Invalidate clears the session/handle pair, but only if sessionID is still
// the current one, so a stale failure cannot tear down a newer session.
func (m *Manager) Invalidate(sessionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionID != sessionID {
		return
	}

	m.logger.Warn("🔁 [Janus] Session invalidated", "session_id", sessionID)
	m.sessionID = 0
	m.handleID = 0
}

// Close stops the keep-alive loop and waits briefly for it to finish.
func (m *Manager) Close() {
	m.pool.Shutdown(5 * time.Second)
}

// keepalive pings the current session every interval. The interval is
// configured below Janus' idle-session timeout; a failed ping tears the pair
// down and immediately tries to rebuild it so the next room operation finds a
// warm session.
func (m *Manager) keepalive(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("🛑 [Janus] Keep-alive loop stopped")
			return
		case <-ticker.C:
			m.mu.RLock()
			sessionID := m.sessionID
			m.mu.RUnlock()

			if sessionID == 0 {
				continue
			}

			if err := m.client.KeepAlive(ctx, sessionID); err != nil {
				m.logger.Warn("⚠️ [Janus] Keep-alive failed",
					"session_id", sessionID,
					"error", err,
				)
				m.Invalidate(sessionID)

				if _, _, err := m.EnsureSession(ctx); err != nil {
					m.logger.Warn("⚠️ [Janus] Re-initialization failed; will retry lazily", "error", err)
				}
			} else {
				m.logger.Debug("💓 [Janus] Keep-alive ok", "session_id", sessionID)
			}
		}
	}
}
