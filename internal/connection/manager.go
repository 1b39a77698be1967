// Package connection owns the server catalog and the connect/disconnect
// state machine.
//
// The manager never sees the bearer token or the subscription tier: catalog
// requests carry whatever credential the API client's source yields, and
// premium gating is the calling collaborator's job before SelectServer.
// Transitions are guarded by an epoch counter so a timer that fires after its
// transition was superseded is discarded instead of committing a stale state.
package connection

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/resuldeger/vpnapp/internal/domain"
	"github.com/resuldeger/vpnapp/internal/metrics"
)

// Snapshot is an atomic view of the connection state handed to subscribers.
// IsConnected is true only while Status is exactly connected.
type Snapshot struct {
	Status           domain.ConnectionStatus
	IsConnected      bool
	SelectedServer   *domain.Server
	Servers          []domain.Server
	IsLoadingServers bool
	LastError        error
}

// Manager implements server discovery, selection, and the connection
// lifecycle.
type Manager struct {
	catalog         domain.CatalogAPI
	dialer          domain.Dialer
	clock           clockwork.Clock
	disconnectDelay time.Duration

	mu             sync.Mutex
	status         domain.ConnectionStatus
	isConnected    bool
	selected       *domain.Server
	servers        []domain.Server
	loadingServers bool
	lastErr        error
	epoch          uint64
	dialCancel     context.CancelFunc
	closed         bool

	fetchGroup singleflight.Group
	fetchGen   uint64

	subMu       sync.Mutex
	subscribers []func(Snapshot)
}

// NewManager creates a connection manager starting disconnected with an
// empty catalog.
func NewManager(catalog domain.CatalogAPI, dialer domain.Dialer, clock clockwork.Clock, disconnectDelay time.Duration) *Manager {
	return &Manager{
		catalog:         catalog,
		dialer:          dialer,
		clock:           clock,
		disconnectDelay: disconnectDelay,
		status:          domain.StatusDisconnected,
	}
}

// Subscribe registers fn to receive a snapshot after every state transition.
// fn is invoked synchronously on the mutating goroutine.
func (m *Manager) Subscribe(fn func(Snapshot)) {
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.subMu.Unlock()
}

// State returns the current snapshot.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// FetchServers fetches the full catalog and replaces the stored one
// atomically. Concurrent calls collapse into a single backend request, and a
// generation counter ensures only the latest issued fetch commits its
// response. On failure the previous catalog is kept. If nothing is selected
// and the new catalog is non-empty, the first entry becomes selected.
func (m *Manager) FetchServers(ctx context.Context) ([]domain.Server, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrManagerClosed
	}
	m.fetchGen++
	gen := m.fetchGen
	m.loadingServers = true
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	start := m.clock.Now()
	result, err, _ := m.fetchGroup.Do("catalog", func() (any, error) {
		return m.catalog.Servers(ctx)
	})
	metrics.CatalogFetchDuration.Observe(m.clock.Since(start).Seconds())

	m.mu.Lock()
	if gen != m.fetchGen {
		// A newer fetch was issued; its completion owns the commit.
		m.mu.Unlock()
		metrics.CatalogStaleResponsesTotal.Inc()
		slog.Debug("Discarded stale catalog response", "generation", gen)
		if err != nil {
			return nil, err
		}
		return result.([]domain.Server), nil
	}

	m.loadingServers = false
	if err != nil {
		snap = m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		metrics.CatalogFetchesTotal.WithLabelValues("failure").Inc()
		slog.Error("Failed to fetch servers", "error", err)
		return nil, err
	}

	servers := result.([]domain.Server)
	m.servers = servers
	if m.selected == nil && len(servers) > 0 {
		first := servers[0]
		m.selected = &first
	}
	snap = m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	metrics.CatalogFetchesTotal.WithLabelValues("success").Inc()
	slog.Info("Server catalog updated", "count", len(servers))
	return servers, nil
}

// SelectServer unconditionally overwrites the selected-server reference.
// Premium gating against the session's tier happens in the caller, before
// this method.
func (m *Manager) SelectServer(server domain.Server) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.selected = &server
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// Connect starts the connecting transition. No-op when no server is
// selected or when the machine is not in the disconnected state, so a call
// can never restart an in-flight transition.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed || m.selected == nil || m.status != domain.StatusDisconnected {
		m.mu.Unlock()
		return
	}

	m.epoch++
	epoch := m.epoch
	m.status = domain.StatusConnecting
	m.lastErr = nil
	dialCtx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel
	server := *m.selected
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.ConnectionTransitionsTotal.WithLabelValues(string(domain.StatusConnecting)).Inc()
	m.notify(snap)

	go func() {
		err := m.dialer.Dial(dialCtx, server)

		m.mu.Lock()
		if m.epoch != epoch || m.closed {
			m.mu.Unlock()
			slog.Debug("Discarded stale connect transition", "server_id", server.ID)
			return
		}
		m.dialCancel = nil
		var state domain.ConnectionStatus
		if err != nil {
			m.status = domain.StatusDisconnected
			m.isConnected = false
			m.lastErr = err
			state = domain.StatusDisconnected
		} else {
			m.status = domain.StatusConnected
			m.isConnected = true
			state = domain.StatusConnected
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()

		metrics.ConnectionTransitionsTotal.WithLabelValues(string(state)).Inc()
		if err != nil {
			slog.Warn("Connect failed", "server_id", server.ID, "error", err)
		} else {
			slog.Info("Connected", "server_id", server.ID)
		}
		m.notify(snap)
	}()
}

// Disconnect starts the disconnecting transition. Honored from connected and
// from connecting (cancelling the pending connect, so a stale connected state
// can never land); a no-op otherwise.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	switch m.status {
	case domain.StatusConnected:
	case domain.StatusConnecting:
		if m.dialCancel != nil {
			m.dialCancel()
			m.dialCancel = nil
		}
	default:
		m.mu.Unlock()
		return
	}

	m.epoch++
	epoch := m.epoch
	m.status = domain.StatusDisconnecting
	m.isConnected = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.ConnectionTransitionsTotal.WithLabelValues(string(domain.StatusDisconnecting)).Inc()
	m.notify(snap)

	m.clock.AfterFunc(m.disconnectDelay, func() {
		m.mu.Lock()
		if m.epoch != epoch || m.closed {
			m.mu.Unlock()
			return
		}
		m.status = domain.StatusDisconnected
		snap := m.snapshotLocked()
		m.mu.Unlock()

		metrics.ConnectionTransitionsTotal.WithLabelValues(string(domain.StatusDisconnected)).Inc()
		slog.Info("Disconnected")
		m.notify(snap)
	})
}

// Close tears the manager down, cancelling any in-flight transition. Pending
// timers fire into a dead epoch and are discarded. Further calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.epoch++
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	m.mu.Unlock()
}

// snapshotLocked builds a snapshot; callers hold m.mu.
func (m *Manager) snapshotLocked() Snapshot {
	var selected *domain.Server
	if m.selected != nil {
		s := *m.selected
		selected = &s
	}
	return Snapshot{
		Status:           m.status,
		IsConnected:      m.isConnected,
		SelectedServer:   selected,
		Servers:          slices.Clone(m.servers),
		IsLoadingServers: m.loadingServers,
		LastError:        m.lastErr,
	}
}

func (m *Manager) notify(snap Snapshot) {
	m.subMu.Lock()
	subs := make([]func(Snapshot), len(m.subscribers))
	copy(subs, m.subscribers)
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
