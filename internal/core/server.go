package core

import (
	"sync"

	"github.com/rs/zerolog"
)

type serverFields struct {
	ServerID      string `json:"serverId"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	AllowNewUsers bool   `json:"allowNewUsers"`
}

// Server holds the public settings of a joined server.
type Server struct {
	entity[serverFields]
}

func (s *Server) ID() string          { return s.view().ServerID }
func (s *Server) Name() string        { return s.view().Name }
func (s *Server) Description() string { return s.view().Description }
func (s *Server) AllowNewUsers() bool { return s.view().AllowNewUsers }

// ServerStore caches servers by their string id.
type ServerStore struct {
	log  *zerolog.Logger
	emit Emitter

	mu    sync.RWMutex
	items map[string]*Server
	order []string
}

func newServerStore(logger *zerolog.Logger, emit Emitter) *ServerStore {
	return &ServerStore{log: logger, emit: emit, items: make(map[string]*Server)}
}

// Get returns the server with id.
func (s *ServerStore) Get(id string) (*Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.items[id]
	return srv, ok
}

// First returns the earliest stored server.
func (s *ServerStore) First() (*Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, false
	}
	return s.items[s.order[0]], true
}

// Len reports the number of cached servers.
func (s *ServerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Hydrate silently stores the public settings from a join snapshot. Settings without
// a serverId are ignored.
func (s *ServerStore) Hydrate(raw map[string]any) {
	id, _ := raw["serverId"].(string)
	if id == "" {
		s.log.Debug().Msg("public settings without serverId")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srv, exists := s.items[id]
	if !exists {
		srv = &Server{}
	}
	if _, err := srv.apply(raw, true, nil); err != nil {
		s.log.Warn().Err(err).Str("server", id).Msg("skipping malformed server settings")
		return
	}
	if !exists {
		s.items[id] = srv
		s.order = append(s.order, id)
	}
}

// Update merges settings into a cached server and emits a server update. Payloads
// without a serverId apply to the first server.
func (s *ServerStore) Update(raw map[string]any) (*Server, error) {
	id, _ := raw["serverId"].(string)

	var (
		srv *Server
		ok  bool
	)
	if id == "" {
		srv, ok = s.First()
	} else {
		srv, ok = s.Get(id)
	}
	if !ok {
		s.log.Warn().Str("server", id).Msg("update for unknown server ignored")
		return nil, nil
	}
	if _, err := srv.apply(raw, false, nil); err != nil {
		return nil, err
	}
	s.emit.Emit(ServerUpdateEvent{Server: srv})
	return srv, nil
}
