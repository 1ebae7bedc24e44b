package core

import (
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// entity holds the raw attributes of a cached object and their typed view. Updates
// mutate the same entity, so references handed out earlier stay current.
type entity[F any] struct {
	mu     sync.RWMutex
	attrs  map[string]any
	fields F
}

// apply merges raw into the attributes, or replaces them when replace is set, then
// fills missing keys from defaults. A payload that fails to decode leaves the entity
// untouched. It returns the typed view from before the change.
func (e *entity[F]) apply(raw map[string]any, replace bool, defaults map[string]any) (F, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := make(map[string]any, len(e.attrs)+len(raw))
	if !replace {
		maps.Copy(merged, e.attrs)
	}
	maps.Copy(merged, raw)
	for k, v := range defaults {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	var next F
	if err := decodeFields(merged, &next); err != nil {
		return e.fields, err
	}
	prev := e.fields
	e.attrs, e.fields = merged, next
	return prev, nil
}

func (e *entity[F]) view() F {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fields
}

// Attr returns a raw attribute, including fields without a typed accessor.
func (e *entity[F]) Attr(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[key]
	return v, ok
}

// Attrs returns a copy of all raw attributes.
func (e *entity[F]) Attrs() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.attrs)
}

// record is an entity kept in an idStore.
type record interface {
	ID() int64
	load(raw map[string]any, replace bool) error
}

// idStore maps numeric ids to entities of one kind.
type idStore[V record] struct {
	kind  string
	log   *zerolog.Logger
	build func() V

	mu    sync.RWMutex
	items map[int64]V
}

func newIDStore[V record](kind string, logger *zerolog.Logger, build func() V) *idStore[V] {
	return &idStore[V]{
		kind:  kind,
		log:   logger,
		build: build,
		items: make(map[int64]V),
	}
}

// Get returns the entity with id.
func (s *idStore[V]) Get(id int64) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// All returns every entity ordered by id.
func (s *idStore[V]) All() []V {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.items))
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	s.mu.RUnlock()
	return out
}

// Len reports the number of cached entities.
func (s *idStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// hydrate silently replaces the store content with raws. Entities that survive keep
// their identity.
func (s *idStore[V]) hydrate(raws []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(raws))
	for _, raw := range raws {
		id, ok := rawID(raw)
		if !ok {
			s.log.Warn().Str("kind", s.kind).Msg("snapshot entry without id")
			continue
		}
		v, exists := s.items[id]
		if !exists {
			v = s.build()
		}
		if err := v.load(raw, true); err != nil {
			s.log.Warn().Err(err).Str("kind", s.kind).Int64("id", id).Msg("skipping malformed snapshot entry")
			continue
		}
		s.items[id] = v
		seen[id] = struct{}{}
	}
	for id := range s.items {
		if _, ok := seen[id]; !ok {
			delete(s.items, id)
		}
	}
}

// upsert stores raw as a new entity, or merges it into the existing one.
func (s *idStore[V]) upsert(raw map[string]any) (V, error) {
	var zero V
	id, ok := rawID(raw)
	if !ok {
		return zero, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, exists := s.items[id]; exists {
		return v, v.load(raw, false)
	}
	v := s.build()
	if err := v.load(raw, true); err != nil {
		return zero, err
	}
	s.items[id] = v
	return v, nil
}

// patch merges raw into an existing entity; ok is false when the id is unknown.
func (s *idStore[V]) patch(raw map[string]any) (V, bool, error) {
	var zero V
	id, ok := rawID(raw)
	if !ok {
		return zero, false, ErrMissingID
	}
	v, exists := s.Get(id)
	if !exists {
		s.log.Warn().Str("kind", s.kind).Int64("id", id).Msg("update for unknown entity ignored")
		return zero, false, nil
	}
	return v, true, v.load(raw, false)
}

func (s *idStore[V]) remove(id int64) (V, bool) {
	s.mu.Lock()
	v, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if !ok {
		s.log.Warn().Str("kind", s.kind).Int64("id", id).Msg("delete for unknown entity ignored")
	}
	return v, ok
}

// eventStore is an idStore that reports create, update and delete through an Emitter.
type eventStore[V record] struct {
	*idStore[V]
	emit    Emitter
	created func(V) Event
	updated func(V) Event
	deleted func(V) Event
}

// Hydrate silently loads the snapshot entries.
func (s *eventStore[V]) Hydrate(raws []map[string]any) {
	s.hydrate(raws)
}

// Create adds an entity and emits its create event.
func (s *eventStore[V]) Create(raw map[string]any) (V, error) {
	v, err := s.upsert(raw)
	if err != nil {
		return v, err
	}
	s.emit.Emit(s.created(v))
	return v, nil
}

// Update merges raw into the cached entity and emits its update event. Unknown ids
// are logged and ignored.
func (s *eventStore[V]) Update(raw map[string]any) (V, error) {
	v, ok, err := s.patch(raw)
	if err != nil || !ok {
		return v, err
	}
	s.emit.Emit(s.updated(v))
	return v, nil
}

// Delete removes an entity and emits its delete event. Unknown ids are logged and ignored.
func (s *eventStore[V]) Delete(id int64) (V, bool) {
	v, ok := s.remove(id)
	if ok {
		s.emit.Emit(s.deleted(v))
	}
	return v, ok
}
