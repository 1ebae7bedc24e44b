package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var userDefaults = map[string]any{"status": StatusOffline}

type userFields struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Banned  bool    `json:"banned"`
	RoleIDs []int64 `json:"roleIds"`
}

// User is a cached server member.
type User struct {
	entity[userFields]
	cache *Cache
}

// sanitizeUser drops the heavy media attributes the cache never serves.
func sanitizeUser(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "avatar" || k == "banner" {
			continue
		}
		out[k] = v
	}
	return out
}

func (u *User) load(raw map[string]any, replace bool) error {
	_, err := u.apply(sanitizeUser(raw), replace, userDefaults)
	return err
}

func (u *User) ID() int64      { return u.view().ID }
func (u *User) Name() string   { return u.view().Name }
func (u *User) Status() string { return u.view().Status }
func (u *User) Banned() bool   { return u.view().Banned }

// RoleIDs returns the ids of the user's roles.
func (u *User) RoleIDs() []int64 {
	return slices.Clone(u.view().RoleIDs)
}

// HasRole reports whether the user holds role id.
func (u *User) HasRole(id int64) bool {
	return slices.Contains(u.view().RoleIDs, id)
}

// IsOwner reports whether the user holds the owner role.
func (u *User) IsOwner() bool {
	return u.HasRole(OwnerRoleID)
}

// Roles resolves the user's roles; unknown role ids are skipped.
func (u *User) Roles() []*Role {
	ids := u.view().RoleIDs
	roles := make([]*Role, 0, len(ids))
	for _, id := range ids {
		if r, ok := u.cache.Roles.Get(id); ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// Permissions returns the union of the permissions of the user's roles.
func (u *User) Permissions() []Permission {
	var out []Permission
	for _, r := range u.Roles() {
		for _, p := range r.Permissions() {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// HasPermission reports whether any of the user's roles grants p.
func (u *User) HasPermission(p Permission) bool {
	for _, r := range u.Roles() {
		if r.HasPermission(p) {
			return true
		}
	}
	return false
}

// Server returns the server the user belongs to.
func (u *User) Server() (*Server, bool) {
	return u.cache.Servers.First()
}

// Ban bans the user. Requires MANAGE_USERS; the owner cannot be banned.
func (u *User) Ban(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "No reason given."
	}
	return u.moderate(ctx, "ban", "users.ban", map[string]any{"userId": u.ID(), "reason": reason}, true)
}

// Unban lifts a ban. Requires MANAGE_USERS.
func (u *User) Unban(ctx context.Context) error {
	return u.moderate(ctx, "unban", "users.unban", map[string]any{"userId": u.ID()}, false)
}

// Kick disconnects the user from the server. Requires MANAGE_USERS.
func (u *User) Kick(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "No reason given."
	}
	return u.moderate(ctx, "kick", "users.kick", map[string]any{"userId": u.ID(), "reason": reason}, true)
}

// Delete removes the account, wiping its messages when wipe is set. Requires MANAGE_USERS.
func (u *User) Delete(ctx context.Context, wipe bool) error {
	return u.moderate(ctx, "delete", "users.delete", map[string]any{"userId": u.ID(), "wipe": wipe}, true)
}

func (u *User) moderate(ctx context.Context, action, path string, input map[string]any, protectOwner bool) error {
	self, err := u.cache.self()
	if err != nil {
		return err
	}
	if !self.HasPermission(PermissionManageUsers) {
		return &PermissionError{Permission: PermissionManageUsers, Action: action + " " + u.Name()}
	}
	if protectOwner && u.IsOwner() {
		return fmt.Errorf("%w: cannot %s %s", ErrOwnerProtected, action, u.Name())
	}
	_, err = u.cache.mutate(ctx, path, input)
	return err
}

// UserStore caches users and reports membership changes.
type UserStore struct {
	*idStore[*User]
	emit Emitter
}

func newUserStore(logger *zerolog.Logger, emit Emitter, build func() *User) *UserStore {
	return &UserStore{idStore: newIDStore("user", logger, build), emit: emit}
}

// Hydrate silently loads the snapshot entries.
func (s *UserStore) Hydrate(raws []map[string]any) {
	s.hydrate(raws)
}

// ByName returns the first user named name.
func (s *UserStore) ByName(name string) (*User, bool) {
	for _, u := range s.All() {
		if u.Name() == name {
			return u, true
		}
	}
	return nil, false
}

// Create adds a user and emits a create event.
func (s *UserStore) Create(raw map[string]any) (*User, error) {
	u, err := s.upsert(raw)
	if err != nil {
		return nil, err
	}
	s.emit.Emit(UserCreateEvent{User: u})
	return u, nil
}

// Join marks the user online, caching it first when unknown.
func (s *UserStore) Join(raw map[string]any) (*User, error) {
	joined := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		joined[k] = v
	}
	joined["status"] = StatusOnline

	u, err := s.upsert(joined)
	if err != nil {
		return nil, err
	}
	s.emit.Emit(UserJoinEvent{User: u})
	return u, nil
}

// Leave marks the user offline. Unknown ids are logged and ignored.
func (s *UserStore) Leave(id int64) (*User, bool) {
	u, ok := s.Get(id)
	if !ok {
		s.log.Warn().Int64("id", id).Msg("leave for unknown user ignored")
		return nil, false
	}
	if _, err := u.apply(map[string]any{"status": StatusOffline}, false, nil); err != nil {
		s.log.Warn().Err(err).Int64("id", id).Msg("failed to mark user offline")
		return nil, false
	}
	s.emit.Emit(UserLeaveEvent{User: u})
	return u, true
}

// Update merges raw into the cached user and emits an update event, followed by one
// event for each watched field that changed. Unknown ids are logged and ignored.
func (s *UserStore) Update(raw map[string]any) (*User, error) {
	id, ok := rawID(raw)
	if !ok {
		return nil, ErrMissingID
	}
	u, ok := s.Get(id)
	if !ok {
		s.log.Warn().Int64("id", id).Msg("update for unknown user ignored")
		return nil, nil
	}

	prev, err := u.apply(sanitizeUser(raw), false, userDefaults)
	if err != nil {
		return nil, err
	}
	next := u.view()

	s.emit.Emit(UserUpdateEvent{User: u})
	if prev.Name != next.Name {
		s.emit.Emit(UserNameChangeEvent{User: u, OldName: prev.Name})
	}
	if prev.Banned != next.Banned {
		if next.Banned {
			s.emit.Emit(UserBanEvent{User: u})
		} else {
			s.emit.Emit(UserUnbanEvent{User: u})
		}
	}
	return u, nil
}

// Delete removes a user and emits a delete event.
func (s *UserStore) Delete(id int64) (*User, bool) {
	u, ok := s.remove(id)
	if ok {
		s.emit.Emit(UserDeleteEvent{User: u})
	}
	return u, ok
}
