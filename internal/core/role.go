package core

import "slices"

// Permission names a server capability granted through roles.
type Permission string

const (
	PermissionSendMessages    Permission = "SEND_MESSAGES"
	PermissionManageMessages  Permission = "MANAGE_MESSAGES"
	PermissionReactToMessages Permission = "REACT_TO_MESSAGES"
	PermissionManageUsers     Permission = "MANAGE_USERS"
	PermissionManageChannels  Permission = "MANAGE_CHANNELS"
	PermissionManageRoles     Permission = "MANAGE_ROLES"
	PermissionManageSettings  Permission = "MANAGE_SETTINGS"
)

// OwnerRoleID is the role held by the server owner.
const OwnerRoleID int64 = 1

type roleFields struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Position    int      `json:"position"`
	Permissions []string `json:"permissions"`
}

// Role is a cached server role.
type Role struct {
	entity[roleFields]
}

func (r *Role) load(raw map[string]any, replace bool) error {
	_, err := r.apply(raw, replace, nil)
	return err
}

func (r *Role) ID() int64     { return r.view().ID }
func (r *Role) Name() string  { return r.view().Name }
func (r *Role) Color() string { return r.view().Color }
func (r *Role) Position() int { return r.view().Position }

// Permissions returns the permissions the role grants.
func (r *Role) Permissions() []Permission {
	names := r.view().Permissions
	out := make([]Permission, len(names))
	for i, name := range names {
		out[i] = Permission(name)
	}
	return out
}

// HasPermission reports whether the role grants p.
func (r *Role) HasPermission(p Permission) bool {
	return slices.Contains(r.view().Permissions, string(p))
}

// RoleStore caches roles.
type RoleStore struct {
	eventStore[*Role]
}
