package core

// Event is a domain notification delivered through the Hub. The set of events is closed:
// every implementation lives in this file.
type Event interface {
	Name() string
	event()
}

// Event names as seen by listeners and logs.
const (
	EventReady          = "ready"
	EventClosed         = "closed"
	EventMessage        = "message"
	EventChannelCreate  = "channelcreate"
	EventChannelUpdate  = "channelupdate"
	EventChannelDelete  = "channeldelete"
	EventCategoryCreate = "categorycreate"
	EventCategoryUpdate = "categoryupdate"
	EventCategoryDelete = "categorydelete"
	EventRoleCreate     = "rolecreate"
	EventRoleUpdate     = "roleupdate"
	EventRoleDelete     = "roledelete"
	EventUserCreate     = "usercreate"
	EventUserJoin       = "userjoin"
	EventUserLeave      = "userleave"
	EventUserUpdate     = "userupdate"
	EventUserDelete     = "userdelete"
	EventUserNameChange = "namechange"
	EventUserBan        = "ban"
	EventUserUnban      = "unban"
	EventServerUpdate   = "serverupdate"
)

// ReadyEvent fires once the cache is hydrated and every subscription is live.
type ReadyEvent struct {
	Self *User
}

// ClosedEvent fires when the gateway connection ends.
type ClosedEvent struct {
	Code   int
	Reason string
}

// MessageEvent delivers a newly posted message.
type MessageEvent struct {
	Message *Message
}

type ChannelCreateEvent struct{ Channel *Channel }
type ChannelUpdateEvent struct{ Channel *Channel }

// ChannelDeleteEvent carries the channel as it was when removed.
type ChannelDeleteEvent struct{ Channel *Channel }

type CategoryCreateEvent struct{ Category *Category }
type CategoryUpdateEvent struct{ Category *Category }
type CategoryDeleteEvent struct{ Category *Category }

type RoleCreateEvent struct{ Role *Role }
type RoleUpdateEvent struct{ Role *Role }
type RoleDeleteEvent struct{ Role *Role }

type UserCreateEvent struct{ User *User }
type UserJoinEvent struct{ User *User }
type UserLeaveEvent struct{ User *User }
type UserUpdateEvent struct{ User *User }
type UserDeleteEvent struct{ User *User }

// UserNameChangeEvent fires alongside UserUpdateEvent when the name changed.
type UserNameChangeEvent struct {
	User    *User
	OldName string
}

type UserBanEvent struct{ User *User }
type UserUnbanEvent struct{ User *User }

// ServerUpdateEvent fires when public server settings change.
type ServerUpdateEvent struct {
	Server *Server
}

func (ReadyEvent) Name() string          { return EventReady }
func (ClosedEvent) Name() string         { return EventClosed }
func (MessageEvent) Name() string        { return EventMessage }
func (ChannelCreateEvent) Name() string  { return EventChannelCreate }
func (ChannelUpdateEvent) Name() string  { return EventChannelUpdate }
func (ChannelDeleteEvent) Name() string  { return EventChannelDelete }
func (CategoryCreateEvent) Name() string { return EventCategoryCreate }
func (CategoryUpdateEvent) Name() string { return EventCategoryUpdate }
func (CategoryDeleteEvent) Name() string { return EventCategoryDelete }
func (RoleCreateEvent) Name() string     { return EventRoleCreate }
func (RoleUpdateEvent) Name() string     { return EventRoleUpdate }
func (RoleDeleteEvent) Name() string     { return EventRoleDelete }
func (UserCreateEvent) Name() string     { return EventUserCreate }
func (UserJoinEvent) Name() string       { return EventUserJoin }
func (UserLeaveEvent) Name() string      { return EventUserLeave }
func (UserUpdateEvent) Name() string     { return EventUserUpdate }
func (UserDeleteEvent) Name() string     { return EventUserDelete }
func (UserNameChangeEvent) Name() string { return EventUserNameChange }
func (UserBanEvent) Name() string        { return EventUserBan }
func (UserUnbanEvent) Name() string      { return EventUserUnban }
func (ServerUpdateEvent) Name() string   { return EventServerUpdate }

func (ReadyEvent) event()          {}
func (ClosedEvent) event()         {}
func (MessageEvent) event()        {}
func (ChannelCreateEvent) event()  {}
func (ChannelUpdateEvent) event()  {}
func (ChannelDeleteEvent) event()  {}
func (CategoryCreateEvent) event() {}
func (CategoryUpdateEvent) event() {}
func (CategoryDeleteEvent) event() {}
func (RoleCreateEvent) event()     {}
func (RoleUpdateEvent) event()     {}
func (RoleDeleteEvent) event()     {}
func (UserCreateEvent) event()     {}
func (UserJoinEvent) event()       {}
func (UserLeaveEvent) event()      {}
func (UserUpdateEvent) event()     {}
func (UserDeleteEvent) event()     {}
func (UserNameChangeEvent) event() {}
func (UserBanEvent) event()        {}
func (UserUnbanEvent) event()      {}
func (ServerUpdateEvent) event()   {}
