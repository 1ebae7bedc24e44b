package app

import (
	transporthttp "github.com/vovakirdan/sharkord-go/internal/transport/http"
)

// Status implements the status server's provider.
func (a *App) Status() transporthttp.StatusResponse {
	resp := transporthttp.StatusResponse{
		Connected:  a.gateway.Connected(),
		Ready:      a.ready.Load(),
		SessionID:  a.gateway.SessionID(),
		Reconnects: a.reconnects.Load(),
		Cache: transporthttp.CacheCounts{
			Users:      a.cache.Users.Len(),
			Channels:   a.cache.Channels.Len(),
			Roles:      a.cache.Roles.Len(),
			Categories: a.cache.Categories.Len(),
			Messages:   a.cache.Messages.Len(),
		},
	}
	if srv, ok := a.cache.Servers.First(); ok {
		resp.Server = srv.Name()
	}
	if self, ok := a.cache.Self(); ok {
		resp.Self = &transporthttp.UserResponse{ID: self.ID(), Name: self.Name(), Status: self.Status()}
	}
	return resp
}
