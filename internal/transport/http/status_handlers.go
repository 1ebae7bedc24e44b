package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CacheCounts reports the size of each entity store.
type CacheCounts struct {
	Users      int `json:"users"`
	Channels   int `json:"channels"`
	Roles      int `json:"roles"`
	Categories int `json:"categories"`
	Messages   int `json:"messages"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Connected  bool          `json:"connected"`
	Ready      bool          `json:"ready"`
	SessionID  string        `json:"session_id,omitempty"`
	Server     string        `json:"server,omitempty"`
	Reconnects uint64        `json:"reconnects"`
	Self       *UserResponse `json:"self,omitempty"`
	Cache      CacheCounts   `json:"cache"`
}

// StatusProvider reports the live state of the bot.
type StatusProvider interface {
	Status() StatusResponse
}

// StatusHandlers serves liveness and status endpoints.
type StatusHandlers struct {
	status StatusProvider
	log    *zerolog.Logger
}

// NewStatusHandlers creates status handlers. A nil provider reports an idle bot.
func NewStatusHandlers(status StatusProvider, logger *zerolog.Logger) *StatusHandlers {
	return &StatusHandlers{
		status: status,
		log:    logger,
	}
}

// Health reports process liveness.
// GET /health
func (h *StatusHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Status reports connection state and cache sizes. It answers 503 until the bot is ready.
// GET /status
func (h *StatusHandlers) Status(c *gin.Context) {
	var resp StatusResponse
	if h.status != nil {
		resp = h.status.Status()
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
