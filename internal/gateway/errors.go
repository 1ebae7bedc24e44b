package gateway

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

var (
	// ErrNotConnected is returned by Call and Subscribe when no connection is open.
	ErrNotConnected = errors.New("gateway: not connected")
	// ErrConnectionClosed rejects calls still pending when the connection goes away.
	ErrConnectionClosed = errors.New("gateway: connection closed")
	// ErrMissingHandshakeHash is returned when others.handshake answers without a hash.
	ErrMissingHandshakeHash = errors.New("gateway: missing handshake hash")
	// ErrAlreadyConnected is returned by Connect while a connection is open.
	ErrAlreadyConnected = errors.New("gateway: already connected")
	// ErrInvalidMethod is returned by Call for anything but query and mutation.
	ErrInvalidMethod = errors.New("gateway: invalid rpc method")
)

// RPCError is a server-returned error object.
type RPCError struct {
	Code       int
	Message    string
	HTTPStatus int
	DataCode   string
	HasData    bool
}

func (e *RPCError) Error() string {
	if !e.HasData {
		return fmt.Sprintf("api error [%d]: %s", e.Code, e.Message)
	}
	status := "N/A"
	if e.HTTPStatus != 0 {
		status = strconv.Itoa(e.HTTPStatus)
	}
	return fmt.Sprintf("api error [%d]: %s (status: %s, type: %s)", e.Code, e.Message, status, e.DataCode)
}

func newRPCError(e *proto.Error) *RPCError {
	msg := e.Message
	if msg == "" {
		msg = "unknown api error"
	}
	rpcErr := &RPCError{Code: e.Code, Message: msg}
	if e.Data != nil {
		rpcErr.HasData = true
		rpcErr.HTTPStatus = e.Data.HTTPStatus
		rpcErr.DataCode = e.Data.Code
		if rpcErr.DataCode == "" {
			rpcErr.DataCode = "UNKNOWN"
		}
	}
	return rpcErr
}

// ProtocolError marks a malformed handshake or join exchange.
type ProtocolError struct {
	Step string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("gateway: protocol error during %s: %v", e.Step, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
