package proto

import "encoding/json"

const (
	JSONRPCVersion = "2.0"

	MethodQuery            = "query"
	MethodMutation         = "mutation"
	MethodSubscription     = "subscription"
	MethodConnectionParams = "connectionParams"

	ResultStarted = "started"
	ResultData    = "data"
	ResultStopped = "stopped"

	// Heartbeats travel as bare text, not as JSON-RPC envelopes.
	HeartbeatPing = "PING"
	HeartbeatPong = "PONG"

	PathHandshake  = "others.handshake"
	PathJoinServer = "others.joinServer"
)

// Request is a JSON-RPC request frame sent by the client.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// Params addresses a server procedure by path.
type Params struct {
	Path  string          `json:"path"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ConnectionParams is the one-shot control frame that carries the token.
type ConnectionParams struct {
	JSONRPC string               `json:"jsonrpc"`
	Method  string               `json:"method"`
	Data    ConnectionParamsData `json:"data"`
}

// ConnectionParamsData holds the bearer token.
type ConnectionParamsData struct {
	Token string `json:"token"`
}

// Response is any frame that carries an id: query/mutation replies and subscription pushes.
type Response struct {
	ID     *uint64 `json:"id"`
	Result *Result `json:"result,omitempty"`
	Error  *Error  `json:"error,omitempty"`
}

// Result is the result object of a response frame.
type Result struct {
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Error describes a server-side failure.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries optional HTTP-flavoured detail.
type ErrorData struct {
	HTTPStatus int    `json:"httpStatus,omitempty"`
	Code       string `json:"code,omitempty"`
}

// HandshakeData is the payload of others.handshake.
type HandshakeData struct {
	HandshakeHash string `json:"handshakeHash"`
}

// JoinInput is the input of others.joinServer.
type JoinInput struct {
	HandshakeHash string `json:"handshakeHash"`
}

// Snapshot is the initial server state returned by others.joinServer.
// Entities stay loosely typed here; the cache layer decodes them.
type Snapshot struct {
	Roles          []map[string]any `json:"roles"`
	Categories     []map[string]any `json:"categories"`
	Channels       []map[string]any `json:"channels"`
	Users          []map[string]any `json:"users"`
	OwnUserID      int64            `json:"ownUserId"`
	PublicSettings map[string]any   `json:"publicSettings"`
}

// NewRequest builds a request frame, encoding input when present.
func NewRequest(id uint64, method, path string, input any) (Request, error) {
	req := Request{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  Params{Path: path},
	}
	if input == nil {
		return req, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return req, err
	}
	req.Params.Input = raw
	return req, nil
}
