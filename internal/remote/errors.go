package remote

import "fmt"

// TransportError reports a failed exchange with the remote ORM: the request
// could not be sent, the status was not 2xx, or the body was not a valid
// JSON-RPC result. It is recoverable.
type TransportError struct {
	Op         string
	StatusCode int
	Offline    bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SyncRejected reports a sync batch the server answered with success=false.
type SyncRejected struct {
	Message string
}

func (e *SyncRejected) Error() string {
	if e.Message == "" {
		return "remote sync rejected"
	}
	return "remote sync rejected: " + e.Message
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
