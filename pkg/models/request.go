package models

import "context"

// InvokeRequest is a point-to-point message with reply channel for synchronous communication
type InvokeRequest struct {
	Ctx       context.Context
	RequestID string
	Payload   string        // Raw configuration payload, passed through unvalidated
	ReplyCh   chan Response // Caller waits on this for synchronous reply
}

// Response contains result or error from service layer
type Response struct {
	Data  interface{}
	Error error
}
