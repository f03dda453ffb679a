package ipcwire

import (
	"context"
	"sync"
)

// ExecutionContext carries one dispatch through the pipeline. It is created
// per inbound message and shared by reference between guards, parameter
// roles, the handler and filters, so a payload replaced by one stage is seen
// by the next.
type ExecutionContext struct {
	ctx    context.Context
	class  *Class
	method *Method
	path   string
	event  any

	mu      sync.RWMutex
	payload any
}

// NewExecutionContext builds a context for a dispatch of method on class.
func NewExecutionContext(ctx context.Context, class *Class, method *Method, path string, payload, event any) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ExecutionContext{
		ctx:     ctx,
		class:   class,
		method:  method,
		path:    path,
		payload: payload,
		event:   event,
	}
}

// Context returns the context.Context of the dispatch.
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// Class returns the controller class handling the dispatch.
func (ec *ExecutionContext) Class() *Class { return ec.class }

// Method returns the handler method.
func (ec *ExecutionContext) Method() *Method { return ec.method }

// Path returns the channel the message was addressed to.
func (ec *ExecutionContext) Path() string { return ec.path }

// Event returns the raw transport event. Its type is owned by the transport.
func (ec *ExecutionContext) Event() any { return ec.event }

// Payload returns the current payload.
func (ec *ExecutionContext) Payload() any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.payload
}

// SetPayload replaces the payload for the remaining stages.
func (ec *ExecutionContext) SetPayload(payload any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.payload = payload
}
