package authority

import (
	"context"
	"sync"
)

// LocalChannel delivers messages to handlers registered in the same process.
// It backs single-process games and tests.
type LocalChannel struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

// NewLocalChannel returns an empty channel.
func NewLocalChannel() *LocalChannel {
	return &LocalChannel{handlers: make(map[string]MessageHandler)}
}

// OnMessage registers handler for kind, replacing any previous one.
func (c *LocalChannel) OnMessage(kind string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]MessageHandler)
	}
	c.handlers[kind] = handler
}

// EmitToAuthority hands msg to the registered handler and returns its ack.
func (c *LocalChannel) EmitToAuthority(ctx context.Context, msg Message) (Ack, error) {
	c.mu.RLock()
	handler := c.handlers[msg.Kind]
	c.mu.RUnlock()
	if handler == nil {
		return Ack{}, ErrNoAuthority
	}
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	return handler(ctx, msg), nil
}
