package ws

import "github.com/okian/scout/pkg/logger"

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets how many frames may wait for a slow client.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
