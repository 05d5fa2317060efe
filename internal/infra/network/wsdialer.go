package network

import (
	"time"

	"github.com/gorilla/websocket"
)

// NewWSDialer returns a websocket dialer with explicit handshake and
// buffer settings shared by all venue adapters.
func NewWSDialer(dialTimeout time.Duration) *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: dialTimeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  16 * 1024,
	}
}
