package types

import "strings"

// SubscriptionMode defines whether a ChainClient talks to its node over a
// push (WebSocket) or pull (HTTP polling) transport.
type SubscriptionMode int

const (
	WebSocketMode SubscriptionMode = iota
	HTTPPollingMode
)

// GetSubscriptionMode returns the mode implied by an RPC URL's scheme.
func GetSubscriptionMode(rpcURL string) SubscriptionMode {
	if strings.HasPrefix(rpcURL, "wss://") || strings.HasPrefix(rpcURL, "ws://") {
		return WebSocketMode
	}
	return HTTPPollingMode
}

func (m SubscriptionMode) String() string {
	switch m {
	case WebSocketMode:
		return "WebSocket"
	case HTTPPollingMode:
		return "HTTP"
	default:
		return "Unknown"
	}
}

// DeriveWebSocketURL rewrites an HTTPS JSON-RPC URL into its WebSocket
// counterpart: https -> wss, and the common Infura-style
// "/v3" path segment -> "/ws/v3". URLs that are already ws/wss, or that
// don't match the rewrite pattern, are returned unchanged.
func DeriveWebSocketURL(httpURL string) string {
	if GetSubscriptionMode(httpURL) == WebSocketMode {
		return httpURL
	}

	wsURL := httpURL
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "/v3", "/ws/v3", 1)

	return wsURL
}
