package runtimeconn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// NormalizeAddress turns a user-supplied Runtime address into a WebSocket
// URL. A missing scheme becomes ws:// and a missing port becomes
// defaultPort, so "10.0.0.2" and "ws://10.0.0.2:5000" compare equal.
func NormalizeAddress(addr string, defaultPort int) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("runtimeconn: empty address")
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("runtimeconn: invalid address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("runtimeconn: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("runtimeconn: address %q has no host", addr)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(defaultPort))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}
