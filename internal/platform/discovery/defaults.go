// Package discovery centralizes internal service-discovery conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceCombat is the combat authority identity.
	ServiceCombat = "combat"
	// ServiceJaeger is the jaeger HTTP service identity.
	ServiceJaeger = "jaeger"
)

// RelayPath is where the combat authority accepts websocket peers.
const RelayPath = "/combat/ws"

var httpPorts = map[string]int{
	ServiceCombat: 8090,
	ServiceJaeger: 16686,
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	port, ok := httpPorts[strings.TrimSpace(service)]
	if !ok || port <= 0 {
		return ""
	}
	return strings.TrimSpace(service) + ":" + strconv.Itoa(port)
}

// OrDefaultHTTPAddr returns value when set, otherwise the service convention.
func OrDefaultHTTPAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultHTTPAddr(service)
}

// OrDefaultRelayURL returns value when set, otherwise ws://<service-host:port>
// followed by the relay path.
func OrDefaultRelayURL(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	addr := DefaultHTTPAddr(service)
	if addr == "" {
		return ""
	}
	return "ws://" + addr + RelayPath
}
