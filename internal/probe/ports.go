package probe

import (
	"net"
	"strconv"
)

// DefaultPortSpan is how many ports after the preferred one are tried.
const DefaultPortSpan = 10

// PortAvailable reports whether a TCP listener can be bound on host:port.
// Any bind failure, address-in-use or otherwise, counts as unavailable.
func PortAvailable(host string, port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// ResolvePort probes preferred, preferred+1 .. preferred+span in order and
// returns the first available port. When none is available it returns the
// preferred port with fallback set.
func ResolvePort(host string, preferred, span int, available func(string, int) bool) (port int, fallback bool) {
	if available == nil {
		available = PortAvailable
	}
	if span < 0 {
		span = 0
	}
	for p := preferred; p <= preferred+span; p++ {
		if available(host, p) {
			return p, false
		}
	}
	return preferred, true
}
