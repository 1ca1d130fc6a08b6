package probe

import (
	"net"
	"testing"
)

func TestPortAvailable_BusyAndFree(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if PortAvailable("127.0.0.1", port) {
		ln.Close()
		t.Fatalf("expected port %d busy", port)
	}
	ln.Close()
	if !PortAvailable("127.0.0.1", port) {
		t.Fatalf("expected port %d free after close", port)
	}
}

func TestPortAvailable_BadHostIsUnavailable(t *testing.T) {
	if PortAvailable("256.0.0.1", 8000) {
		t.Fatalf("expected invalid host to be reported unavailable")
	}
}

func TestResolvePort_PreferredFree(t *testing.T) {
	p, fb := ResolvePort("127.0.0.1", 8000, DefaultPortSpan, func(string, int) bool { return true })
	if p != 8000 || fb {
		t.Fatalf("got port=%d fallback=%v", p, fb)
	}
}

func TestResolvePort_FirstFreeInOrder(t *testing.T) {
	var probed []int
	avail := func(_ string, p int) bool {
		probed = append(probed, p)
		return p == 8003 || p == 8005
	}
	p, fb := ResolvePort("127.0.0.1", 8000, DefaultPortSpan, avail)
	if p != 8003 || fb {
		t.Fatalf("got port=%d fallback=%v", p, fb)
	}
	want := []int{8000, 8001, 8002, 8003}
	if len(probed) != len(want) {
		t.Fatalf("probed=%v", probed)
	}
	for i := range want {
		if probed[i] != want[i] {
			t.Fatalf("probed=%v want %v", probed, want)
		}
	}
}

func TestResolvePort_AllBusyFallsBackToPreferred(t *testing.T) {
	n := 0
	p, fb := ResolvePort("127.0.0.1", 8000, DefaultPortSpan, func(string, int) bool { n++; return false })
	if p != 8000 || !fb {
		t.Fatalf("got port=%d fallback=%v", p, fb)
	}
	if n != 11 {
		t.Fatalf("expected 11 probes, got %d", n)
	}
}

func TestResolvePort_RealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port
	p, _ := ResolvePort("127.0.0.1", busy, 0, nil)
	if p != busy {
		t.Fatalf("span 0 must return preferred, got %d", p)
	}
	p, _ = ResolvePort("127.0.0.1", busy, DefaultPortSpan, nil)
	if p == busy {
		t.Fatalf("expected a port other than busy %d", busy)
	}
}
