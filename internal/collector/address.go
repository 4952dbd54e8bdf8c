package collector

import (
	"context"
	"net"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

const (
	// probeAddr is only used to pick the outbound route; UDP connect sends nothing.
	probeAddr    = "8.8.8.8:80"
	probeTimeout = 2 * time.Second
	loopbackIPv4 = "127.0.0.1"
)

// resolveIPAddress returns the best-effort primary IPv4 address of the host.
func resolveIPAddress(ctx context.Context) string {
	if ip, ok := outboundIP(ctx); ok {
		return ip
	}
	if ip, ok := interfaceIP(ctx); ok {
		return ip
	}
	return loopbackIPv4
}

func outboundIP(ctx context.Context) (string, bool) {
	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "udp", probeAddr)
	if err != nil {
		return "", false
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return "", false
	}
	return addr.IP.String(), true
}

func interfaceIP(ctx context.Context) (string, bool) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return "", false
	}
	return firstRoutableIPv4(ifaces)
}

// firstRoutableIPv4 picks the first IPv4 address of an interface that is up
// and not a loopback.
func firstRoutableIPv4(ifaces psnet.InterfaceStatList) (string, bool) {
	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				ip = net.ParseIP(a.Addr)
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			return ip.String(), true
		}
	}
	return "", false
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
