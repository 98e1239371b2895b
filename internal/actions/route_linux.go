//go:build linux

package actions

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/vishvananda/netlink"
)

// RouteProber asks the kernel for a route to the address.
// It proves a next hop exists, not that the host answers.
type RouteProber struct{}

func (RouteProber) Probe(ctx context.Context, address string) error {
	ip, err := resolveIP(ctx, address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	routes, err := netlink.RouteGet(ip)
	if err != nil {
		return fmt.Errorf("%w: route get %s: %v", ErrUnreachable, ip, err)
	}
	if len(routes) == 0 {
		return fmt.Errorf("%w: no route to %s", ErrUnreachable, ip)
	}
	return nil
}

func resolveIP(ctx context.Context, address string) (net.IP, error) {
	address = strings.TrimSpace(address)
	if ip := net.ParseIP(address); ip != nil {
		return ip, nil
	}
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip", address)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %q", address)
	}
	return addrs[0], nil
}
