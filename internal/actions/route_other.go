//go:build !linux

package actions

import "context"

type RouteProber struct{}

func (RouteProber) Probe(context.Context, string) error {
	return ErrRouteUnsupported
}
