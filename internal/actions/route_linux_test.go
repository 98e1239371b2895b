//go:build linux

package actions

import (
	"context"
	"testing"
	"time"

	"github.com/danmuck/uartctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteProberFindsLoopback(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, RouteProber{}.Probe(ctx, "127.0.0.1"))
	require.NoError(t, RouteProber{}.Probe(ctx, " 127.0.0.1 "))
}

func TestRouteProberUnresolvableName(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := RouteProber{}.Probe(ctx, "nohost.invalid")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestResolveIPLiteral(t *testing.T) {
	ip, err := resolveIP(context.Background(), "10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", ip.String())
}
