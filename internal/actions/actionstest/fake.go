// Package actionstest provides a scripted actions.Provider for tests.
package actionstest

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/uartctl/internal/protocol"
)

var ErrScripted = errors.New("actionstest: scripted failure")

// Provider records calls and returns scripted outcomes.
// RetrieveResults is consumed one entry per Retrieve call; once empty, retrievals succeed.
type Provider struct {
	VersionString   string
	Reachable       bool
	RetrieveResults []bool
	ShutdownErr     error
	// OnRetrieve runs before each retrieval returns, with the 1-based call number.
	OnRetrieve func(call int)

	mu        sync.Mutex
	probes    []string
	retrieves int
	shutdowns int
}

func New() *Provider {
	return &Provider{VersionString: protocol.FirmwareVersion, Reachable: true}
}

func (p *Provider) Version(context.Context) string {
	return p.VersionString
}

func (p *Provider) Probe(_ context.Context, address string) error {
	p.mu.Lock()
	p.probes = append(p.probes, address)
	p.mu.Unlock()
	if !p.Reachable {
		return ErrScripted
	}
	return nil
}

// Retrieve fails with the context error once ctx is done, like a real transfer.
func (p *Provider) Retrieve(ctx context.Context) error {
	p.mu.Lock()
	p.retrieves++
	call := p.retrieves
	ok := true
	if len(p.RetrieveResults) > 0 {
		ok = p.RetrieveResults[0]
		p.RetrieveResults = p.RetrieveResults[1:]
	}
	hook := p.OnRetrieve
	p.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok {
		return ErrScripted
	}
	return nil
}

func (p *Provider) Shutdown(context.Context) error {
	p.mu.Lock()
	p.shutdowns++
	p.mu.Unlock()
	return p.ShutdownErr
}

func (p *Provider) Probes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probes...)
}

func (p *Provider) Retrieves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retrieves
}

func (p *Provider) Shutdowns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdowns
}
