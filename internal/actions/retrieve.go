package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/uartctl/internal/tools"
	"github.com/rs/zerolog/log"
)

// CommandRetriever runs a local copy command such as scp or rsync.
type CommandRetriever struct {
	Runner  tools.CommandRunner
	Command []string
}

func (r CommandRetriever) Retrieve(ctx context.Context) error {
	runner := r.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	if err := runCommand(ctx, runner, r.Command); err != nil {
		return fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	return nil
}

// Fetcher streams one remote file; tools.SSHFetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, path string, dst io.Writer) error
}

// StreamRetriever copies RemotePath to LocalPath through a Fetcher.
// The local file is replaced only after a complete transfer.
type StreamRetriever struct {
	Fetcher    Fetcher
	RemotePath string
	LocalPath  string
}

func (r StreamRetriever) Retrieve(ctx context.Context) error {
	if r.Fetcher == nil || strings.TrimSpace(r.RemotePath) == "" || strings.TrimSpace(r.LocalPath) == "" {
		return fmt.Errorf("%w: fetcher, remote path and local path are required", ErrRetrieveFailed)
	}
	dir := filepath.Dir(r.LocalPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.LocalPath)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := r.Fetcher.Fetch(ctx, r.RemotePath, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	if err := os.Rename(tmpName, r.LocalPath); err != nil {
		return fmt.Errorf("%w: %v", ErrRetrieveFailed, err)
	}
	log.Debug().Msgf("actions.StreamRetriever.Retrieve remote=%q local=%q", r.RemotePath, r.LocalPath)
	return nil
}
