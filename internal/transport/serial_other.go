//go:build !linux

package transport

import "fmt"

func openSerial(device string, _ int) (Link, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, device)
}
