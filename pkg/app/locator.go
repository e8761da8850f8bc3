package app

import (
	"context"
	"errors"
	"sync"

	"github.com/irislabs/go-iris/pkg/navigate"
)

// ErrNoLocationFix is returned while waiting for the client's first
// geolocation report. Unlike denial or unsupported, this clears on
// its own once a fix arrives.
var ErrNoLocationFix = errors.New("app: no location fix yet")

// RelayLocator is a navigate.Locator fed by the browser client. The
// client watches geolocation and relays fixes (or the permission
// outcome) to the service; the navigation loop reads the latest fix.
type RelayLocator struct {
	mu          sync.Mutex
	pos         navigate.Position
	hasFix      bool
	denied      bool
	unsupported bool
}

// NewRelayLocator creates an empty locator. Until the client reports
// anything, Current returns ErrNoLocationFix.
func NewRelayLocator() *RelayLocator {
	return &RelayLocator{}
}

// Update records a position fix from the client.
func (l *RelayLocator) Update(pos navigate.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pos = pos
	l.hasFix = true
	l.denied = false
	l.unsupported = false
}

// SetDenied records that the user denied location permission.
// Terminal until the client reports a fix again after a settings
// change.
func (l *RelayLocator) SetDenied() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.denied = true
}

// SetUnsupported records that the device has no geolocation.
func (l *RelayLocator) SetUnsupported() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsupported = true
}

// Current returns the latest fix, or the terminal permission error.
func (l *RelayLocator) Current(ctx context.Context) (navigate.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.denied {
		return navigate.Position{}, navigate.ErrPermissionDenied
	}
	if l.unsupported {
		return navigate.Position{}, navigate.ErrUnsupported
	}
	if !l.hasFix {
		return navigate.Position{}, ErrNoLocationFix
	}
	return l.pos, nil
}

var _ navigate.Locator = (*RelayLocator)(nil)
