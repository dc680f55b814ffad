package piv

import (
	"errors"
	"fmt"

	"github.com/pivhold/piv/internal/apduproto"
)

// The five outward-visible error categories from spec.md §7. Callers use
// errors.Is against these sentinels; the concrete error additionally wraps
// the underlying status word or transport failure for diagnostics.
var (
	// ErrTransport mirrors apduproto.ErrTransport so callers of piv never
	// need to import the transport package to classify an error.
	ErrTransport = apduproto.ErrTransport
	// ErrNotFound: applet absent, file absent, slot empty.
	ErrNotFound = errors.New("piv: not found")
	// ErrPermission: PIN not verified, admin not authenticated, security
	// status not satisfied.
	ErrPermission = errors.New("piv: permission denied")
	// ErrInvalid: bad data, wrong status word, malformed response.
	ErrInvalid = errors.New("piv: invalid")
	// ErrUnsupported: a valid but unknown tag, a compressed certificate,
	// or a capability the card lacks.
	ErrUnsupported = errors.New("piv: unsupported")
)

func swError(kind error, sw uint16, format string, args ...interface{}) error {
	return fmt.Errorf("%s (SW=%04X): %w", fmt.Sprintf(format, args...), sw, kind)
}

// statusError maps a terminal PIV status word to one of the five error
// categories using the per-command tables in spec.md §4.5. It returns nil
// for a success status word (9000); callers that need the success payload
// check that separately.
func statusError(sw uint16, mapping map[uint16]error, defaultKind error) error {
	if sw == 0x9000 {
		return nil
	}
	if kind, ok := mapping[sw]; ok {
		return swError(kind, sw, "PIV command failed")
	}
	return swError(defaultKind, sw, "PIV command failed")
}
