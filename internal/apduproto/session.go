// Package apduproto is the APDU transport, command/response chaining, and
// transaction/session layer underneath the PIV command surface. It talks to
// a card exclusively through the CardSession seam so the PC/SC stack
// (github.com/ebfe/scard) stays an external, swappable collaborator.
package apduproto

import (
	"errors"
	"fmt"

	"github.com/pivhold/piv/internal/pivlog"
)

// ErrTransport reports a failure in the reader stack itself (not a card
// status word), retryable by the caller.
var ErrTransport = errors.New("apduproto: transport error")

// Disposition selects how a transaction or connection is released.
type Disposition int

const (
	// Leave releases the card without resetting it; authentication state
	// (PIN verified, admin authenticated) survives into the next
	// transaction.
	Leave Disposition = iota
	// Reset performs a physical card reset on release, clearing any
	// authentication state.
	Reset
)

// Protocol identifies the active ISO 7816-3 transport protocol.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolT0
	ProtocolT1
)

func (p Protocol) String() string {
	switch p {
	case ProtocolT0:
		return "T=0"
	case ProtocolT1:
		return "T=1"
	default:
		return "T=?"
	}
}

// CardSession is the transactional transceive surface the protocol engine
// needs from a connected card. ScardSession (wrapping *scard.Card) and the
// test mockSession both satisfy it.
type CardSession interface {
	Transmit(cmd []byte) ([]byte, error)
	BeginTransaction() error
	EndTransaction(d Disposition) error
}

// Session tracks one card's transaction state: whether a transaction is
// currently open, and whether ending it must force a physical reset
// because some operation inside it mutated authentication state.
type Session struct {
	conn          CardSession
	Protocol      Protocol
	log           pivlog.Logger
	inTransaction bool
	mustReset     bool
}

// NewSession wraps conn. log may be nil, in which case log output is
// discarded.
func NewSession(conn CardSession, protocol Protocol, log pivlog.Logger) *Session {
	if log == nil {
		log = pivlog.Discard()
	}
	return &Session{conn: conn, Protocol: protocol, log: log}
}

// Begin acquires exclusive access to the card. Reentrant Begin is a
// programmer error.
func (s *Session) Begin() error {
	if s.inTransaction {
		panic("apduproto: reentrant Begin on a session already in a transaction")
	}
	if err := s.conn.BeginTransaction(); err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrTransport, err)
	}
	s.inTransaction = true
	s.mustReset = false
	s.log.Debugf("transaction begin")
	return nil
}

// End releases the transaction, requesting a physical reset if any
// operation inside it set RequireReset.
func (s *Session) End() error {
	if !s.inTransaction {
		panic("apduproto: End called without a matching Begin")
	}
	d := Leave
	if s.mustReset {
		d = Reset
	}
	err := s.conn.EndTransaction(d)
	s.inTransaction = false
	s.mustReset = false
	s.log.Debugf("transaction end disposition=%v", d)
	if err != nil {
		return fmt.Errorf("%w: end transaction: %v", ErrTransport, err)
	}
	return nil
}

// InTransaction reports whether Begin has been called without a matching
// End.
func (s *Session) InTransaction() bool {
	return s.inTransaction
}

// RequireReset marks the session so that the next End forces a physical
// card reset. Called by any PIV operation that alters authentication state
// (admin auth, PIN verify, CHANGE REFERENCE DATA).
func (s *Session) RequireReset() {
	s.mustReset = true
}
