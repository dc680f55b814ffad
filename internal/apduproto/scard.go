package apduproto

import (
	"fmt"

	"github.com/ebfe/scard"
)

// Context wraps a PC/SC resource manager context. It is the only file in
// this module that imports github.com/ebfe/scard directly; everything else
// talks to CardSession.
type Context struct {
	ctx *scard.Context
}

// EstablishContext opens a PC/SC context.
func EstablishContext() (*Context, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("%w: establish context: %v", ErrTransport, err)
	}
	return &Context{ctx: ctx}, nil
}

// Release releases the PC/SC context.
func (c *Context) Release() error {
	if err := c.ctx.Release(); err != nil {
		return fmt.Errorf("%w: release context: %v", ErrTransport, err)
	}
	return nil
}

// ListReaders returns the names of all readers visible to this context,
// connected or not.
func (c *Context) ListReaders() ([]string, error) {
	readers, err := c.ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("%w: list readers: %v", ErrTransport, err)
	}
	return readers, nil
}

// ScardSession adapts *scard.Card to CardSession.
type ScardSession struct {
	card *scard.Card
}

// Connect opens a shared connection to the card in reader, auto-negotiating
// T=0 or T=1, and returns the session plus the protocol it settled on.
func (c *Context) Connect(reader string) (*ScardSession, Protocol, error) {
	card, err := c.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, ProtocolUnknown, fmt.Errorf("%w: connect %q: %v", ErrTransport, reader, err)
	}
	status, err := card.Status()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		return nil, ProtocolUnknown, fmt.Errorf("%w: status %q: %v", ErrTransport, reader, err)
	}
	return &ScardSession{card: card}, protocolFromScard(status.ActiveProtocol), nil
}

func protocolFromScard(p scard.Protocol) Protocol {
	switch {
	case p&scard.ProtocolT0 != 0:
		return ProtocolT0
	case p&scard.ProtocolT1 != 0:
		return ProtocolT1
	default:
		return ProtocolUnknown
	}
}

// Transmit implements CardSession.
func (s *ScardSession) Transmit(cmd []byte) ([]byte, error) {
	return s.card.Transmit(cmd)
}

// BeginTransaction implements CardSession.
func (s *ScardSession) BeginTransaction() error {
	return s.card.BeginTransaction()
}

// EndTransaction implements CardSession.
func (s *ScardSession) EndTransaction(d Disposition) error {
	return s.card.EndTransaction(scardDisposition(d))
}

// Disconnect releases the card connection entirely (distinct from ending a
// transaction); d selects whether the card is left alone or reset on
// disconnect.
func (s *ScardSession) Disconnect(d Disposition) error {
	if err := s.card.Disconnect(scardDisposition(d)); err != nil {
		return fmt.Errorf("%w: disconnect: %v", ErrTransport, err)
	}
	return nil
}

func scardDisposition(d Disposition) scard.Disposition {
	if d == Reset {
		return scard.ResetCard
	}
	return scard.LeaveCard
}
