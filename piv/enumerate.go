package piv

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/pivlog"
)

const defaultSlotCacheSize = 256

// Inventory is an owned collection of enumerated Tokens, replacing the
// source's intrusive singly-linked token list (SPEC_FULL §9/spec.md §9):
// each Token owns its Slots, and the whole Inventory is released together
// by Close.
type Inventory struct {
	ctx    *apduproto.Context
	Tokens []*Token
}

// EnumerateOptions configures Enumerate.
type EnumerateOptions struct {
	Log pivlog.Logger
	// SlotCacheSize bounds the shared LRU cache of (GUID, slot)->*Slot
	// that ReadSlot populates; 0 selects a sane default.
	SlotCacheSize int
}

// Enumerate opens a PC/SC context, lists readers, and connects to and
// selects the PIV applet on every card present, building the Inventory per
// spec.md §2's control flow. Tokens that don't answer SELECT
// are skipped, not fatal.
func Enumerate(opts EnumerateOptions) (*Inventory, error) {
	if opts.Log == nil {
		opts.Log = pivlog.Discard()
	}
	size := opts.SlotCacheSize
	if size <= 0 {
		size = defaultSlotCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("piv: create slot cache: %w", err)
	}

	ctx, err := apduproto.EstablishContext()
	if err != nil {
		return nil, err
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, err
	}

	inv := &Inventory{ctx: ctx}
	for _, name := range readers {
		tok, err := connectToken(ctx, name, cache, opts.Log)
		if err != nil {
			opts.Log.WithField("reader", name).Warnf("skipping reader: %v", err)
			continue
		}
		if tok == nil {
			continue
		}
		inv.Tokens = append(inv.Tokens, tok)
	}
	return inv, nil
}

func connectToken(ctx *apduproto.Context, readerName string, cache *lru.Cache, log pivlog.Logger) (*Token, error) {
	conn, protocol, err := ctx.Connect(readerName)
	if err != nil {
		return nil, err
	}

	session := apduproto.NewSession(conn, protocol, log.WithField("reader", readerName))
	tok := &Token{
		ReaderName: readerName,
		Protocol:   protocol,
		session:    session,
		conn:       conn,
		log:        log,
		slotCache:  cache,
	}

	if err := tok.BeginTransaction(); err != nil {
		conn.Disconnect(apduproto.Leave)
		return nil, err
	}
	defer tok.EndTransaction() //nolint:errcheck // enumeration degrades to "skip this reader" on error

	algs, err := selectApplet(session)
	if err != nil {
		conn.Disconnect(apduproto.Leave)
		return nil, err
	}
	tok.Algorithms = algs

	guid, ok, err := readCHUID(session)
	if err != nil {
		tok.log.Warnf("CHUID unreadable: %v", err)
		tok.NoCHUID = true
	} else if !ok {
		tok.NoCHUID = true
	} else {
		tok.GUID = guidToUUID(guid)
	}

	tok.YubiKey, tok.YubiKeyVersion = probeYubiKey(session)

	return tok, nil
}

// Close releases every token's transaction and connection, then the shared
// PC/SC context.
func (inv *Inventory) Close() error {
	var firstErr error
	for _, tok := range inv.Tokens {
		if err := tok.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := inv.ctx.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
