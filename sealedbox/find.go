package sealedbox

import (
	"bytes"
	"errors"

	"github.com/pivhold/piv/piv"
)

// ErrNoMatchingToken is returned by FindToken when neither a GUID match nor
// a public-key match against any enumerated token's nominated slot
// succeeds.
var ErrNoMatchingToken = errors.New("sealedbox: no enumerated token matches this envelope")

// FindToken locates the token (and its slot) that can open box, per
// spec.md §4.7's binding lookup: first by GUID, then — if no card in inv
// carries that GUID — by reading each token's nominated slot on demand and
// comparing public keys against the envelope's recipient hint.
func FindToken(inv *piv.Inventory, box *Box) (*piv.Token, *piv.Slot, error) {
	slotID := effectiveSlot(box.Slot)

	for _, tok := range inv.Tokens {
		if tok.GUID == box.GUID {
			slot, err := resolveSlot(tok, slotID)
			if err != nil {
				return nil, nil, err
			}
			return tok, slot, nil
		}
	}

	wantKey := box.RecipientPub.Marshal()
	for _, tok := range inv.Tokens {
		slot, err := resolveSlot(tok, slotID)
		if err != nil {
			continue
		}
		if slot.PublicKey != nil && bytes.Equal(slot.PublicKey.Marshal(), wantKey) {
			return tok, slot, nil
		}
	}

	return nil, nil, ErrNoMatchingToken
}

// effectiveSlot maps the wire "not card-bound" slot values (spec.md line
// 177: 0 or 0xFF) to the key-management slot, matching piv.c's
// piv_box_find_token defaulting slotid to PIV_SLOT_KEY_MGMT before the
// public-key fallback scan.
func effectiveSlot(id piv.SlotID) piv.SlotID {
	if id == 0 || id == 0xFF {
		return piv.SlotKeyManagement
	}
	return id
}

// resolveSlot returns slot id from tok's own slot list, reading it under a
// fresh transaction if the list doesn't have it yet. The shared slot cache
// is not consulted here.
func resolveSlot(tok *piv.Token, id piv.SlotID) (*piv.Slot, error) {
	if slot := tok.Slot(id); slot != nil {
		return slot, nil
	}

	if err := tok.BeginTransaction(); err != nil {
		return nil, err
	}
	defer tok.EndTransaction() //nolint:errcheck // best-effort release; the read result stands either way

	return tok.ReadSlot(id)
}
