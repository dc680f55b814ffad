package piv

import (
	"errors"
	"fmt"
)

// ReadSlot reads and caches the certificate, subject, and SSH-wire public
// key for id, repopulating the token's slot inventory (spec.md §3
// lifecycle: "slots... are repopulated by read_cert"). Requires an open
// transaction.
func (t *Token) ReadSlot(id SlotID) (*Slot, error) {
	cert, err := readCert(t.session, id)
	if err != nil {
		return nil, err
	}

	alg, err := algorithmForKey(cert)
	if err != nil {
		return nil, err
	}
	pub, err := sshPublicKey(cert)
	if err != nil {
		return nil, err
	}

	slot := &Slot{
		ID:          id,
		Algorithm:   alg,
		Certificate: cert,
		Subject:     cert.Subject.String(),
		PublicKey:   pub,
	}

	t.replaceSlot(slot)
	t.cacheSlot(slot)
	return slot, nil
}

func (t *Token) replaceSlot(s *Slot) {
	for i, existing := range t.Slots {
		if existing.ID == s.ID {
			t.Slots[i] = s
			return
		}
	}
	t.Slots = append(t.Slots, s)
}

// ReadAllSlots reads every certificate-bearing slot (9A/9C/9D/9E),
// tolerating ErrNotFound for slots with no key yet provisioned.
func (t *Token) ReadAllSlots() error {
	for _, id := range certSlots {
		if _, err := t.ReadSlot(id); err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("read slot %v: %w", id, err)
			}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
