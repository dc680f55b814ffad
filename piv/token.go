// Package piv drives PIV (NIST SP 800-73) smart cards: application
// selection, data object retrieval, key generation, signing, ECDH, and
// PIN/admin authentication, over the transactional APDU session in
// internal/apduproto.
package piv

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/blang/semver"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/ssh"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/pivlog"
)

// Slot is one key slot on a Token: its id, the algorithm the key/cert on
// it uses, and the parsed certificate and derived public key once read.
type Slot struct {
	ID          SlotID
	Algorithm   Algorithm
	Certificate *x509.Certificate
	Subject     string
	PublicKey   ssh.PublicKey
}

// Token represents one card visible through one reader: its protocol
// session, CHUID-derived GUID, vendor extensions, and slot inventory.
type Token struct {
	ReaderName string
	Protocol   apduproto.Protocol

	GUID    uuid.UUID
	NoCHUID bool

	YubiKey        bool
	YubiKeyVersion semver.Version

	Algorithms []Algorithm
	Slots      []*Slot

	session *apduproto.Session
	conn    *apduproto.ScardSession
	log     pivlog.Logger

	slotCache *lru.Cache // (GUID, SlotID) -> *Slot, shared across an Inventory's tokens
}

// slotCacheKey identifies one slot on one token for the shared LRU cache
// that ReadSlot populates. The sealed-box binding lookup (FindToken) does
// not read this cache; it relies on each token's own Slots list.
type slotCacheKey struct {
	guid uuid.UUID
	slot SlotID
}

// BeginTransaction acquires exclusive access to the card for the PIV
// operations that follow. Every APDU-issuing method on Token requires an
// open transaction; see spec.md §5.
func (t *Token) BeginTransaction() error {
	return t.session.Begin()
}

// EndTransaction releases the transaction, resetting the card if any
// operation since BeginTransaction mutated authentication state.
func (t *Token) EndTransaction() error {
	return t.session.End()
}

// Close ends any open transaction and disconnects from the card, releasing
// the token's reader handle. Slots are released along with their owning
// token.
func (t *Token) Close() error {
	if t.session.InTransaction() {
		if err := t.EndTransaction(); err != nil {
			return err
		}
	}
	return t.conn.Disconnect(apduproto.Leave)
}

// Slot returns the cached Slot for id, if the token's inventory has one.
func (t *Token) Slot(id SlotID) *Slot {
	for _, s := range t.Slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (t *Token) cacheSlot(s *Slot) {
	if t.slotCache == nil {
		return
	}
	t.slotCache.Add(slotCacheKey{t.GUID, s.ID}, s)
}

func (t *Token) cachedSlot(id SlotID) (*Slot, bool) {
	if t.slotCache == nil {
		return nil, false
	}
	v, ok := t.slotCache.Get(slotCacheKey{t.GUID, id})
	if !ok {
		return nil, false
	}
	return v.(*Slot), true
}

// guidFromFASCN derives a stable 16-byte identifier from a CHUID's FASC-N
// field when the card omits the dedicated GUID subtag (0x34). This is a
// student enrichment (SPEC_FULL §6), not a port of original_source/piv.c —
// piv_read_chuid there reads the GUID only from tag 0x34 and otherwise
// leaves it zero. Kept because a card with no GUID subtag is not
// necessarily a card with no stable identity: FASC-N long predates the
// GUID subtag in the CHUID container, and a FASC-N-derived hint is a
// stronger Find locator than a zero GUID.
func guidFromFASCN(fascn []byte) uuid.UUID {
	sum := sha256.Sum256(fascn)
	var u uuid.UUID
	copy(u[:], sum[:16])
	return u
}

// guidToUUID wraps a raw 16-byte CHUID GUID as a uuid.UUID.
func guidToUUID(b [16]byte) uuid.UUID {
	var u uuid.UUID
	copy(u[:], b[:])
	return u
}

func (t *Token) String() string {
	return fmt.Sprintf("Token{reader=%q guid=%s protocol=%s}", t.ReaderName, t.GUID, t.Protocol)
}
