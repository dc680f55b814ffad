package sealedbox

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/pivhold/piv/piv"
)

// version is the only envelope format this package produces or accepts.
const version uint8 = 1

// Box is a self-describing sealed-box envelope, per spec.md §3/§4.7: enough
// fields to locate the card that can open it and the cipher/KDF names
// needed to do so, without any side-channel configuration.
type Box struct {
	Version uint8
	GUID    uuid.UUID
	Slot    piv.SlotID

	EphemeralPub  ssh.PublicKey
	RecipientPub  ssh.PublicKey
	CipherName    string
	KDFName       string
	IV            []byte
	Ciphertext    []byte

	// plaintext is the transient decrypted payload, populated by a
	// successful Unseal* call. Close zeroes it; Take hands the buffer itself
	// to the caller and drops the box's reference without zeroing it.
	plaintext []byte
}

// Plaintext returns the box's decrypted payload, or nil if it hasn't been
// unsealed yet.
func (b *Box) Plaintext() []byte {
	return b.plaintext
}

// Take hands the decrypted plaintext to the caller and clears the box's own
// reference to it, so only one owner zeroes it.
func (b *Box) Take() []byte {
	p := b.plaintext
	b.plaintext = nil
	return p
}

// Close zeroes any transient plaintext still held by the box. Safe to call
// on a box that was never unsealed.
func (b *Box) Close() {
	zero(b.plaintext)
	b.plaintext = nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
