package sealedbox

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/pivhold/piv/piv"
)

// SealOptions names the cipher and KDF to use; empty fields fall back to
// DefaultCipher/DefaultKDF.
type SealOptions struct {
	Cipher string
	KDF    string
}

// Seal performs the ephemeral-static ECDH handshake of spec.md §4.7 against
// recipient (the target slot's public key) and encrypts plaintext, binding
// the envelope to guid/slot as a locator hint for Find.
func Seal(guid uuid.UUID, slot piv.SlotID, recipient *ecdsa.PublicKey, plaintext []byte, opts SealOptions) (*Box, error) {
	cipherName := opts.Cipher
	if cipherName == "" {
		cipherName = DefaultCipher
	}
	kdfName := opts.KDF
	if kdfName == "" {
		kdfName = DefaultKDF
	}
	spec, err := lookupCipher(cipherName)
	if err != nil {
		return nil, err
	}

	ephemeral, err := ecdsa.GenerateKey(recipient.Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: generate ephemeral key: %w", err)
	}

	secret := rawSharedSecret(ephemeral, recipient)
	defer zero(secret)

	key, err := kdfDigest(kdfName, secret, spec.keySize)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := spec.newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: construct AEAD: %w", err)
	}

	iv := make([]byte, spec.ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("sealedbox: draw IV: %w", err)
	}

	padded := pad(plaintext, spec.blockSize)
	ciphertext := aead.Seal(nil, iv, padded, nil)

	ephemeralPub, err := ssh.NewPublicKey(&ephemeral.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: marshal ephemeral public key: %w", err)
	}
	recipientPub, err := ssh.NewPublicKey(recipient)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: marshal recipient public key: %w", err)
	}

	return &Box{
		Version:      version,
		GUID:         guid,
		Slot:         slot,
		EphemeralPub: ephemeralPub,
		RecipientPub: recipientPub,
		CipherName:   cipherName,
		KDFName:      kdfName,
		IV:           iv,
		Ciphertext:   ciphertext,
	}, nil
}
