package sealedbox

import (
	"crypto/ecdsa"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/pivhold/piv/piv"
)

// UnsealOffline performs the ECDH locally with the recipient's private key
// (spec.md §4.7 "Unseal (offline)"), then decrypts identically to the
// card-backed path.
func UnsealOffline(priv *ecdsa.PrivateKey, box *Box) ([]byte, error) {
	ephemeral, err := ecdsaPublicKey(box.EphemeralPub)
	if err != nil {
		return nil, err
	}
	secret := rawSharedSecret(priv, ephemeral)
	defer zero(secret)
	return box.decrypt(secret)
}

// UnsealCard invokes the card's ECDH primitive on slot with the envelope's
// ephemeral public key as the peer point, then decrypts identically.
func UnsealCard(t *piv.Token, slot *piv.Slot, box *Box) ([]byte, error) {
	ephemeral, err := ecdsaPublicKey(box.EphemeralPub)
	if err != nil {
		return nil, err
	}
	secret, err := piv.ECDH(t, slot, ephemeral)
	if err != nil {
		return nil, err
	}
	defer zero(secret)
	return box.decrypt(secret)
}

func (b *Box) decrypt(secret []byte) ([]byte, error) {
	spec, err := lookupCipher(b.CipherName)
	if err != nil {
		return nil, err
	}
	key, err := kdfDigest(b.KDFName, secret, spec.keySize)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := spec.newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: construct AEAD: %w", err)
	}

	// Per spec.md §9, any padding pad() added is not stripped back off here:
	// it isn't self-describing once the real plaintext can itself end in
	// small integers, so the true length is out-of-band caller knowledge
	// for blockSize>1 ciphers. The default cipher never pads, so this is
	// already the exact plaintext for it.
	plaintext, err := aead.Open(nil, b.IV, b.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	b.plaintext = plaintext
	return plaintext, nil
}

// ecdsaPublicKey recovers the crypto/ecdsa key underlying an SSH-wire
// public key, the form every key in a Box is stored as.
func ecdsaPublicKey(pub ssh.PublicKey) (*ecdsa.PublicKey, error) {
	cpk, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("sealedbox: public key type %T has no underlying crypto key", pub)
	}
	ecPub, ok := cpk.CryptoPublicKey().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("sealedbox: public key is not an EC key")
	}
	return ecPub, nil
}
