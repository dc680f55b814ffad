package sealedbox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultCipher is the AEAD cipher name used when SealOptions doesn't name
// one, per spec.md §4.7 step 6.
const DefaultCipher = "chacha20-poly1305"

// cipherSpec names one AEAD this package knows how to construct, plus the
// block size the sealed-box padding scheme pads to (1 means "no padding":
// a stream cipher has no block alignment to hide).
type cipherSpec struct {
	keySize   int
	ivSize    int
	blockSize int
	newAEAD   func(key []byte) (cipher.AEAD, error)
}

var cipherRegistry = map[string]cipherSpec{
	"chacha20-poly1305": {
		keySize:   chacha20poly1305.KeySize,
		ivSize:    chacha20poly1305.NonceSize,
		blockSize: 1,
		newAEAD:   chacha20poly1305.New,
	},
	"aes-256-gcm": {
		keySize:   32,
		ivSize:    12,
		blockSize: aes.BlockSize,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(block)
		},
	},
}

func lookupCipher(name string) (cipherSpec, error) {
	spec, ok := cipherRegistry[name]
	if !ok {
		return cipherSpec{}, fmt.Errorf("sealedbox: unknown cipher %q", name)
	}
	return spec, nil
}
