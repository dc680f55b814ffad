package sealedbox

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// DefaultKDF is the named digest used when SealOptions doesn't name one,
// per spec.md §4.7 step 3: a plain named-digest KDF, not HKDF.
const DefaultKDF = "sha512"

func kdfDigest(name string, secret []byte, keyLen int) ([]byte, error) {
	var sum []byte
	switch name {
	case "sha512":
		s := sha512.Sum512(secret)
		sum = s[:]
	case "sha256":
		s := sha256.Sum256(secret)
		sum = s[:]
	default:
		return nil, fmt.Errorf("sealedbox: unknown KDF %q", name)
	}
	if keyLen > len(sum) {
		return nil, fmt.Errorf("sealedbox: KDF %q digest too short (%d bytes) for a %d-byte key", name, len(sum), keyLen)
	}
	return sum[:keyLen], nil
}
