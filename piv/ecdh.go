package piv

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
)

// ECDH performs the card's ECDH primitive on slot with peer as the other
// party's public point, returning the raw shared-secret X coordinate
// (spec.md §4.5 GENERAL AUTHENTICATE ECDH usage). slot's algorithm selects
// the curve and GENERAL AUTHENTICATE algorithm byte.
func ECDH(t *Token, slot *Slot, peer *ecdsa.PublicKey) ([]byte, error) {
	var curve elliptic.Curve
	switch slot.Algorithm {
	case AlgECCP256:
		curve = elliptic.P256()
	case AlgECCP384:
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("%w: slot algorithm %v does not support ECDH", ErrUnsupported, slot.Algorithm)
	}
	if peer.Curve != curve {
		return nil, fmt.Errorf("%w: peer public key curve does not match slot algorithm %v", ErrInvalid, slot.Algorithm)
	}

	point := elliptic.Marshal(curve, peer.X, peer.Y)
	return rawECDH(t, slot.Algorithm, slot.ID, point)
}
