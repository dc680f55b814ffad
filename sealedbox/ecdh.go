package sealedbox

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
)

// rawSharedSecret computes the raw X coordinate of priv*pub on their common
// curve, left-padded to the curve's field size, matching the shape the PIV
// card's own ECDH primitive returns (piv.ECDH).
func rawSharedSecret(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) []byte {
	x, _ := priv.Curve.ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	return leftPad(x, fieldBytes(priv.Curve))
}

func fieldBytes(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}

func leftPad(x *big.Int, size int) []byte {
	b := x.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
