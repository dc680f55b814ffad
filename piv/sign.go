package piv

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is an allowed, spec-mandated legacy option
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// HashAlgorithm is the caller-requested message digest for Sign.
type HashAlgorithm int

const (
	SHA1 HashAlgorithm = iota
	SHA256
	SHA384
)

// effectiveHash applies spec.md §4.6 step 1's coercion rules: RSA-1024/2048
// and ECC-P256 upgrade any non-SHA-1 request to SHA-256; ECC-P384 is always
// SHA-384 regardless of what was requested.
func effectiveHash(alg Algorithm, requested HashAlgorithm) HashAlgorithm {
	if alg == AlgECCP384 {
		return SHA384
	}
	if requested == SHA1 {
		return SHA1
	}
	return SHA256
}

func digestOf(h HashAlgorithm, msg []byte) []byte {
	switch h {
	case SHA1:
		sum := sha1.Sum(msg)
		return sum[:]
	case SHA384:
		sum := sha512.Sum384(msg)
		return sum[:]
	default:
		sum := sha256.Sum256(msg)
		return sum[:]
	}
}

// onCardHashVariant returns the algorithm byte to send to the card, and
// true, when the card advertises an on-card-hash ECCP256 variant matching
// the effective hash (spec.md §4.6 step 2); the caller then supplies the
// raw message instead of a digest.
func onCardHashVariant(slotAlg Algorithm, cardAlgs []Algorithm, h HashAlgorithm) (Algorithm, bool) {
	if slotAlg != AlgECCP256 {
		return 0, false
	}
	want := AlgECCP256SHA256
	if h == SHA1 {
		want = AlgECCP256SHA1
	}
	for _, a := range cardAlgs {
		if a == want {
			return want, true
		}
	}
	return 0, false
}

// Sign hashes msg (or, for an on-card-hash ECCP256 variant, leaves it raw),
// frames it for the slot's algorithm, and returns the card's raw signature
// bytes, per spec.md §4.6. cardAlgs is the token's advertised algorithm
// list, consulted for the on-card-hash swap.
func Sign(t *Token, slot *Slot, cardAlgs []Algorithm, msg []byte, requested HashAlgorithm) ([]byte, error) {
	h := effectiveHash(slot.Algorithm, requested)

	if onCardAlg, ok := onCardHashVariant(slot.Algorithm, cardAlgs, h); ok {
		// The card hashes msg itself; the slot's algorithm field is never
		// mutated (SPEC_FULL §9/§4.6 step 2) — the swapped algorithm is
		// passed as an argument to rawSign instead.
		return rawSign(t, onCardAlg, slot.ID, msg)
	}

	digest := digestOf(h, msg)

	if slot.Algorithm.IsRSA() {
		block, err := pkcs1v15DigestInfoPad(digest, h, rsaModulusBytes(slot))
		if err != nil {
			return nil, err
		}
		return rawSign(t, slot.Algorithm, slot.ID, block)
	}

	return rawSign(t, slot.Algorithm, slot.ID, digest)
}

func rsaModulusBytes(slot *Slot) int {
	if slot.Certificate == nil {
		panic("piv: RSA sign requires the slot's certificate to determine modulus size")
	}
	switch slot.Algorithm {
	case AlgRSA1024:
		return 128
	case AlgRSA2048:
		return 256
	default:
		panic(fmt.Sprintf("piv: %v is not an RSA algorithm", slot.Algorithm))
	}
}

// digestInfoPrefixSHA256 is the DER encoding of
// SEQUENCE{AlgorithmIdentifier(sha256, NULL)} preceding the OCTET STRING
// digest, per RFC 8017 §9.2 / spec.md §4.6 step 4.
var digestInfoPrefixSHA256 = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01,
	0x05, 0x00, 0x04, 0x20,
}

var digestInfoPrefixSHA1 = []byte{
	0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0e, 0x03, 0x02, 0x1a, 0x05, 0x00, 0x04, 0x14,
}

// pkcs1v15DigestInfoPad wraps digest in a DigestInfo and left-pads it to
// modulusBytes per PKCS#1 v1.5 Block Type 01: 00 01 FF...FF 00 DigestInfo.
func pkcs1v15DigestInfoPad(digest []byte, h HashAlgorithm, modulusBytes int) ([]byte, error) {
	var prefix []byte
	switch h {
	case SHA1:
		prefix = digestInfoPrefixSHA1
	default:
		prefix = digestInfoPrefixSHA256
	}

	digestInfo := append(append([]byte{}, prefix...), digest...)
	// 00 01 || FF-padding || 00 || digestInfo
	padLen := modulusBytes - 3 - len(digestInfo)
	if padLen < 8 {
		return nil, fmt.Errorf("%w: modulus too small for PKCS#1 v1.5 DigestInfo (%d bytes)", ErrInvalid, modulusBytes)
	}
	out := make([]byte, 0, modulusBytes)
	out = append(out, 0x00, 0x01)
	for i := 0; i < padLen; i++ {
		out = append(out, 0xFF)
	}
	out = append(out, 0x00)
	out = append(out, digestInfo...)
	if len(out) != modulusBytes {
		panic("piv: PKCS#1 v1.5 padding length mismatch")
	}
	return out, nil
}

