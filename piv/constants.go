package piv

// Instruction bytes, bit-exact per spec.md §6.
const (
	insSelect           byte = 0xA4
	insVerify           byte = 0x20
	insChangeReference  byte = 0x24
	insGetData          byte = 0xCB
	insPutData          byte = 0xDB
	insGenAsymmetric    byte = 0x47
	insGeneralAuth      byte = 0x87
	insGetVersion       byte = 0xFD // YubiKey vendor probe
)

// pivAID is the PIV application identifier sent with SELECT.
var pivAID = []byte{0xA0, 0x00, 0x00, 0x03, 0x08, 0x00, 0x00, 0x10, 0x00, 0x01, 0x00}

// SlotID identifies one of the PIV key slots this module drives.
type SlotID byte

const (
	SlotAuthentication SlotID = 0x9A
	SlotAdmin          SlotID = 0x9B // card management key, not a cert-bearing slot
	SlotSignature      SlotID = 0x9C
	SlotKeyManagement  SlotID = 0x9D
	SlotCardAuth       SlotID = 0x9E
)

func (s SlotID) String() string {
	switch s {
	case SlotAuthentication:
		return "9A"
	case SlotAdmin:
		return "9B"
	case SlotSignature:
		return "9C"
	case SlotKeyManagement:
		return "9D"
	case SlotCardAuth:
		return "9E"
	default:
		return "??"
	}
}

// certSlots lists the four slots that carry a certificate + public key, in
// the uniform order spec.md's supplemental note (SPEC_FULL §6) treats them:
// 9E is handled the same way as 9A/9C/9D, not as a special case.
var certSlots = []SlotID{SlotAuthentication, SlotSignature, SlotKeyManagement, SlotCardAuth}

// objectTag returns the GET/PUT DATA object tag (3 bytes) for a cert slot's
// certificate object.
func (s SlotID) objectTag() ([3]byte, bool) {
	switch s {
	case SlotAuthentication:
		return [3]byte{0x5F, 0xC1, 0x05}, true
	case SlotSignature:
		return [3]byte{0x5F, 0xC1, 0x0A}, true
	case SlotKeyManagement:
		return [3]byte{0x5F, 0xC1, 0x0B}, true
	case SlotCardAuth:
		return [3]byte{0x5F, 0xC1, 0x01}, true
	default:
		return [3]byte{}, false
	}
}

var chuidObjectTag = [3]byte{0x5F, 0xC1, 0x02}

// Algorithm identifies a PIV key/algorithm id, bit-exact per spec.md §6.
type Algorithm byte

const (
	Alg3DES         Algorithm = 0x03
	AlgRSA1024      Algorithm = 0x06
	AlgRSA2048      Algorithm = 0x07
	AlgAES128       Algorithm = 0x08
	AlgAES192       Algorithm = 0x0A
	AlgAES256       Algorithm = 0x0C
	AlgECCP256      Algorithm = 0x11
	AlgECCP384      Algorithm = 0x14
	AlgECCP256SHA1  Algorithm = 0xF0
	AlgECCP256SHA256 Algorithm = 0xF2
)

func (a Algorithm) String() string {
	switch a {
	case Alg3DES:
		return "3DES"
	case AlgRSA1024:
		return "RSA1024"
	case AlgRSA2048:
		return "RSA2048"
	case AlgAES128:
		return "AES128"
	case AlgAES192:
		return "AES192"
	case AlgAES256:
		return "AES256"
	case AlgECCP256:
		return "ECCP256"
	case AlgECCP384:
		return "ECCP384"
	case AlgECCP256SHA1:
		return "ECCP256-SHA1"
	case AlgECCP256SHA256:
		return "ECCP256-SHA256"
	default:
		return "unknown"
	}
}

// IsRSA reports whether the algorithm is an RSA modulus size.
func (a Algorithm) IsRSA() bool {
	return a == AlgRSA1024 || a == AlgRSA2048
}

// IsECC reports whether the algorithm is a (possibly on-card-hash) ECC
// curve.
func (a Algorithm) IsECC() bool {
	switch a {
	case AlgECCP256, AlgECCP384, AlgECCP256SHA1, AlgECCP256SHA256:
		return true
	default:
		return false
	}
}

// DefaultAdminKey is the well-known 24-byte all-zero 3DES card management
// key many PIV cards ship with. Exported so callers (and tests covering
// spec.md §8 scenario 3) can probe for factory-default cards without
// hardcoding the bytes inline.
var DefaultAdminKey = make([]byte, 24)
