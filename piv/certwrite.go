package piv

import (
	"fmt"

	"github.com/pivhold/piv/internal/bertlv"
)

// WriteCert PUTs a DER certificate into slot's object with an uncompressed,
// valid compression flag (tag 0x71 = 0x00), per spec.md §4.5. Must be
// issued via the chaining layer for payloads over 255 bytes, which
// apduproto.Transmit already does transparently.
func WriteCert(t *Token, slot SlotID, der []byte) error {
	objTag, ok := slot.objectTag()
	if !ok {
		panic(fmt.Sprintf("piv: %v is not a certificate-bearing slot", slot))
	}

	inner := bertlv.NewWriter()
	inner.WriteBytes("70", der)
	inner.WriteBytes("71", []byte{0x00})
	value, err := inner.Bytes()
	if err != nil {
		return fmt.Errorf("%w: encode certificate object: %v", ErrInvalid, err)
	}

	return putData(t.session, objTag, value)
}
