package sealedbox

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/pivhold/piv/piv"
)

// Marshal renders b in the wire framing of spec.md §4.7: version u8, GUID
// string, slot u8, ephemeral-pub string, recipient-pub string, cipher
// cstring, KDF cstring, IV string, ciphertext string. "string" fields are a
// big-endian u32 length prefix followed by the bytes (an SSH-wire key blob,
// for the two public-key fields); "cstring" fields are NUL-terminated.
func (b *Box) Marshal() ([]byte, error) {
	if b.EphemeralPub == nil || b.RecipientPub == nil {
		return nil, fmt.Errorf("sealedbox: cannot marshal a box with no public keys set")
	}

	var buf []byte
	buf = append(buf, b.Version)
	buf = appendString(buf, b.GUID[:])
	buf = append(buf, byte(b.Slot))
	buf = appendString(buf, b.EphemeralPub.Marshal())
	buf = appendString(buf, b.RecipientPub.Marshal())
	buf = appendCString(buf, b.CipherName)
	buf = appendCString(buf, b.KDFName)
	buf = appendString(buf, b.IV)
	buf = appendString(buf, b.Ciphertext)
	return buf, nil
}

// Unmarshal parses the wire framing Marshal produces.
func Unmarshal(data []byte) (*Box, error) {
	r := wireReader{data: data}

	ver, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if ver != version {
		return nil, fmt.Errorf("sealedbox: unsupported envelope version %d", ver)
	}

	guidBytes, err := r.readString()
	if err != nil {
		return nil, err
	}
	if len(guidBytes) != 16 {
		return nil, fmt.Errorf("sealedbox: GUID field is %d bytes, want 16", len(guidBytes))
	}
	var guid uuid.UUID
	copy(guid[:], guidBytes)

	slotByte, err := r.readByte()
	if err != nil {
		return nil, err
	}

	ephemeralBlob, err := r.readString()
	if err != nil {
		return nil, err
	}
	ephemeralPub, err := ssh.ParsePublicKey(ephemeralBlob)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: parse ephemeral public key: %w", err)
	}

	recipientBlob, err := r.readString()
	if err != nil {
		return nil, err
	}
	recipientPub, err := ssh.ParsePublicKey(recipientBlob)
	if err != nil {
		return nil, fmt.Errorf("sealedbox: parse recipient public key: %w", err)
	}

	cipherName, err := r.cstring()
	if err != nil {
		return nil, err
	}
	kdfName, err := r.cstring()
	if err != nil {
		return nil, err
	}
	iv, err := r.readString()
	if err != nil {
		return nil, err
	}
	ciphertext, err := r.readString()
	if err != nil {
		return nil, err
	}
	if !r.atEnd() {
		return nil, fmt.Errorf("sealedbox: %d trailing bytes after ciphertext", r.remaining())
	}

	return &Box{
		Version:      ver,
		GUID:         guid,
		Slot:         piv.SlotID(slotByte),
		EphemeralPub: ephemeralPub,
		RecipientPub: recipientPub,
		CipherName:   cipherName,
		KDFName:      kdfName,
		IV:           iv,
		Ciphertext:   ciphertext,
	}, nil
}

func appendString(buf []byte, s []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(s)))
	buf = append(buf, length[:]...)
	return append(buf, s...)
}

func appendCString(buf []byte, s string) []byte {
	buf = append(buf, []byte(s)...)
	return append(buf, 0x00)
}

type wireReader struct {
	data []byte
	off  int
}

func (r *wireReader) atEnd() bool { return r.off >= len(r.data) }

func (r *wireReader) remaining() int { return len(r.data) - r.off }

func (r *wireReader) readByte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("sealedbox: unexpected end of envelope")
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *wireReader) readString() ([]byte, error) {
	if r.off+4 > len(r.data) {
		return nil, fmt.Errorf("sealedbox: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(r.data[r.off : r.off+4])
	r.off += 4
	if r.off+int(n) > len(r.data) {
		return nil, fmt.Errorf("sealedbox: truncated string field (want %d bytes)", n)
	}
	v := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return v, nil
}

func (r *wireReader) cstring() (string, error) {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0x00 {
			s := string(r.data[start:r.off])
			r.off++
			return s, nil
		}
		r.off++
	}
	return "", fmt.Errorf("sealedbox: unterminated cstring field")
}
