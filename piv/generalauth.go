package piv

import (
	"crypto/cipher"
	"crypto/des" //nolint:staticcheck // 3DES is the PIV card management key algorithm, not a choice
	"fmt"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/bertlv"
)

const (
	tagDynAuth       = "7c"
	tagWitness       = "80"
	tagChallenge     = "81"
	tagResponse      = "82"
	tagExponentiation = "85"
)

var generalAuthSW = map[uint16]error{
	0x6A80: ErrPermission, // WRONG_DATA: card rejected the admin key
	0x6A86: ErrNotFound,   // INCORRECT_P1P2
}

// AuthenticateAdmin performs the 3DES challenge/response against slot 0x9B
// (card management key) described in spec.md §4.5. key must be 24 bytes.
// Success sets the token's must-reset-on-end flag.
func AuthenticateAdmin(t *Token, key []byte) error {
	if len(key) != 24 {
		panic("piv: admin key must be 24 bytes (3DES)")
	}

	// First exchange: ask the card for a challenge.
	reqW := bertlv.NewWriter()
	reqW.Open(tagDynAuth)
	reqW.WriteBytes(tagWitness, nil)
	reqW.Close()
	reqData, err := reqW.Bytes()
	if err != nil {
		return fmt.Errorf("%w: encode admin auth request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(t.session, apduproto.Command{
		CLA: 0x00, INS: insGeneralAuth, P1: byte(Alg3DES), P2: byte(SlotAdmin), Data: reqData,
	})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return statusError(resp.SW(), generalAuthSW, ErrInvalid)
	}

	challenge, err := readChallenge(resp.Data)
	if err != nil {
		return err
	}

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return fmt.Errorf("%w: 3DES key setup: %v", ErrInvalid, err)
	}
	if len(challenge)%block.BlockSize() != 0 {
		return fmt.Errorf("%w: admin challenge not block-aligned", ErrInvalid)
	}
	var iv [8]byte
	enc := cipher.NewCBCEncrypter(block, iv[:])
	ciphertext := make([]byte, len(challenge))
	enc.CryptBlocks(ciphertext, challenge)

	respW := bertlv.NewWriter()
	respW.Open(tagDynAuth)
	respW.WriteBytes(tagResponse, ciphertext)
	respW.Close()
	respData, err := respW.Bytes()
	if err != nil {
		return fmt.Errorf("%w: encode admin auth response: %v", ErrInvalid, err)
	}

	resp2, err := apduproto.Transmit(t.session, apduproto.Command{
		CLA: 0x00, INS: insGeneralAuth, P1: byte(Alg3DES), P2: byte(SlotAdmin), Data: respData,
	})
	if err != nil {
		return err
	}
	if !resp2.IsSuccess() {
		return statusError(resp2.SW(), generalAuthSW, ErrInvalid)
	}
	t.session.RequireReset()
	return nil
}

// readChallenge extracts the CHALLENGE (tag 0x81) from a 0x7C dynamic auth
// template reply.
func readChallenge(data []byte) ([]byte, error) {
	r, err := bertlv.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode dynamic auth reply: %v", ErrInvalid, err)
	}
	if err := r.Push(tagDynAuth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer r.Pop()
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		if tag == tagChallenge {
			_, v, err := r.ReadTag()
			return v, err
		}
		if err := r.Skip(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: dynamic auth reply missing challenge", ErrInvalid)
}

// rawSign issues GENERAL AUTHENTICATE with the "sign" usage: an empty
// RESPONSE tag followed by a CHALLENGE carrying msg, returning the card's
// RESPONSE bytes verbatim (spec.md §4.5/§4.6).
func rawSign(t *Token, alg Algorithm, slot SlotID, msg []byte) ([]byte, error) {
	w := bertlv.NewWriter()
	w.Open(tagDynAuth)
	w.WriteBytes(tagResponse, nil)
	w.WriteBytes(tagChallenge, msg)
	w.Close()
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: encode sign request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(t.session, apduproto.Command{
		CLA: 0x00, INS: insGeneralAuth, P1: byte(alg), P2: byte(slot), Data: data,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp.SW(), generalAuthSW, ErrInvalid)
	}
	return readResponseTag(resp.Data)
}

// rawECDH issues GENERAL AUTHENTICATE with the ECDH usage: an empty
// RESPONSE tag plus an EXPONENTIATION tag carrying the peer's uncompressed
// point, returning the raw shared-secret X coordinate.
func rawECDH(t *Token, alg Algorithm, slot SlotID, peerPoint []byte) ([]byte, error) {
	w := bertlv.NewWriter()
	w.Open(tagDynAuth)
	w.WriteBytes(tagResponse, nil)
	w.WriteBytes(tagExponentiation, peerPoint)
	w.Close()
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: encode ECDH request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(t.session, apduproto.Command{
		CLA: 0x00, INS: insGeneralAuth, P1: byte(alg), P2: byte(slot), Data: data,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp.SW(), generalAuthSW, ErrInvalid)
	}
	return readResponseTag(resp.Data)
}

func readResponseTag(data []byte) ([]byte, error) {
	r, err := bertlv.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode dynamic auth reply: %v", ErrInvalid, err)
	}
	if err := r.Push(tagDynAuth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer r.Pop()
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		if tag == tagResponse {
			_, v, err := r.ReadTag()
			return v, err
		}
		if err := r.Skip(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: dynamic auth reply missing response", ErrInvalid)
}
