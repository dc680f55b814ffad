package piv

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/bertlv"
)

// GenerateKey issues GENERATE ASYMMETRIC on slot for alg, returning the new
// public key. Per spec.md §4.5, the reply is a 0x7F49 container: RSA keys
// carry modulus (0x81) and exponent (0x82); EC keys carry the uncompressed
// point (0x86) on the named curve.
func GenerateKey(t *Token, slot SlotID, alg Algorithm) (interface{}, error) {
	w := bertlv.NewWriter()
	w.Open("ac")
	w.WriteBytes("80", []byte{byte(alg)})
	w.Close()
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: encode GENERATE ASYMMETRIC request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(t.session, apduproto.Command{
		CLA: 0x00, INS: insGenAsymmetric, P1: 0x00, P2: byte(slot), Data: data,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, swError(ErrInvalid, resp.SW(), "GENERATE ASYMMETRIC")
	}

	r, err := bertlv.NewReader(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode GENERATE ASYMMETRIC reply: %v", ErrInvalid, err)
	}
	if err := r.Push("7f49"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer r.Pop()

	if alg.IsRSA() {
		return parseRSAPublicKey(r)
	}
	if alg.IsECC() {
		return parseECPublicKey(r, alg)
	}
	panic(fmt.Sprintf("piv: GenerateKey called with non-keygen algorithm %v", alg))
}

func parseRSAPublicKey(r *bertlv.Reader) (*rsa.PublicKey, error) {
	var modulus, exponent []byte
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		switch tag {
		case "81":
			_, v, err := r.ReadTag()
			if err != nil {
				return nil, err
			}
			modulus = v
		case "82":
			_, v, err := r.ReadTag()
			if err != nil {
				return nil, err
			}
			exponent = v
		default:
			if err := r.Skip(); err != nil {
				return nil, err
			}
		}
	}
	if len(modulus) == 0 || len(exponent) == 0 {
		return nil, fmt.Errorf("%w: RSA public key reply missing modulus or exponent", ErrInvalid)
	}
	e := new(big.Int).SetBytes(exponent)
	return &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: int(e.Int64())}, nil
}

func parseECPublicKey(r *bertlv.Reader, alg Algorithm) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch alg {
	case AlgECCP256:
		curve = elliptic.P256()
	case AlgECCP384:
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("%w: GenerateKey called with on-card-hash algorithm %v, not a keygen algorithm", ErrInvalid, alg)
	}

	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		if tag == "86" {
			_, v, err := r.ReadTag()
			if err != nil {
				return nil, err
			}
			x, y := elliptic.Unmarshal(curve, v)
			if x == nil {
				return nil, fmt.Errorf("%w: EC public key reply is not a valid uncompressed point", ErrInvalid)
			}
			return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
		}
		if err := r.Skip(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: EC public key reply missing point", ErrInvalid)
}
