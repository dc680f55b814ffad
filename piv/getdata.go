package piv

import (
	"crypto/x509"
	"fmt"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/bertlv"
)

// getDataSW and putDataSW map GET/PUT DATA status words per spec.md §4.5.
var getDataSW = map[uint16]error{
	0x6A82: ErrNotFound,
}

var putDataSW = map[uint16]error{
	0x6A84: ErrInvalid, // out of memory (ENOMEM-class folded into invalid: no separate category exists)
	0x6982: ErrPermission,
	0x6D00: ErrNotFound,
}

func getData(s *apduproto.Session, objTag [3]byte) ([]byte, error) {
	w := bertlv.NewWriter()
	w.WriteBytes("5c", objTag[:])
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: encode GET DATA request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(s, apduproto.Command{
		CLA: 0x00, INS: insGetData, P1: 0x3F, P2: 0xFF, Data: data,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp.SW(), getDataSW, ErrInvalid)
	}

	r, err := bertlv.NewReader(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode GET DATA reply: %v", ErrInvalid, err)
	}
	tag, ok := r.Next()
	if !ok || tag != "53" {
		return nil, fmt.Errorf("%w: GET DATA reply missing outer tag 53", ErrInvalid)
	}
	_, payload, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func putData(s *apduproto.Session, objTag [3]byte, value []byte) error {
	w := bertlv.NewWriter()
	w.WriteBytes("5c", objTag[:])
	w.WriteBytes("53", value)
	data, err := w.Bytes()
	if err != nil {
		return fmt.Errorf("%w: encode PUT DATA request: %v", ErrInvalid, err)
	}

	resp, err := apduproto.Transmit(s, apduproto.Command{
		CLA: 0x00, INS: insPutData, P1: 0x3F, P2: 0xFF, Data: data,
	})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return statusError(resp.SW(), putDataSW, ErrInvalid)
	}
	return nil
}

// readCHUID reads the CHUID file and returns the card GUID, falling back to
// hashing the FASC-N field when the dedicated GUID subtag is absent
// (SPEC_FULL §6; the fallback is this module's own addition, not a port of
// original_source/piv.c). ok is false only when
// neither a GUID nor a FASC-N could be found, in which case NoCHUID should
// be set by the caller.
func readCHUID(s *apduproto.Session) (guid [16]byte, ok bool, err error) {
	payload, err := getData(s, chuidObjectTag)
	if err != nil {
		return guid, false, err
	}

	r, err := bertlv.NewReader(payload)
	if err != nil {
		return guid, false, fmt.Errorf("%w: decode CHUID: %v", ErrInvalid, err)
	}

	var fascn []byte
	var foundGUID bool
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		switch tag {
		case "34":
			_, v, rerr := r.ReadTag()
			if rerr != nil {
				return guid, false, rerr
			}
			if len(v) == 16 {
				copy(guid[:], v)
				foundGUID = true
			}
		case "30":
			_, v, rerr := r.ReadTag()
			if rerr != nil {
				return guid, false, rerr
			}
			fascn = v
		default:
			if err := r.Skip(); err != nil {
				return guid, false, err
			}
		}
	}

	if foundGUID {
		return guid, true, nil
	}
	if len(fascn) > 0 {
		copy(guid[:], guidFromFASCN(fascn)[:])
		return guid, true, nil
	}
	return guid, false, nil
}

// checkCompressionFlag decodes tag 0x71's compression byte: spec.md rejects
// a set X.509-validity bit as invalid and any nonzero compression-type bits
// as unsupported (compressed certs are a spec.md Non-goal).
func checkCompressionFlag(b byte) error {
	const x509ValidityBit = 0x01
	const compressionMask = 0x60
	if b&x509ValidityBit != 0 {
		return fmt.Errorf("%w: certificate marked invalid (compression flag bit 0)", ErrInvalid)
	}
	if b&compressionMask != 0 {
		return fmt.Errorf("%w: compressed certificate payloads are not supported", ErrUnsupported)
	}
	return nil
}

// readCert reads and parses the X.509 certificate stored in slot's object,
// returning nil, ErrNotFound if the card has no certificate there.
func readCert(s *apduproto.Session, id SlotID) (*x509.Certificate, error) {
	objTag, ok := id.objectTag()
	if !ok {
		panic(fmt.Sprintf("piv: %v is not a certificate-bearing slot", id))
	}

	payload, err := getData(s, objTag)
	if err != nil {
		return nil, err
	}

	r, err := bertlv.NewReader(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode cert object: %v", ErrInvalid, err)
	}

	var certDER []byte
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		switch tag {
		case "70":
			_, v, rerr := r.ReadTag()
			if rerr != nil {
				return nil, rerr
			}
			certDER = v
		case "71":
			_, v, rerr := r.ReadTag()
			if rerr != nil {
				return nil, rerr
			}
			if len(v) != 1 {
				return nil, fmt.Errorf("%w: compression flag not 1 byte", ErrInvalid)
			}
			if err := checkCompressionFlag(v[0]); err != nil {
				return nil, err
			}
		default:
			if err := r.Skip(); err != nil {
				return nil, err
			}
		}
	}

	if len(certDER) == 0 {
		return nil, fmt.Errorf("%w: slot %v has no certificate", ErrNotFound, id)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("%w: parse certificate: %v", ErrInvalid, err)
	}
	return cert, nil
}
