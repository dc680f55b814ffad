package piv

import (
	"fmt"

	"github.com/pivhold/piv/internal/apduproto"
	"github.com/pivhold/piv/internal/bertlv"
)

// selectApplet issues SELECT for the PIV AID and parses the Application
// Property Template (tag 0x61) it returns, per spec.md §4.5.
func selectApplet(s *apduproto.Session) ([]Algorithm, error) {
	resp, err := apduproto.Transmit(s, apduproto.Command{
		CLA: 0x00, INS: insSelect, P1: 0x04, P2: 0x00, Data: pivAID,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, swError(ErrNotFound, resp.SW(), "SELECT PIV applet")
	}

	r, err := bertlv.NewReader(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode APT: %v", ErrInvalid, err)
	}

	tag, ok := r.Next()
	if !ok || tag != "61" {
		return nil, fmt.Errorf("%w: APT missing outer tag 61", ErrInvalid)
	}
	if err := r.Push("61"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	defer r.Pop()

	var algs []Algorithm
	for {
		tag, ok := r.Next()
		if !ok {
			break
		}
		switch tag {
		case "4f": // Application Identifier
			if err := r.Skip(); err != nil {
				return nil, err
			}
		case "79", "50", "5f50": // authority, label, URI
			if err := r.Skip(); err != nil {
				return nil, err
			}
		case "ac": // supported algorithm list
			if err := r.Push("ac"); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
			}
			for {
				innerTag, ok := r.Next()
				if !ok {
					break
				}
				switch innerTag {
				case "80":
					_, v, err := r.ReadTag()
					if err != nil {
						return nil, err
					}
					if len(v) != 1 {
						return nil, fmt.Errorf("%w: algorithm entry not 1 byte", ErrInvalid)
					}
					algs = append(algs, Algorithm(v[0]))
				case "06":
					if err := r.Skip(); err != nil {
						return nil, err
					}
				default:
					return nil, fmt.Errorf("%w: unknown algorithm-list tag %s", ErrInvalid, innerTag)
				}
			}
			r.Pop()
		default:
			return nil, fmt.Errorf("%w: unknown APT tag %s", ErrInvalid, tag)
		}
	}

	return algs, nil
}
