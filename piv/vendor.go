package piv

import (
	"github.com/blang/semver"

	"github.com/pivhold/piv/internal/apduproto"
)

// probeYubiKey sends the YubiKey vendor GET VERSION command (CLA=0,
// INS=0xFD). Per spec.md §4.5, any response other than SW=9000 with at
// least 3 data bytes clears the vendor flag and is NOT an error — this is
// a capability probe, not a required command.
func probeYubiKey(s *apduproto.Session) (isYubiKey bool, version semver.Version) {
	resp, err := apduproto.Transmit(s, apduproto.Command{CLA: 0x00, INS: insGetVersion})
	if err != nil || !resp.IsSuccess() || len(resp.Data) < 3 {
		return false, semver.Version{}
	}
	return true, semver.Version{
		Major: uint64(resp.Data[0]),
		Minor: uint64(resp.Data[1]),
		Patch: uint64(resp.Data[2]),
	}
}
