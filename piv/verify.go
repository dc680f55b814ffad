package piv

import (
	"fmt"

	"github.com/pivhold/piv/internal/apduproto"
)

const p2PIN byte = 0x80

func padPIN(pin []byte) ([]byte, error) {
	if len(pin) > 8 {
		return nil, fmt.Errorf("%w: PIN longer than 8 bytes", ErrInvalid)
	}
	padded := make([]byte, 8)
	for i := range padded {
		padded[i] = 0xFF
	}
	copy(padded, pin)
	return padded, nil
}

// retriesFromSW extracts the remaining-tries nibble from a 63Cx status
// word; ok is false if sw isn't in that family.
func retriesFromSW(sw uint16) (retries int, ok bool) {
	if sw&0xFFF0 != 0x63C0 {
		return 0, false
	}
	return int(sw & 0x0F), true
}

// PINRetriesRemaining queries the PIV PIN's retry counter without
// attempting a verification, by sending VERIFY with no data (P1=0, P2=80).
// Per spec.md §4.5 this is used for the caller-side preflight that refuses
// to burn a try when only one remains.
func PINRetriesRemaining(t *Token) (int, error) {
	resp, err := apduproto.Transmit(t.session, apduproto.Command{CLA: 0x00, INS: insVerify, P1: 0x00, P2: p2PIN})
	if err != nil {
		return 0, err
	}
	if resp.IsSuccess() {
		return -1, nil // PIN already verified this transaction; no retry count to report
	}
	if retries, ok := retriesFromSW(resp.SW()); ok {
		return retries, nil
	}
	return 0, swError(ErrInvalid, resp.SW(), "query PIN retry count")
}

// VerifyPINOptions configures VerifyPIN's preflight behavior.
type VerifyPINOptions struct {
	// Preflight, when true, queries the retry count first and refuses to
	// submit the PIN (returning ErrPermission without consuming a try)
	// when only one retry remains.
	Preflight bool
}

// VerifyPIN submits pin (max 8 bytes, 0xFF-padded) for verification. On
// success the token's must-reset-on-end flag is set, per spec.md §4.5/§5.
// On a wrong PIN, the returned error wraps ErrPermission and retries
// reports the remaining tries.
func VerifyPIN(t *Token, pin []byte, opts VerifyPINOptions) (retries int, err error) {
	if opts.Preflight {
		remaining, perr := PINRetriesRemaining(t)
		if perr != nil {
			return 0, perr
		}
		if remaining == 1 {
			return remaining, fmt.Errorf("%w: refusing to submit PIN with only 1 retry remaining", ErrPermission)
		}
	}

	padded, err := padPIN(pin)
	if err != nil {
		return 0, err
	}
	resp, err := apduproto.Transmit(t.session, apduproto.Command{CLA: 0x00, INS: insVerify, P1: 0x00, P2: p2PIN, Data: padded})
	if err != nil {
		return 0, err
	}
	if resp.IsSuccess() {
		t.session.RequireReset()
		return -1, nil
	}
	if remaining, ok := retriesFromSW(resp.SW()); ok {
		return remaining, swError(ErrPermission, resp.SW(), "PIN verification failed, %d tries remaining", remaining)
	}
	return 0, swError(ErrInvalid, resp.SW(), "PIN verification failed")
}

// ChangePINOptions configures ChangePIN's preflight behavior.
type ChangePINOptions struct {
	Preflight bool
}

// ChangePIN submits CHANGE REFERENCE DATA with the old and new PIN, each
// independently 0xFF-padded to 8 bytes. Same status-word mapping and
// reset-on-success behavior as VerifyPIN.
func ChangePIN(t *Token, oldPIN, newPIN []byte, opts ChangePINOptions) (retries int, err error) {
	if opts.Preflight {
		remaining, perr := PINRetriesRemaining(t)
		if perr != nil {
			return 0, perr
		}
		if remaining == 1 {
			return remaining, fmt.Errorf("%w: refusing to submit PIN change with only 1 retry remaining", ErrPermission)
		}
	}

	oldPadded, err := padPIN(oldPIN)
	if err != nil {
		return 0, err
	}
	newPadded, err := padPIN(newPIN)
	if err != nil {
		return 0, err
	}
	data := append(append([]byte{}, oldPadded...), newPadded...)

	resp, err := apduproto.Transmit(t.session, apduproto.Command{CLA: 0x00, INS: insChangeReference, P1: 0x00, P2: p2PIN, Data: data})
	if err != nil {
		return 0, err
	}
	if resp.IsSuccess() {
		t.session.RequireReset()
		return -1, nil
	}
	if remaining, ok := retriesFromSW(resp.SW()); ok {
		return remaining, swError(ErrPermission, resp.SW(), "PIN change failed, %d tries remaining", remaining)
	}
	return 0, swError(ErrInvalid, resp.SW(), "PIN change failed")
}
