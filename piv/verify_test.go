package piv

import (
	"bytes"
	"errors"
	"testing"
)

func TestPadPIN(t *testing.T) {
	padded, err := padPIN([]byte("1234"))
	if err != nil {
		t.Fatalf("padPIN: %v", err)
	}
	want := []byte{'1', '2', '3', '4', 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(padded, want) {
		t.Fatalf("padPIN = % X, want % X", padded, want)
	}
}

func TestPadPINTooLong(t *testing.T) {
	_, err := padPIN([]byte("123456789"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("padPIN(9 bytes) err = %v, want ErrInvalid", err)
	}
}

func TestRetriesFromSW(t *testing.T) {
	cases := []struct {
		sw        uint16
		wantOK    bool
		wantCount int
	}{
		{0x63C3, true, 3},
		{0x63C0, true, 0},
		{0x6A80, false, 0},
		{0x9000, false, 0},
	}
	for _, tc := range cases {
		retries, ok := retriesFromSW(tc.sw)
		if ok != tc.wantOK || (ok && retries != tc.wantCount) {
			t.Errorf("retriesFromSW(%#x) = (%d, %v), want (%d, %v)", tc.sw, retries, ok, tc.wantCount, tc.wantOK)
		}
	}
}

func TestPINRetriesRemainingAlreadyVerified(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x90, 0x00)})
	tok := &Token{session: s}
	n, err := PINRetriesRemaining(tok)
	if err != nil {
		t.Fatalf("PINRetriesRemaining: %v", err)
	}
	if n != -1 {
		t.Fatalf("PINRetriesRemaining = %d, want -1", n)
	}
}

func TestPINRetriesRemainingCount(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x63, 0xC5)})
	tok := &Token{session: s}
	n, err := PINRetriesRemaining(tok)
	if err != nil {
		t.Fatalf("PINRetriesRemaining: %v", err)
	}
	if n != 5 {
		t.Fatalf("PINRetriesRemaining = %d, want 5", n)
	}
}

func TestVerifyPINSuccess(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x90, 0x00)})
	tok := &Token{session: s}
	n, err := VerifyPIN(tok, []byte("123456"), VerifyPINOptions{})
	if err != nil {
		t.Fatalf("VerifyPIN: %v", err)
	}
	if n != -1 {
		t.Fatalf("VerifyPIN retries = %d, want -1", n)
	}
}

func TestVerifyPINWrong(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x63, 0xC2)})
	tok := &Token{session: s}
	n, err := VerifyPIN(tok, []byte("000000"), VerifyPINOptions{})
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("VerifyPIN err = %v, want ErrPermission", err)
	}
	if n != 2 {
		t.Fatalf("VerifyPIN retries = %d, want 2", n)
	}
}

// TestVerifyPINPreflightRefusesLastRetry covers spec.md §4.5's
// last-retry preflight: with one retry left, VerifyPIN must refuse to
// submit without ever sending a VERIFY-with-data APDU.
func TestVerifyPINPreflightRefusesLastRetry(t *testing.T) {
	m := &mockSession{steps: []scriptedStep{{reply: sw(0x63, 0xC1)}}}
	s := newSessionFromMock(t, m)
	tok := &Token{session: s}

	n, err := VerifyPIN(tok, []byte("123456"), VerifyPINOptions{Preflight: true})
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("VerifyPIN err = %v, want ErrPermission", err)
	}
	if n != 1 {
		t.Fatalf("VerifyPIN retries = %d, want 1", n)
	}
	if len(m.calls) != 1 {
		t.Fatalf("expected only the preflight query APDU, got %d calls", len(m.calls))
	}
}

func TestChangePINSuccess(t *testing.T) {
	s := newTestSession(scriptedStep{reply: sw(0x90, 0x00)})
	tok := &Token{session: s}
	n, err := ChangePIN(tok, []byte("123456"), []byte("654321"), ChangePINOptions{})
	if err != nil {
		t.Fatalf("ChangePIN: %v", err)
	}
	if n != -1 {
		t.Fatalf("ChangePIN retries = %d, want -1", n)
	}
}
