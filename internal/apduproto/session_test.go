package apduproto

import "testing"

func TestSessionBeginEndDisposition(t *testing.T) {
	tests := []struct {
		name       string
		mustReset  bool
		wantDispos Disposition
	}{
		{"clean transaction leaves card", false, Leave},
		{"mutating transaction resets card", true, Reset},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockSession{}
			s := NewSession(m, ProtocolT1, nil)
			if err := s.Begin(); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			if tc.mustReset {
				s.RequireReset()
			}
			if err := s.End(); err != nil {
				t.Fatalf("End: %v", err)
			}
			if m.lastEndDisp != tc.wantDispos {
				t.Errorf("EndTransaction disposition = %v, want %v", m.lastEndDisp, tc.wantDispos)
			}
		})
	}
}

func TestSessionReentrantBeginPanics(t *testing.T) {
	m := &mockSession{}
	s := NewSession(m, ProtocolT1, nil)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on reentrant Begin")
		}
	}()
	s.Begin()
}

func TestAPDUOutsideTransactionPanics(t *testing.T) {
	m := &mockSession{}
	s := NewSession(m, ProtocolT1, nil)
	defer func() {
		if recover() == nil {
			t.Error("expected panic issuing APDU outside a transaction")
		}
	}()
	_, _ = Transmit(s, Command{CLA: 0x00, INS: 0xA4})
}
