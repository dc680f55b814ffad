package apduproto

import (
	"bytes"
	"testing"
)

func withTransaction(t *testing.T, m *mockSession) *Session {
	t.Helper()
	s := NewSession(m, ProtocolT1, nil)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return s
}

// TestCommandChainingBoundaries covers spec.md §8's boundary sizes: 254,
// 255, 256, 510, 511, 512-byte payloads, verifying the number of slices sent
// and the chain bit on each slice at every size.
func TestCommandChainingBoundaries(t *testing.T) {
	sizes := []int{254, 255, 256, 510, 511, 512}
	for _, size := range sizes {
		t.Run("", func(t *testing.T) {
			data := make([]byte, size)
			for i := range data {
				data[i] = byte(i)
			}

			m := &mockSession{}
			nSlices := (size + maxChainSlice - 1) / maxChainSlice
			if nSlices == 0 {
				nSlices = 1
			}
			for i := 0; i < nSlices; i++ {
				m.steps = append(m.steps, scriptedStep{match: nil, reply: sw(0x90, 0x00)})
			}

			s := withTransaction(t, m)
			resp, err := Transmit(s, Command{CLA: 0x00, INS: 0xDB, P1: 0x3F, P2: 0xFF, Data: data})
			if err != nil {
				t.Fatalf("size %d: Transmit: %v", size, err)
			}
			if !resp.IsSuccess() {
				t.Fatalf("size %d: SW=%04X, want 9000", size, resp.SW())
			}
			if len(m.calls) != nSlices {
				t.Fatalf("size %d: sent %d slices, want %d", size, len(m.calls), nSlices)
			}
			for i, call := range m.calls {
				wantChain := i != len(m.calls)-1
				gotChain := call[0]&claChain != 0
				if gotChain != wantChain {
					t.Errorf("size %d slice %d: chain bit = %v, want %v", size, i, gotChain, wantChain)
				}
			}
		})
	}
}

// TestCommandChainingAbortsOnError verifies a non-continuable status word
// mid-chain terminates immediately rather than sending the remaining
// slices.
func TestCommandChainingAbortsOnError(t *testing.T) {
	data := make([]byte, 400)
	m := &mockSession{steps: []scriptedStep{
		{match: nil, reply: sw(0x69, 0x82)}, // security status not satisfied
	}}
	s := withTransaction(t, m)
	_, err := Transmit(s, Command{CLA: 0x00, INS: 0xDB, Data: data})
	if err == nil {
		t.Fatal("expected chaining to abort on non-continuable status")
	}
	if len(m.calls) != 1 {
		t.Errorf("sent %d slices after abort, want 1", len(m.calls))
	}
}

// TestResponseChainingReassembly verifies a >255-byte reply is reassembled
// bit-exactly across 61xx continuations (spec.md §8 scenario: certificate
// readback).
func TestResponseChainingReassembly(t *testing.T) {
	want := make([]byte, 600)
	for i := range want {
		want[i] = byte(i * 7)
	}

	m := &mockSession{steps: []scriptedStep{
		{match: nil, reply: sw(0x61, 0xFF, want[:255]...)},
		{match: nil, reply: sw(0x61, 0xFF, want[255:510]...)},
		{match: nil, reply: sw(0x90, 0x00, want[510:]...)},
	}}
	s := withTransaction(t, m)
	resp, err := Transmit(s, Command{CLA: 0x00, INS: 0xCB, P1: 0x3F, P2: 0xFF})
	if err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("reassembled %d bytes, want %d bytes matching original", len(resp.Data), len(want))
	}
	// Two GET RESPONSE calls plus the initial command.
	if len(m.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(m.calls))
	}
	for _, call := range m.calls[1:] {
		if call[1] != insGetResponse {
			t.Errorf("follow-up call INS = %02X, want C0", call[1])
		}
	}
}
