package piv

import (
	"bytes"
	"fmt"
	"testing"

	lru "github.com/hashicorp/golang-lru"

	"github.com/pivhold/piv/internal/apduproto"
)

func newTestSlotCache(t *testing.T) *lru.Cache {
	t.Helper()
	cache, err := lru.New(defaultSlotCacheSize)
	if err != nil {
		t.Fatalf("create slot cache: %v", err)
	}
	return cache
}

// scriptedStep and mockSession mirror internal/apduproto's own test double,
// reimplemented here against the exported CardSession interface so piv's
// tests don't need a live reader either.
type scriptedStep struct {
	match []byte
	reply []byte
}

type mockSession struct {
	steps []scriptedStep
	calls [][]byte
}

func (m *mockSession) Transmit(cmd []byte) ([]byte, error) {
	m.calls = append(m.calls, append([]byte(nil), cmd...))
	for i, st := range m.steps {
		if st.match == nil || bytes.HasPrefix(cmd, st.match) {
			m.steps = append(m.steps[:i], m.steps[i+1:]...)
			return st.reply, nil
		}
	}
	return nil, fmt.Errorf("mockSession: no scripted reply for % X", cmd)
}

func (m *mockSession) BeginTransaction() error { return nil }
func (m *mockSession) EndTransaction(apduproto.Disposition) error { return nil }

func sw(sw1, sw2 byte, data ...byte) []byte {
	return append(append([]byte(nil), data...), sw1, sw2)
}

func newTestSession(steps ...scriptedStep) *apduproto.Session {
	m := &mockSession{steps: steps}
	s := apduproto.NewSession(m, apduproto.ProtocolT1, nil)
	if err := s.Begin(); err != nil {
		panic(err)
	}
	return s
}

// newSessionFromMock is like newTestSession but hands back the session built
// atop an already-constructed mockSession, so the caller can inspect m.calls
// after the test runs.
func newSessionFromMock(t *testing.T, m *mockSession) *apduproto.Session {
	t.Helper()
	s := apduproto.NewSession(m, apduproto.ProtocolT1, nil)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return s
}
