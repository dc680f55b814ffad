package apduproto

import (
	"bytes"
	"fmt"
)

// scriptedStep matches a prefix of an incoming command and returns a fixed
// reply; used to drive mockSession through a fixed exchange without a
// physical reader, mirroring the teacher's card.Reader-shaped test harness
// but as a pure fake instead of a live connection.
type scriptedStep struct {
	match []byte // prefix to match against the outgoing APDU; nil matches anything
	reply []byte
}

type mockSession struct {
	steps         []scriptedStep
	calls         [][]byte
	inTransaction bool
	beginErr      error
	endErr        error
	lastEndDisp   Disposition
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

func (m *mockSession) BeginTransaction() error {
	if m.beginErr != nil {
		return m.beginErr
	}
	m.inTransaction = true
	return nil
}

func (m *mockSession) EndTransaction(d Disposition) error {
	m.lastEndDisp = d
	m.inTransaction = false
	return m.endErr
}

func sw(sw1, sw2 byte, data ...byte) []byte {
	return append(append([]byte(nil), data...), sw1, sw2)
}
