package apduproto

import "fmt"

// claChain marks all but the final slice of a chained command.
const claChain byte = 0x10

// insGetResponse is the case-1 GET RESPONSE instruction used to pull a
// chained reply.
const insGetResponse byte = 0xC0

// Command is one request APDU: a short-form case-1/2/3 command (no
// extended length support, per spec — command data must fit in one byte of
// length).
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
}

// Response is a parsed reply: the data payload and the trailing SW1SW2.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// SW returns the status word as a single 16-bit value.
func (r Response) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// IsSuccess reports SW=9000.
func (r Response) IsSuccess() bool {
	return r.SW1 == 0x90 && r.SW2 == 0x00
}

// IsContinuable reports a status word the chaining layer treats as "not
// terminal": success, bytes-remaining (61xx), or a 62xx/63xx warning.
func (r Response) IsContinuable() bool {
	switch r.SW1 {
	case 0x90, 0x61, 0x62, 0x63:
		return true
	default:
		return false
	}
}

// HasMoreData reports SW1=0x61 (response chaining available via GET
// RESPONSE).
func (r Response) HasMoreData() bool {
	return r.SW1 == 0x61
}

// encode renders cmd as a short-form case-1 (no data) or case-3 (Lc + data)
// command APDU. Command data longer than 255 bytes is a caller error; use
// the chaining layer's Transmit to split it first.
func (c Command) encode() ([]byte, error) {
	if len(c.Data) > 255 {
		panic(fmt.Sprintf("apduproto: command data %d bytes exceeds short-APDU limit; caller must chain", len(c.Data)))
	}
	if len(c.Data) == 0 {
		return []byte{c.CLA, c.INS, c.P1, c.P2, 0x00}, nil
	}
	buf := make([]byte, 5+len(c.Data))
	buf[0] = c.CLA
	buf[1] = c.INS
	buf[2] = c.P1
	buf[3] = c.P2
	buf[4] = byte(len(c.Data))
	copy(buf[5:], c.Data)
	return buf, nil
}

// transmitOne sends one already-encoded short APDU and parses its reply.
// The receive buffer size is governed entirely by the reader stack; PC/SC
// readers size their own reply buffer, so there is nothing for the caller
// to pre-size here (unlike a raw ISO 7816 driver working over T=0 directly).
func transmitOne(s *Session, raw []byte) (Response, error) {
	if !s.InTransaction() {
		panic("apduproto: APDU issued outside a transaction")
	}
	reply, err := s.conn.Transmit(raw)
	if err != nil {
		return Response{}, fmt.Errorf("%w: transmit: %v", ErrTransport, err)
	}
	if len(reply) < 2 {
		return Response{}, fmt.Errorf("%w: reply too short (%d bytes)", ErrTransport, len(reply))
	}
	resp := Response{
		Data: reply[:len(reply)-2],
		SW1:  reply[len(reply)-2],
		SW2:  reply[len(reply)-1],
	}
	return resp, nil
}

// getResponse issues INS_GET_RESPONSE(0xC0) with the given Le, used both to
// pull a chained reply and, transitively, as a case-1 command in its own
// right.
func getResponse(s *Session, le byte) (Response, error) {
	raw := []byte{0x00, insGetResponse, 0x00, 0x00, le}
	return transmitOne(s, raw)
}
