package apduproto

import "fmt"

const maxChainSlice = 255

// Transmit decomposes cmd into one or more short APDUs (command chaining
// for payloads over 255 bytes), issues them in order, and reassembles a
// chained reply (response chaining via GET RESPONSE while SW1=0x61).
//
// Between command slices any status word with high byte 0x90/0x61/0x62/0x63
// is "continue"; anything else terminates chaining and is returned as-is,
// per spec. Only the terminal status word and the fully reassembled data
// are returned to the PIV command layer.
func Transmit(s *Session, cmd Command) (Response, error) {
	slices := splitChain(cmd.Data)

	var last Response
	for i, chunk := range slices {
		cla := cmd.CLA
		if i != len(slices)-1 {
			cla |= claChain
		}
		raw, err := Command{CLA: cla, INS: cmd.INS, P1: cmd.P1, P2: cmd.P2, Data: chunk}.encode()
		if err != nil {
			return Response{}, err
		}
		resp, err := transmitOne(s, raw)
		if err != nil {
			return Response{}, err
		}
		last = resp
		if i != len(slices)-1 {
			if !resp.IsContinuable() {
				return resp, fmt.Errorf("apduproto: command chaining aborted at slice %d/%d, SW=%04X", i+1, len(slices), resp.SW())
			}
			continue
		}
	}

	return reassembleResponse(s, last)
}

// splitChain slices data into <=255-byte pieces; an empty payload still
// yields one (empty) slice so case-1 commands flow through the same path.
func splitChain(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{nil}
	}
	var out [][]byte
	for off := 0; off < len(data); off += maxChainSlice {
		end := off + maxChainSlice
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[off:end])
	}
	return out
}

// reassembleResponse follows SW1=0x61 continuations with GET RESPONSE,
// concatenating data segments until a non-61xx status word terminates the
// exchange.
func reassembleResponse(s *Session, resp Response) (Response, error) {
	data := append([]byte(nil), resp.Data...)
	for resp.HasMoreData() {
		next, err := getResponse(s, resp.SW2)
		if err != nil {
			return Response{}, err
		}
		data = append(data, next.Data...)
		resp = next
	}
	return Response{Data: data, SW1: resp.SW1, SW2: resp.SW2}, nil
}
