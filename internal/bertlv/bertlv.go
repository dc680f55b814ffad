// Package bertlv provides a nested push/pop scope over BER-TLV encoded data,
// backed by github.com/moov-io/bertlv for the actual tag/length/value codec.
package bertlv

import (
	"encoding/hex"
	"fmt"

	"github.com/moov-io/bertlv"
)

// Writer builds a BER-TLV buffer through a stack of open tags. Every Open
// must be matched by a Close; Bytes then produces the encoded buffer.
type Writer struct {
	stack []*frame
}

type frame struct {
	tag      string
	children []bertlv.TLV
	raw      []byte // primitive payload, set by WriteBytes/WriteUint
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Open reserves a new nested tag scope. tag is the hex string form accepted
// by moov-io/bertlv (e.g. "5C", "7F49", "AC").
func (w *Writer) Open(tag string) {
	w.stack = append(w.stack, &frame{tag: tag})
}

// WriteBytes appends a primitive value to the innermost open tag and closes
// it immediately: callers open a tag, write its primitive value, close it.
func (w *Writer) WriteBytes(tag string, value []byte) {
	w.Open(tag)
	w.top().raw = value
	w.Close()
}

// WriteUint writes a big-endian, minimum-length unsigned integer as the
// value of tag.
func (w *Writer) WriteUint(tag string, v uint64) {
	w.WriteBytes(tag, minimalBigEndian(v))
}

func minimalBigEndian(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		b := byte(v >> (uint(i) * 8))
		if b != 0 || n > 0 {
			buf[n] = b
			n++
		}
	}
	return buf[:n]
}

func (w *Writer) top() *frame {
	if len(w.stack) == 0 {
		panic("bertlv: Close or WriteBytes with no open tag")
	}
	return w.stack[len(w.stack)-1]
}

// Close ends the innermost open tag and folds it into its parent scope (or,
// at the outermost level, into the top-level sequence that Bytes encodes).
// No length is written here: the moov-io/bertlv encoder computes every
// length when Bytes runs.
func (w *Writer) Close() {
	if len(w.stack) == 0 {
		panic("bertlv: Close with no matching Open")
	}
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	t := bertlv.TLV{Tag: f.tag}
	if len(f.children) > 0 {
		t.TLVs = f.children
	} else {
		t.Value = f.raw
	}

	if len(w.stack) == 0 {
		w.stack = append(w.stack, &frame{children: []bertlv.TLV{t}})
		return
	}
	parent := w.stack[len(w.stack)-1]
	parent.children = append(parent.children, t)
}

// PushWithHint behaves like Open but exists to document call sites where
// the payload is known in advance to need a multi-byte length field; the
// moov-io/bertlv encoder computes the correct length form regardless, so
// this is purely a readability aid over Open.
func (w *Writer) PushWithHint(tag string, _ int) {
	w.Open(tag)
}

// Bytes closes any still-open scopes (a programmer error in normal use, but
// tolerated here) and returns the fully encoded buffer.
func (w *Writer) Bytes() ([]byte, error) {
	for len(w.stack) > 1 {
		w.Close()
	}
	if len(w.stack) == 0 {
		return nil, nil
	}
	return bertlv.Encode(w.stack[0].children)
}

// Reader walks a decoded BER-TLV buffer through a stack of (tag list,
// cursor) frames. The outermost frame is the top-level tag sequence.
type Reader struct {
	stack []*cursor
}

type cursor struct {
	tlvs []bertlv.TLV
	idx  int
	tag  string
}

// NewReader decodes buf and returns a Reader positioned at the top level.
func NewReader(buf []byte) (*Reader, error) {
	tlvs, err := bertlv.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("bertlv: decode: %w", err)
	}
	return &Reader{stack: []*cursor{{tlvs: tlvs}}}, nil
}

func (r *Reader) frame() *cursor {
	return r.stack[len(r.stack)-1]
}

// Next returns the tag of the next TLV in the current frame without
// consuming it, or ("", false) if the frame is exhausted.
func (r *Reader) Next() (tag string, ok bool) {
	f := r.frame()
	if f.idx >= len(f.tlvs) {
		return "", false
	}
	return f.tlvs[f.idx].Tag, true
}

// Remaining reports how many sibling TLVs are left, unread, in the current
// frame.
func (r *Reader) Remaining() int {
	f := r.frame()
	return len(f.tlvs) - f.idx
}

// ReadTag consumes and returns the next TLV's tag and raw value, advancing
// the cursor. It does not descend into constructed children; call Push to
// do that instead of reading the raw encoded child bytes.
func (r *Reader) ReadTag() (tag string, value []byte, err error) {
	f := r.frame()
	if f.idx >= len(f.tlvs) {
		return "", nil, fmt.Errorf("bertlv: read past end of frame")
	}
	t := f.tlvs[f.idx]
	f.idx++
	if len(t.TLVs) > 0 && len(t.Value) == 0 {
		enc, encErr := bertlv.Encode(t.TLVs)
		if encErr != nil {
			return "", nil, fmt.Errorf("bertlv: re-encode constructed %s: %w", t.Tag, encErr)
		}
		return t.Tag, enc, nil
	}
	return t.Tag, t.Value, nil
}

// ReadUint reads the next TLV as a big-endian unsigned integer.
func (r *Reader) ReadUint() (tag string, v uint64, err error) {
	tag, val, err := r.ReadTag()
	if err != nil {
		return "", 0, err
	}
	if len(val) > 8 {
		return "", 0, fmt.Errorf("bertlv: uint value too wide: %d bytes", len(val))
	}
	for _, b := range val {
		v = v<<8 | uint64(b)
	}
	return tag, v, nil
}

// Push descends into the constructed children of the next TLV, asserting
// its tag matches wantTag. Every Push must be matched by a Pop before its
// enclosing frame is exhausted.
func (r *Reader) Push(wantTag string) error {
	f := r.frame()
	if f.idx >= len(f.tlvs) {
		return fmt.Errorf("bertlv: push past end of frame")
	}
	t := f.tlvs[f.idx]
	if t.Tag != wantTag {
		return fmt.Errorf("bertlv: expected tag %s, got %s", wantTag, t.Tag)
	}
	f.idx++
	r.stack = append(r.stack, &cursor{tlvs: t.TLVs, tag: t.Tag})
	return nil
}

// Pop ends the current nested frame; it is a programmer error to call Pop
// at the top level.
func (r *Reader) Pop() {
	if len(r.stack) <= 1 {
		panic("bertlv: Pop with no matching Push")
	}
	r.stack = r.stack[:len(r.stack)-1]
}

// Skip discards the next TLV in the current frame without interpreting it.
func (r *Reader) Skip() error {
	_, _, err := r.ReadTag()
	return err
}

// AssertEnd panics (a programmer error, per spec) if the current frame has
// unread TLVs remaining.
func (r *Reader) AssertEnd() {
	if r.Remaining() != 0 {
		panic(fmt.Sprintf("bertlv: %d unread TLV(s) remain in frame", r.Remaining()))
	}
}

// HexTag formats a one- or two-byte PIV tag as a lower-case hex string
// ("5c", "7f49", ...), the form this package's callers compare tags against.
func HexTag(b ...byte) string {
	return hex.EncodeToString(b)
}
