package runtime

import "strings"

// RecordDelimiter separates records on an external runtime's stdout.
//
// Known limitation, preserved for wire compatibility: a child that emits the
// literal delimiter inside a JSON string value will corrupt framing.
const RecordDelimiter = ":log:\n"

// RecordSplitter reassembles delimiter-framed records from a chunked byte
// stream. Partial records are buffered across Feed calls and only returned
// once their delimiter arrives; a trailing record that never sees a
// delimiter is dropped at stream end.
type RecordSplitter struct {
	buf string
}

// Feed appends a chunk and returns all records completed by it, in order.
func (s *RecordSplitter) Feed(chunk []byte) []string {
	s.buf += string(chunk)
	parts := strings.Split(s.buf, RecordDelimiter)
	s.buf = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Pending returns the buffered partial record. Diagnostic only; the partial
// is never parsed.
func (s *RecordSplitter) Pending() string { return s.buf }
