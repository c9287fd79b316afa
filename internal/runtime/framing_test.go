package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(s *RecordSplitter, data []byte, chunkSize int) []string {
	var records []string
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		records = append(records, s.Feed(data[off:end])...)
	}
	return records
}

func TestSplitterRecoversRecords(t *testing.T) {
	data := []byte(`{"log_type":"INFO","message":"hi"}` + RecordDelimiter +
		`{"log_type":"SUCCESS","message":"done"}` + RecordDelimiter)

	var s RecordSplitter
	records := s.Feed(data)
	require.Len(t, records, 2)
	assert.Equal(t, `{"log_type":"INFO","message":"hi"}`, records[0])
	assert.Equal(t, `{"log_type":"SUCCESS","message":"done"}`, records[1])
	assert.Empty(t, s.Pending())
}

func TestSplitterChunkBoundaryInvariance(t *testing.T) {
	// Splitting the same stream at arbitrary byte boundaries must yield the
	// same records as delivering it in one piece.
	data := []byte(`{"log_type":"INFO","message":"one"}` + RecordDelimiter +
		`raw text segment` + RecordDelimiter +
		`{"log_type":"ERROR","message":"two","data":{"k":":log:-ish"}}` + RecordDelimiter)

	var whole RecordSplitter
	want := whole.Feed(data)
	require.Len(t, want, 3)

	for chunkSize := 1; chunkSize <= len(data); chunkSize++ {
		var s RecordSplitter
		got := feedAll(&s, data, chunkSize)
		require.Equal(t, want, got, "chunk size %d", chunkSize)
		assert.Empty(t, s.Pending(), "chunk size %d", chunkSize)
	}
}

func TestSplitterSeparateDeliveries(t *testing.T) {
	var s RecordSplitter

	records := s.Feed([]byte(`{"log_type":"INFO","message":"hi"}` + RecordDelimiter))
	require.Len(t, records, 1)

	records = s.Feed([]byte(`{"log_type":"SUCCESS","message":"done"}` + RecordDelimiter))
	require.Len(t, records, 1)
	assert.Equal(t, `{"log_type":"SUCCESS","message":"done"}`, records[0])
}

func TestSplitterBuffersPartialRecord(t *testing.T) {
	var s RecordSplitter

	assert.Empty(t, s.Feed([]byte(`{"log_type":"IN`)))
	assert.Empty(t, s.Feed([]byte(`FO","message":"hi"}:lo`)))
	records := s.Feed([]byte("g:\n"))
	require.Len(t, records, 1)
	assert.Equal(t, `{"log_type":"INFO","message":"hi"}`, records[0])
}

func TestSplitterTrailingPartialIsNeverReturned(t *testing.T) {
	var s RecordSplitter
	records := s.Feed([]byte(`{"log_type":"INFO","message":"no delimiter"}`))
	assert.Empty(t, records)
	assert.NotEmpty(t, s.Pending())
}
