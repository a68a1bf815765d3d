package retrieval

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewQueryLogger(&buf)

	l.Log(QueryLogEntry{Query: "computer science", NumResults: 4, Duration: 125 * time.Millisecond})

	var entry QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "computer science", entry.Query)
	assert.Equal(t, 4, entry.NumResults)
	assert.Equal(t, int64(125), entry.LatencyMs)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestFileQueryLogger_CreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/logs/query.log"
	l, err := NewFileQueryLogger(path)
	require.NoError(t, err)
	l.Log(QueryLogEntry{Query: "x"})
}
