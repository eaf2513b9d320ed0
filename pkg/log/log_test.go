package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildLoggersChainInline(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	// Call sites chain level methods directly on the child logger.
	WithComponent("blackboard").Debug().Str("event", "node:report").Msg("notify")
	WithCase("CASE-Iron-Drop-4417").Info().Msg("new case opened")
	WithSource("clustering").Warn().Msg("external call degraded")
	WithStream("caseboard").Debug().Msg("subscriber connected")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "blackboard", first["component"])
	assert.Equal(t, "node:report", first["event"])

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "CASE-Iron-Drop-4417", second["case_id"])

	assert.Contains(t, string(lines[2]), `"source":"clustering"`)
	assert.Contains(t, string(lines[3]), `"stream":"caseboard"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	Debug("suppressed")
	Info("suppressed")
	Warn("emitted")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "emitted")
}
