package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaseIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^CASE-[A-Z][a-z]+-[A-Z][a-z]+-\d{4}$`)
	for i := 0; i < 50; i++ {
		id := NewCaseID()
		assert.Regexp(t, re, id)
	}
}

func TestEntityIDFormats(t *testing.T) {
	tests := []struct {
		name string
		gen  func() string
		re   string
	}{
		{"report", NewReportID, `^RPT-[0-9A-F]{12}$`},
		{"node", NewNodeID, `^N-[0-9A-F]{12}$`},
		{"edge", NewEdgeID, `^E-[0-9A-F]{12}$`},
		{"alert", NewAlertID, `^ALT-[0-9A-F]{12}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, regexp.MustCompile(tt.re), tt.gen())
		})
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewNodeID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
