// Package ids generates the identifier formats used across Dead Drop:
// noir-flavored case IDs for officer-facing display and short uppercase
// UUID fragments for nodes, edges, reports and alerts.
package ids

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

var adjectives = []string{
	"Crimson", "Midnight", "Silent", "Shadow", "Obsidian", "Velvet",
	"Phantom", "Smoke", "Iron", "Steel", "Cold", "Deep", "Dark",
	"Alibi", "Cipher", "Code", "Whisper", "Echo", "Ghost",
}

var nouns = []string{
	"Alibi", "Cipher", "Code", "Whisper", "Echo", "Ghost",
	"Dossier", "Agent", "Drop", "Signal", "Trace",
	"File", "Case", "Wire", "Source", "Asset", "Cover",
}

// NewCaseID returns a display-friendly case ID: CASE-{Adjective}-{Noun}-{4 digits}.
// Uniqueness comes from usage (one per submitted tip), not from the format;
// collisions are tolerable because cases merge by ID anyway.
func NewCaseID() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	return fmt.Sprintf("CASE-%s-%s-%04d", adj, noun, 1000+rand.Intn(9000))
}

// NewReportID returns a unique report ID (RPT- prefix)
func NewReportID() string {
	return "RPT-" + suffix()
}

// NewNodeID returns a unique graph node ID (N- prefix)
func NewNodeID() string {
	return "N-" + suffix()
}

// NewEdgeID returns a unique graph edge ID (E- prefix)
func NewEdgeID() string {
	return "E-" + suffix()
}

// NewAlertID returns a unique alert ID (ALT- prefix)
func NewAlertID() string {
	return "ALT-" + suffix()
}

func suffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
