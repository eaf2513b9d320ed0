package blackboard

// Priority orders knowledge sources in the controller queue. Lower
// values run first.
type Priority int

const (
	PriorityCritical   Priority = 0 // clustering: dedup before wasting compute
	PriorityHigh       Priority = 1 // forensics, debunk recount: evidence analysis
	PriorityMedium     Priority = 2 // network, xref: claim extraction and lookup
	PriorityLow        Priority = 3 // classifier: role assignment after the rest
	PriorityBackground Priority = 4 // case synthesis
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	}
	return "unknown"
}
