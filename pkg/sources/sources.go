package sources

import (
	"fmt"
	"time"

	"github.com/wolftrace/deaddrop/pkg/blackboard"
	"github.com/wolftrace/deaddrop/pkg/graph"
	"github.com/wolftrace/deaddrop/pkg/services"
	"github.com/wolftrace/deaddrop/pkg/types"
)

// Register wires the seven knowledge sources into the controller.
// Priorities, trigger types, conditions and cooldowns are the engine's
// scheduling contract; changing them changes which analysis runs first
// and how fast cases converge.
func Register(c *blackboard.Controller, store *graph.Store, deps services.Deps) error {
	clustering := &clusteringSource{store: store}
	forensics := &forensicsSource{store: store, media: deps.Media}
	recluster := &reclusterSource{store: store}
	network := &networkSource{store: store, ai: deps.AI, facts: deps.FactCheck}
	xref := &xrefSource{store: store, media: deps.Media}
	classifier := &classifierSource{store: store}
	synthesizer := &synthesizerSource{store: store, ai: deps.AI}

	defs := []blackboard.Source{
		{
			Name:         "clustering",
			Priority:     blackboard.PriorityCritical,
			TriggerTypes: []string{"node:report", "edge:repost_of", "edge:mutation_of"},
			Cooldown:     2 * time.Second,
			Handler:      clustering.Handle,
		},
		{
			Name:         "forensics",
			Priority:     blackboard.PriorityHigh,
			TriggerTypes: []string{"node:report"},
			Condition:    hasMediaURL,
			Cooldown:     2 * time.Second,
			Handler:      forensics.Handle,
		},
		{
			Name:         "recluster_debunk",
			Priority:     blackboard.PriorityHigh,
			TriggerTypes: []string{"edge:debunked_by"},
			Cooldown:     time.Second,
			Handler:      recluster.Handle,
		},
		{
			Name:         "network",
			Priority:     blackboard.PriorityMedium,
			TriggerTypes: []string{"node:report"},
			Cooldown:     time.Second,
			Handler:      network.Handle,
		},
		{
			Name:         "forensics_xref",
			Priority:     blackboard.PriorityMedium,
			TriggerTypes: []string{"update:report"},
			Condition:    hasClaims,
			Cooldown:     3 * time.Second,
			Handler:      xref.Handle,
		},
		{
			Name:     "classifier",
			Priority: blackboard.PriorityLow,
			TriggerTypes: []string{
				"edge:similar_to", "edge:repost_of", "edge:mutation_of",
				"edge:debunked_by", "edge:amplified_by",
				"node:fact_check", "node:external_source",
			},
			Cooldown: 2 * time.Second,
			Handler:  classifier.Handle,
		},
		{
			Name:         "case_synthesizer",
			Priority:     blackboard.PriorityBackground,
			TriggerTypes: []string{"update:report"},
			Condition:    hasClaims,
			Cooldown:     5 * time.Second,
			Handler:      synthesizer.Handle,
		},
	}

	for _, def := range defs {
		if err := c.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

func hasMediaURL(m types.Mutation) bool {
	return m.Node != nil && m.Node.MediaURL() != ""
}

func hasClaims(m types.Mutation) bool {
	return m.Node != nil && len(m.Node.Claims()) > 0
}
