package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

// ErrServiceDisabled marks a service left unconfigured (no API key)
var ErrServiceDisabled = errors.New("external service disabled")

const claimExtractorPrompt = `You are the Claim Extraction module for Dead Drop, a campus safety triage system.
Given a raw tip or report text from a student, extract ALL factual claims as an array.
For each claim, provide: the statement, a confidence score (0-1), and a category (threat, property, medical, environmental, rumor, other).
Also flag misinformation patterns: forwarded-many-times language, urgency without specificity, appeals to unnamed authorities, missing source attribution, AI-generated indicators.
Suggest 1-3 concrete verification steps security can take (check camera, call desk, etc.).
Respond ONLY in JSON with keys claims, urgency, misinformation_flags, suggested_verifications. No preamble.`

const searchQueryPrompt = `You are the Network Crawler for Dead Drop. Given extracted claims from a campus incident report, generate 2-3 targeted search queries that would find related content online (social media posts, news articles, forum discussions about the same incident). One query per line, nothing else.`

const caseSynthesizerPrompt = `You are the Case Synthesizer for Dead Drop. Given the full graph of a campus incident case (reports, media forensics, fact checks, external sources), produce a structured synthesis.
Respond ONLY in JSON with keys: narrative (string), origin_analysis (string), confidence (number 0-1), recommended_action (string).`

const alertComposerPrompt = `You are the Alert Composer for Dead Drop. Given a verified case with forensic results, clustered reports, and officer notes, generate a public safety alert.
RULES: Use only confirmed facts. Never speculate. Never identify individuals by name.
Include: status (Confirmed/Investigating/All Clear), location, what is known, clear instructions for students, timestamp. Keep it under 100 words.
Tone: calm, factual, authoritative. No panic language.`

// ExtractedClaim is one checkable statement pulled from a report
type ExtractedClaim struct {
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

// ClaimExtraction is the structured result of claim analysis
type ClaimExtraction struct {
	Claims                 []ExtractedClaim `json:"claims"`
	Urgency                float64          `json:"urgency"`
	MisinformationFlags    []string         `json:"misinformation_flags"`
	SuggestedVerifications []string         `json:"suggested_verifications"`
}

// CaseSynthesis is the structured case summary
type CaseSynthesis struct {
	Narrative         string  `json:"narrative"`
	OriginAnalysis    string  `json:"origin_analysis"`
	Confidence        float64 `json:"confidence"`
	RecommendedAction string  `json:"recommended_action"`
}

// AI wraps a Completer with the prompt shapes the knowledge sources
// use. Every method degrades to an empty result on failure; none
// returns an error the callers would have to handle beyond logging.
type AI struct {
	completer Completer
}

// NewAI wraps a completer
func NewAI(completer Completer) *AI {
	return &AI{completer: completer}
}

// ExtractClaims pulls checkable claims out of report text. Empty
// extraction on failure.
func (a *AI) ExtractClaims(ctx context.Context, reportText string) ClaimExtraction {
	prompt := fmt.Sprintf("%s\n\nReport text:\n%s", claimExtractorPrompt, reportText)
	raw, err := a.completer.Complete(ctx, prompt, "extract_claims")
	if err != nil {
		a.warn("extract_claims", err)
		return ClaimExtraction{}
	}
	var out ClaimExtraction
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &out); err != nil {
		a.warn("extract_claims", fmt.Errorf("unparseable response: %w", err))
		return ClaimExtraction{}
	}
	return out
}

// SearchQueries proposes up to three web search queries for a claim
// set. Empty on failure.
func (a *AI) SearchQueries(ctx context.Context, claims []ExtractedClaim) []string {
	if len(claims) == 0 {
		return nil
	}
	body, _ := json.Marshal(claims)
	prompt := fmt.Sprintf("%s\n\nClaims:\n%s", searchQueryPrompt, body)
	raw, err := a.completer.Complete(ctx, prompt, "search_queries")
	if err != nil {
		a.warn("search_queries", err)
		return nil
	}
	return parseQueryLines(raw)
}

// SynthesizeCase produces the structured case summary. Nil on failure.
func (a *AI) SynthesizeCase(ctx context.Context, caseContext string) *CaseSynthesis {
	prompt := fmt.Sprintf("%s\n\nCase context:\n%s", caseSynthesizerPrompt, caseContext)
	raw, err := a.completer.Complete(ctx, prompt, "synthesize_case")
	if err != nil {
		a.warn("synthesize_case", err)
		return nil
	}
	var out CaseSynthesis
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &out); err != nil {
		a.warn("synthesize_case", fmt.Errorf("unparseable response: %w", err))
		return nil
	}
	return &out
}

// ComposeAlert drafts a public alert from case context and officer
// notes. Falls back to a fixed holding statement when the service is
// unavailable, so officers always get a draft to edit.
func (a *AI) ComposeAlert(ctx context.Context, caseContext, officerNotes string) string {
	prompt := fmt.Sprintf("%s\n\nCase context:\n%s", alertComposerPrompt, caseContext)
	if officerNotes != "" {
		prompt += "\n\nOfficer notes:\n" + officerNotes
	}
	raw, err := a.completer.Complete(ctx, prompt, "compose_alert")
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			a.warn("compose_alert", err)
		}
		return "Campus Safety Notice: We are investigating a reported incident. Please avoid the area until further notice. Check official channels for updates."
	}
	return strings.TrimSpace(stripJSONFence(raw))
}

func (a *AI) warn(purpose string, err error) {
	metrics.ExternalCalls.WithLabelValues("ai", "error").Inc()
	if errors.Is(err, ErrServiceDisabled) {
		return
	}
	log.WithComponent("ai").Warn().Err(err).Str("purpose", purpose).Msg("AI call degraded to empty result")
}

// stripJSONFence removes a markdown code fence around a JSON response.
// Models wrap structured answers in fences often enough that tolerating
// it is cheaper than prompting harder.
func stripJSONFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func parseQueryLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Tolerate numbered lists: "1. campus fire alarm"
		if i := strings.Index(line, ". "); i > 0 && i <= 3 {
			line = line[i+2:]
		}
		line = strings.Trim(line, `"-`)
		if line != "" {
			out = append(out, line)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}
