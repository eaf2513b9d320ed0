package services

import (
	"context"
	"errors"

	"github.com/wolftrace/deaddrop/pkg/config"
	"github.com/wolftrace/deaddrop/pkg/log"
)

// Completer is a minimal AI text completion contract. purpose tags the
// call for logging and metrics; implementations may fail, and callers
// substitute documented fallbacks.
type Completer interface {
	Complete(ctx context.Context, prompt, purpose string) (string, error)
}

// ClaimReview is one fact-check result for a claim
type ClaimReview struct {
	ClaimText string `json:"claim_text"`
	Rating    string `json:"rating"`
	Reviewer  string `json:"reviewer"`
	URL       string `json:"url"`
}

// FactChecker looks claims up against a fact-check corpus. Empty on
// failure.
type FactChecker interface {
	Lookup(ctx context.Context, claimText string) ([]ClaimReview, error)
}

// VideoHit is one semantic video search result
type VideoHit struct {
	Source string  `json:"source"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
}

// Media provides perceptual hashing and semantic video search. PHash
// returns 0 and VideoSearch returns empty when the service cannot
// answer.
type Media interface {
	PHash(ctx context.Context, url string) (uint64, error)
	VideoSearch(ctx context.Context, query string) ([]VideoHit, error)
}

// Speech synthesizes audio from text. Nil bytes on failure or when the
// service is not configured.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Deps bundles the external services the knowledge sources and alert
// publication consume. Tests inject deterministic stubs.
type Deps struct {
	AI        *AI
	FactCheck FactChecker
	Media     Media
	Speech    Speech
}

// Disabled returns a Deps where every service degrades to empty
// results. This is the no-credentials configuration.
func Disabled() Deps {
	return Deps{
		AI:        NewAI(DisabledCompleter{}),
		FactCheck: DisabledFactChecker{},
		Media:     DisabledMedia{},
		Speech:    DisabledSpeech{},
	}
}

// FromConfig builds the service bundle from credentials. Each missing
// key disables only its own service; the fact check key falls back to
// the Gemini key because both are Google API keys.
func FromConfig(ctx context.Context, cfg config.ServicesConfig) Deps {
	deps := Disabled()
	logger := log.WithComponent("services")

	if completer, err := NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		deps.AI = NewAI(completer)
	} else if !errors.Is(err, ErrServiceDisabled) {
		logger.Warn().Err(err).Msg("Gemini unavailable, AI analysis disabled")
	}

	factCheckKey := cfg.FactCheckAPIKey
	if factCheckKey == "" {
		factCheckKey = cfg.GeminiAPIKey
	}
	if checker, err := NewGoogleFactChecker(factCheckKey); err == nil {
		deps.FactCheck = checker
	}

	deps.Media = NewMediaClient(cfg.TwelveLabsAPIKey, cfg.TwelveLabsIndexID)

	if speech, err := NewElevenLabsSpeech(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID); err == nil {
		deps.Speech = speech
	}

	logger.Info().
		Bool("ai", cfg.GeminiAPIKey != "").
		Bool("factcheck", factCheckKey != "").
		Bool("video_search", cfg.TwelveLabsAPIKey != "").
		Bool("speech", cfg.ElevenLabsAPIKey != "").
		Msg("External services configured")
	return deps
}

// DisabledCompleter always reports the service unavailable
type DisabledCompleter struct{}

func (DisabledCompleter) Complete(ctx context.Context, prompt, purpose string) (string, error) {
	return "", ErrServiceDisabled
}

// DisabledFactChecker returns no reviews
type DisabledFactChecker struct{}

func (DisabledFactChecker) Lookup(ctx context.Context, claimText string) ([]ClaimReview, error) {
	return nil, nil
}

// DisabledMedia returns zero hashes and no hits
type DisabledMedia struct{}

func (DisabledMedia) PHash(ctx context.Context, url string) (uint64, error) {
	return 0, ErrServiceDisabled
}

func (DisabledMedia) VideoSearch(ctx context.Context, query string) ([]VideoHit, error) {
	return nil, nil
}

// DisabledSpeech returns no audio
type DisabledSpeech struct{}

func (DisabledSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}
