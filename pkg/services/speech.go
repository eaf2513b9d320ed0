package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

const (
	elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech/%s"
	elevenLabsModel    = "eleven_turbo_v2_5"
	defaultVoiceID     = "21m00Tcm4TlvDq8ikWAM"
	maxSpeechChars     = 5000
	maxAudioBytes      = 10 << 20
)

// ElevenLabsSpeech synthesizes alert audio via the ElevenLabs API
type ElevenLabsSpeech struct {
	apiKey  string
	voiceID string
	client  *http.Client
}

// NewElevenLabsSpeech builds a speech client. An empty voice selects
// the default voice.
func NewElevenLabsSpeech(apiKey, voiceID string) (*ElevenLabsSpeech, error) {
	if apiKey == "" {
		return nil, ErrServiceDisabled
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &ElevenLabsSpeech{
		apiKey:  apiKey,
		voiceID: voiceID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts alert text to MP3 audio. Oversized text is
// truncated to the API limit.
func (e *ElevenLabsSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if len(text) > maxSpeechChars {
		text = text[:maxSpeechChars]
	}

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(elevenLabsEndpoint, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	timer := metrics.NewTimer()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.ExternalCalls.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ExternalCalls.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("speech synthesis returned %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}
	metrics.ExternalCalls.WithLabelValues("elevenlabs", "ok").Inc()
	log.WithComponent("elevenlabs").Debug().
		Int("chars", len(text)).
		Int("audio_bytes", len(audio)).
		Dur("elapsed", timer.Duration()).
		Msg("Speech synthesized")
	return audio, nil
}
