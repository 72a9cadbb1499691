// internal/adapters/speech.go
package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"idea-eval-workers/internal/common/config"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
)

var (
	ErrTranscriptionFailed  = errors.New("TRANSCRIPTION_FAILED")
	ErrTranscriptionTimeout = errors.New("TRANSCRIPTION_TIMEOUT")
)

// SpeechClient calls the speech-to-text service for voice artifacts.
type SpeechClient struct {
	cfg    config.ServiceConfig
	client *http.Client
	logger logger.Logger
}

func NewSpeechClient(cfg config.ServiceConfig, log logger.Logger) *SpeechClient {
	return &SpeechClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"service": "speech"}),
	}
}

// Transcribe converts the audio behind audioURL to text.
func (c *SpeechClient) Transcribe(ctx context.Context, audioURL string) (*Extraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
	defer cancel()

	var resp struct {
		Transcription string  `json:"transcription"`
		Confidence    float64 `json:"confidence"`
	}

	err := postJSON(callCtx, c.client, c.cfg.BaseURL+"/api/speech/transcribe", c.cfg.APIKey,
		map[string]interface{}{"audioUrl": audioURL}, &resp)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues("speech", "error").Inc()
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, ErrTranscriptionTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	metrics.AdapterCalls.WithLabelValues("speech", "ok").Inc()
	c.logger.Debug("transcription completed", map[string]interface{}{
		"confidence": resp.Confidence,
		"chars":      len(resp.Transcription),
	})

	return &Extraction{
		Text:       resp.Transcription,
		Confidence: clampConfidence(resp.Confidence),
	}, nil
}
