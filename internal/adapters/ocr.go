// internal/adapters/ocr.go
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
	ErrOCRFailed  = errors.New("OCR_FAILED")
	ErrOCRTimeout = errors.New("OCR_TIMEOUT")
)

// OCRClient calls the image-to-text service for image and sketch artifacts.
type OCRClient struct {
	cfg    config.ServiceConfig
	client *http.Client
	logger logger.Logger
}

func NewOCRClient(cfg config.ServiceConfig, log logger.Logger) *OCRClient {
	return &OCRClient{
		cfg: cfg,
		// No client-level timeout; the per-call context deadline governs.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"service": "ocr"}),
	}
}

// Extract runs OCR on the image behind imageURL.
func (c *OCRClient) Extract(ctx context.Context, imageURL string) (*Extraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
	defer cancel()

	var resp struct {
		ExtractedText string  `json:"extractedText"`
		Confidence    float64 `json:"confidence"`
	}

	err := postJSON(callCtx, c.client, c.cfg.BaseURL+"/api/ocr/extract", c.cfg.APIKey,
		map[string]interface{}{"imageUrl": imageURL}, &resp)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues("ocr", "error").Inc()
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, ErrOCRTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}

	metrics.AdapterCalls.WithLabelValues("ocr", "ok").Inc()
	c.logger.Debug("ocr extraction completed", map[string]interface{}{
		"confidence": resp.Confidence,
		"chars":      len(resp.ExtractedText),
	})

	return &Extraction{
		Text:       resp.ExtractedText,
		Confidence: clampConfidence(resp.Confidence),
	}, nil
}
