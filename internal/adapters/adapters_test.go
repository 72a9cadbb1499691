// internal/adapters/adapters_test.go
package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-eval-workers/internal/common/config"
	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
)

func serviceConfig(baseURL string) config.ServiceConfig {
	return config.ServiceConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2000,
	}
}

const validPlanJSON = `{
	"conceptSummary": "Mobile bookkeeping for market traders",
	"targetMarket": "Informal retail traders",
	"revenueModel": "Monthly subscription",
	"keyResources": ["mobile app", "agent network"],
	"startupCosts": {"amount": 15000, "currency": "USD"},
	"competitiveAnalysis": "Paper ledgers and generic spreadsheet apps",
	"uniqueSellingProposition": "Voice-first data entry in local languages"
}`

func TestOCRClientExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ocr/extract", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example.com/sketch.png", req["imageUrl"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"extractedText": "whiteboard business model sketch",
			"confidence":    0.82,
		})
	}))
	defer srv.Close()

	client := NewOCRClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	got, err := client.Extract(context.Background(), "https://cdn.example.com/sketch.png")

	require.NoError(t, err)
	assert.Equal(t, "whiteboard business model sketch", got.Text)
	assert.Equal(t, 0.82, got.Confidence)
}

func TestOCRClientExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOCRClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	_, err := client.Extract(context.Background(), "https://cdn.example.com/a.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOCRFailed)
}

func TestOCRClientExtractTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := serviceConfig(srv.URL)
	cfg.Timeout = 20
	client := NewOCRClient(cfg, logger.NewTestLogger(t))
	_, err := client.Extract(context.Background(), "https://cdn.example.com/a.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOCRTimeout)
}

func TestOCRClientClampsConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"extractedText": "text",
			"confidence":    1.4,
		})
	}))
	defer srv.Close()

	client := NewOCRClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	got, err := client.Extract(context.Background(), "https://cdn.example.com/a.png")

	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestSpeechClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/speech/transcribe", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example.com/pitch.mp3", req["audioUrl"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"transcription": "our idea is a delivery cooperative",
			"confidence":    0.91,
		})
	}))
	defer srv.Close()

	client := NewSpeechClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	got, err := client.Transcribe(context.Background(), "https://cdn.example.com/pitch.mp3")

	require.NoError(t, err)
	assert.Equal(t, "our idea is a delivery cooperative", got.Text)
	assert.Equal(t, 0.91, got.Confidence)
}

func TestSpeechClientTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewSpeechClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	_, err := client.Transcribe(context.Background(), "https://cdn.example.com/pitch.mp3")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
}

func TestSynthesisClientSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/plan/extract", r.URL.Path)

		var req SynthesisInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Text, "bookkeeping")

		w.Write([]byte(`{"businessPlan": ` + validPlanJSON + `, "confidence": 0.88}`))
	}))
	defer srv.Close()

	client, err := NewSynthesisClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	require.NoError(t, err)

	got, err := client.Synthesize(context.Background(), &SynthesisInput{
		Text: "Mobile bookkeeping for market traders",
	})

	require.NoError(t, err)
	assert.Equal(t, "Mobile bookkeeping for market traders", got.Plan.ConceptSummary)
	assert.Equal(t, "USD", got.Plan.StartupCosts.Currency)
	assert.Equal(t, 0.88, got.Confidence)
	assert.JSONEq(t, validPlanJSON, string(got.PlanJSON))
}

func TestSynthesisClientRejectsInvalidPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing the required startupCosts and revenueModel fields.
		w.Write([]byte(`{"businessPlan": {"conceptSummary": "x", "targetMarket": "y"}, "confidence": 0.5}`))
	}))
	defer srv.Close()

	client, err := NewSynthesisClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), &SynthesisInput{Text: "x"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePlanValidationFailed, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestSynthesisClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewSynthesisClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), &SynthesisInput{Text: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}

func TestScoringClientScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/plan/score", r.URL.Path)

		var req map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "businessPlan")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"totalScore": 72.5,
			"breakdown": map[string]float64{
				"market_potential":        1.6,
				"business_clarity":        1.4,
				"financial_feasibility":   1.2,
				"competitive_advantage":   1.5,
				"entrepreneur_capability": 1.55,
			},
		})
	}))
	defer srv.Close()

	client := NewScoringClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	got, err := client.Score(context.Background(), json.RawMessage(validPlanJSON))

	require.NoError(t, err)
	assert.Equal(t, 72.5, got.TotalScore)
	assert.Equal(t, 1.6, got.MarketPotential)
	assert.Equal(t, 1.4, got.BusinessClarity)
	assert.Equal(t, 1.2, got.FinancialFeasibility)
	assert.Equal(t, 1.5, got.CompetitiveAdvantage)
	assert.Equal(t, 1.55, got.EntrepreneurCapability)
}

func TestScoringClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewScoringClient(serviceConfig(srv.URL), logger.NewTestLogger(t))
	_, err := client.Score(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScoringFailed)
}
