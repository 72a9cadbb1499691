// internal/adapters/synthesis.go
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"idea-eval-workers/internal/common/config"
	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrSynthesisFailed  = errors.New("SYNTHESIS_FAILED")
	ErrSynthesisTimeout = errors.New("SYNTHESIS_TIMEOUT")
)

// planSchema is the contract the synthesis service must honor. Anything the
// model hallucinates outside this shape is rejected before it reaches the
// scorer or the database.
const planSchema = `{
	"type": "object",
	"required": ["conceptSummary", "targetMarket", "revenueModel", "keyResources", "startupCosts", "competitiveAnalysis", "uniqueSellingProposition"],
	"properties": {
		"conceptSummary":           {"type": "string", "minLength": 1},
		"targetMarket":             {"type": "string"},
		"revenueModel":             {"type": "string"},
		"keyResources":             {"type": "array", "items": {"type": "string"}},
		"startupCosts": {
			"type": "object",
			"required": ["amount", "currency"],
			"properties": {
				"amount":    {"type": "number", "minimum": 0},
				"currency":  {"type": "string", "minLength": 1},
				"breakdown": {"type": "object"}
			}
		},
		"competitiveAnalysis":      {"type": "string"},
		"uniqueSellingProposition": {"type": "string"},
		"marketSize":               {"type": "string"},
		"financialProjections": {
			"type": "object",
			"properties": {
				"year1Revenue":    {"type": "number"},
				"year1Expenses":   {"type": "number"},
				"breakEvenMonths": {"type": "integer"}
			}
		},
		"teamBackground":           {"type": "string"},
		"implementationTimeline":   {"type": "array"}
	}
}`

// SynthesisInput carries everything extracted for one evaluation: the
// newline-joined text (typed description first, then per-file texts in
// registration order) plus the raw source URLs for cross-referencing.
type SynthesisInput struct {
	Text   string   `json:"text,omitempty"`
	Images []string `json:"images,omitempty"`
	Voice  []string `json:"voice,omitempty"`
}

// SynthesisResult is the validated output of one synthesis call.
type SynthesisResult struct {
	Plan       models.BusinessPlan
	PlanJSON   json.RawMessage
	Confidence float64
}

// SynthesisClient calls the AI service that normalizes extracted text into a
// business plan.
type SynthesisClient struct {
	cfg    config.ServiceConfig
	client *http.Client
	logger logger.Logger
	schema *gojsonschema.Schema
}

func NewSynthesisClient(cfg config.ServiceConfig, log logger.Logger) (*SynthesisClient, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(planSchema))
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return &SynthesisClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"service": "synthesis"}),
		schema: schema,
	}, nil
}

// Synthesize normalizes the combined inputs into a business plan and
// validates the returned JSON against the plan schema.
func (c *SynthesisClient) Synthesize(ctx context.Context, input *SynthesisInput) (*SynthesisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
	defer cancel()

	var resp struct {
		BusinessPlan json.RawMessage `json:"businessPlan"`
		Confidence   float64         `json:"confidence"`
	}

	err := postJSON(callCtx, c.client, c.cfg.BaseURL+"/api/plan/extract", c.cfg.APIKey, input, &resp)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues("synthesis", "error").Inc()
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, ErrSynthesisTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(resp.BusinessPlan))
	if err != nil {
		return nil, fmt.Errorf("%w: plan not parseable: %v", ErrSynthesisFailed, err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, apperrors.NewPlanValidationError(strings.Join(issues, "; "))
	}

	var plan models.BusinessPlan
	if err := json.Unmarshal(resp.BusinessPlan, &plan); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", ErrSynthesisFailed, err)
	}

	metrics.AdapterCalls.WithLabelValues("synthesis", "ok").Inc()
	c.logger.Debug("plan synthesized", map[string]interface{}{
		"confidence": resp.Confidence,
	})

	return &SynthesisResult{
		Plan:       plan,
		PlanJSON:   resp.BusinessPlan,
		Confidence: clampConfidence(resp.Confidence),
	}, nil
}
