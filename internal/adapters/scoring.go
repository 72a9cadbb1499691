// internal/adapters/scoring.go
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"idea-eval-workers/internal/common/config"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/models"
)

var (
	ErrScoringFailed  = errors.New("SCORING_FAILED")
	ErrScoringTimeout = errors.New("SCORING_TIMEOUT")
)

// ScoringClient calls the AI service that turns a normalized business plan
// into a multi-dimensional score breakdown.
type ScoringClient struct {
	cfg    config.ServiceConfig
	client *http.Client
	logger logger.Logger
}

func NewScoringClient(cfg config.ServiceConfig, log logger.Logger) *ScoringClient {
	return &ScoringClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"service": "scoring"}),
	}
}

// Score evaluates a business plan. Breakdown dimensions come back in the
// model's native [0,2] range; TotalScore is already 0-100.
func (c *ScoringClient) Score(ctx context.Context, planJSON json.RawMessage) (*models.ScoreBreakdown, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
	defer cancel()

	var resp struct {
		TotalScore float64 `json:"totalScore"`
		Breakdown  struct {
			MarketPotential        float64 `json:"market_potential"`
			BusinessClarity        float64 `json:"business_clarity"`
			FinancialFeasibility   float64 `json:"financial_feasibility"`
			CompetitiveAdvantage   float64 `json:"competitive_advantage"`
			EntrepreneurCapability float64 `json:"entrepreneur_capability"`
		} `json:"breakdown"`
	}

	err := postJSON(callCtx, c.client, c.cfg.BaseURL+"/api/plan/score", c.cfg.APIKey,
		map[string]interface{}{"businessPlan": planJSON}, &resp)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues("scoring", "error").Inc()
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, ErrScoringTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}

	metrics.AdapterCalls.WithLabelValues("scoring", "ok").Inc()
	c.logger.Debug("plan scored", map[string]interface{}{
		"totalScore": resp.TotalScore,
	})

	return &models.ScoreBreakdown{
		TotalScore:             resp.TotalScore,
		MarketPotential:        resp.Breakdown.MarketPotential,
		BusinessClarity:        resp.Breakdown.BusinessClarity,
		FinancialFeasibility:   resp.Breakdown.FinancialFeasibility,
		CompetitiveAdvantage:   resp.Breakdown.CompetitiveAdvantage,
		EntrepreneurCapability: resp.Breakdown.EntrepreneurCapability,
	}, nil
}
