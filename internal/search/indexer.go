// internal/search/indexer.go

// Package search mirrors completed evaluations into Elasticsearch for the
// admin dashboards. Indexing is best-effort; the evaluation record in
// PostgreSQL stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
)

// document is the flattened shape stored in the index. Only fields the
// dashboards filter or sort on are included.
type document struct {
	EvaluationID  string              `json:"evaluationId"`
	UserID        string              `json:"userId"`
	Title         string              `json:"title"`
	Industry      string              `json:"industry"`
	TargetMarket  string              `json:"targetMarket"`
	Status        string              `json:"status"`
	AdminStatus   string              `json:"adminStatus"`
	OverallScore  *float64            `json:"overallScore,omitempty"`
	PriorityLevel string              `json:"priorityLevel,omitempty"`
	Cohort        string              `json:"cohort,omitempty"`
	IndexedAt     time.Time           `json:"indexedAt"`
	Scores        map[string]*float64 `json:"scores,omitempty"`
}

// Indexer writes evaluation documents into one index.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = "evaluations"
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search", "index": index}),
	}
}

// IndexEvaluation upserts the document for one evaluation, keyed by its ID.
func (i *Indexer) IndexEvaluation(ctx context.Context, ev *models.Evaluation) error {
	doc := document{
		EvaluationID:  ev.ID,
		UserID:        ev.UserID,
		Title:         ev.Title,
		Industry:      ev.Industry,
		TargetMarket:  ev.TargetMarket,
		Status:        string(ev.Status),
		AdminStatus:   string(ev.AdminStatus),
		OverallScore:  ev.OverallScore,
		PriorityLevel: ev.PriorityLevel,
		Cohort:        ev.ApplicationCohort,
		IndexedAt:     time.Now().UTC(),
		Scores: map[string]*float64{
			"marketViability":      ev.MarketViability,
			"executionReadiness":   ev.ExecutionReadiness,
			"financialFeasibility": ev.FinancialFeasibility,
			"innovationIndex":      ev.InnovationIndex,
			"scalabilityPotential": ev.ScalabilityPotential,
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: ev.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index evaluation: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index evaluation: %s: %s", res.Status(), msg)
	}

	i.logger.Debug("evaluation indexed", map[string]interface{}{
		"evaluationId": ev.ID,
	})
	return nil
}
