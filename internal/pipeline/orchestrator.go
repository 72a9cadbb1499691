// internal/pipeline/orchestrator.go

// Package pipeline runs the evaluation of a submitted business idea end to
// end: per-file content extraction, plan synthesis, scoring and the final
// guarded persistence of the result.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"idea-eval-workers/internal/adapters"
	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/common/observability"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

// scoreScale maps the scorer's native [0,2] dimension range onto the 0-100
// scale the evaluation record stores.
const scoreScale = 50.0

// EvaluationRepo is the subset of the evaluation store the orchestrator
// drives.
type EvaluationRepo interface {
	Get(ctx context.Context, id string) (*models.Evaluation, error)
	BeginProcessing(ctx context.Context, id string) (int, error)
	MarkCompleted(ctx context.Context, id string, version int, upd *store.CompletionUpdate) error
	MarkFailed(ctx context.Context, id string, version int, stage models.FailureStage, detail string) error
}

// FileRepo lists an evaluation's files and persists per-file extraction
// results.
type FileRepo interface {
	ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.IntakeFile, error)
	SaveExtraction(ctx context.Context, fileID, text string, confidence float64, results json.RawMessage) error
}

// Auditor appends best-effort audit rows.
type Auditor interface {
	Record(ctx context.Context, entry *store.AuditEntry)
}

// ImageExtractor turns an image or sketch URL into text.
type ImageExtractor interface {
	Extract(ctx context.Context, imageURL string) (*adapters.Extraction, error)
}

// VoiceTranscriber turns an audio URL into text.
type VoiceTranscriber interface {
	Transcribe(ctx context.Context, audioURL string) (*adapters.Extraction, error)
}

// PlanSynthesizer normalizes combined inputs into a validated business plan.
type PlanSynthesizer interface {
	Synthesize(ctx context.Context, input *adapters.SynthesisInput) (*adapters.SynthesisResult, error)
}

// PlanScorer scores a business plan.
type PlanScorer interface {
	Score(ctx context.Context, planJSON json.RawMessage) (*models.ScoreBreakdown, error)
}

// Downloader fetches stored blobs. Document files skip the extraction
// services because their content already is text.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// SearchIndexer pushes completed evaluations into the search index.
// Indexing failures never fail the run.
type SearchIndexer interface {
	IndexEvaluation(ctx context.Context, ev *models.Evaluation) error
}

// Locker serializes runs per evaluation.
type Locker interface {
	Acquire(ctx context.Context, evaluationID string) (token string, ok bool, err error)
	Release(ctx context.Context, evaluationID, token string)
}

// Options wires the orchestrator's collaborators. Indexer is optional.
type Options struct {
	Evaluations EvaluationRepo
	Files       FileRepo
	Audit       Auditor
	Lock        Locker
	OCR         ImageExtractor
	Speech      VoiceTranscriber
	Synthesis   PlanSynthesizer
	Scoring     PlanScorer
	Blobs       Downloader
	Indexer     SearchIndexer

	ExtractionRetry RetryPolicy
	SynthesisRetry  RetryPolicy
	ScoringRetry    RetryPolicy

	Observability *observability.Observability
	Logger        logger.Logger
}

// Orchestrator runs the full evaluation pipeline for one application at a
// time per evaluation.
type Orchestrator struct {
	opts   Options
	logger logger.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// ProcessApplication executes one pipeline run. Concurrent runs on the same
// evaluation are rejected with RUN_IN_PROGRESS. A failed run records the
// stage that broke and leaves the evaluation claimable again.
func (o *Orchestrator) ProcessApplication(ctx context.Context, evaluationID string) error {
	log := o.logger.WithFields(map[string]interface{}{"evaluationId": evaluationID})
	start := time.Now()

	token, ok, err := o.opts.Lock.Acquire(ctx, evaluationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewRunInProgressError(evaluationID)
	}
	defer o.opts.Lock.Release(ctx, evaluationID, token)

	version, err := o.opts.Evaluations.BeginProcessing(ctx, evaluationID)
	if err != nil {
		return err
	}
	log.Info("pipeline run started", map[string]interface{}{"version": version})

	ev, err := o.opts.Evaluations.Get(ctx, evaluationID)
	if err != nil {
		return o.fail(ctx, log, evaluationID, version, models.StagePersistence, err, start)
	}

	processed, err := o.extractInputs(ctx, ev)
	if err != nil {
		stage := models.StageExtraction
		if apperrors.CodeOf(err) == apperrors.ErrCodePersistenceFailed {
			stage = models.StagePersistence
		}
		return o.fail(ctx, log, evaluationID, version, stage, err, start)
	}

	synthesized, err := o.synthesize(ctx, log, ev, processed)
	if err != nil {
		return o.fail(ctx, log, evaluationID, version, models.StageSynthesis, err, start)
	}

	scores, err := o.score(ctx, log, synthesized.PlanJSON)
	if err != nil {
		return o.fail(ctx, log, evaluationID, version, models.StageScoring, err, start)
	}

	if err := o.complete(ctx, log, ev, version, processed, synthesized, scores); err != nil {
		return o.fail(ctx, log, evaluationID, version, models.StagePersistence, err, start)
	}

	metrics.PipelineRuns.WithLabelValues("completed").Inc()
	if o.opts.Observability != nil {
		o.opts.Observability.RecordRun(ctx, "completed")
		o.opts.Observability.RecordRunDuration(ctx, time.Since(start), "completed")
	}
	log.Info("pipeline run completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}

// extractInputs walks the evaluation's files in registration order and
// extracts text from each, persisting per-file results as it goes. Files are
// processed sequentially so a single bad artifact fails fast and the
// concatenation order stays deterministic.
func (o *Orchestrator) extractInputs(ctx context.Context, ev *models.Evaluation) (*models.ProcessedInputs, error) {
	stageStart := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("extraction").Observe(time.Since(stageStart).Seconds())
	}()

	files, err := o.opts.Files.ListByEvaluation(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	processed := &models.ProcessedInputs{Description: strings.TrimSpace(ev.Description)}
	for _, f := range files {
		extraction, err := o.extractFile(ctx, f)
		if err != nil {
			return nil, err
		}

		input := models.ProcessedInput{
			FileID:     f.ID,
			Source:     f.FileType,
			Text:       extraction.Text,
			Confidence: extraction.Confidence,
		}
		processed.Inputs = append(processed.Inputs, input)
		metrics.FilesExtracted.WithLabelValues(string(f.FileType)).Inc()

		results, _ := json.Marshal(input)
		if err := o.opts.Files.SaveExtraction(ctx, f.ID, extraction.Text, extraction.Confidence, results); err != nil {
			return nil, apperrors.NewPersistenceError("save extraction result", err)
		}
	}

	if processed.Description == "" && len(processed.Inputs) == 0 {
		return nil, apperrors.NewExtractionError(ev.ID, errors.New("no inputs to process"))
	}
	return processed, nil
}

func (o *Orchestrator) extractFile(ctx context.Context, f *models.IntakeFile) (*adapters.Extraction, error) {
	var extraction *adapters.Extraction

	op := func(ctx context.Context) error {
		var err error
		switch f.FileType {
		case models.FileImage, models.FileSketch:
			extraction, err = o.opts.OCR.Extract(ctx, f.FileURL)
		case models.FileVoice:
			extraction, err = o.opts.Speech.Transcribe(ctx, f.FileURL)
		case models.FileDocument:
			var data []byte
			data, err = o.opts.Blobs.Download(ctx, f.FileURL)
			if err == nil {
				extraction = &adapters.Extraction{Text: string(data), Confidence: 1.0}
			}
		default:
			return apperrors.NewExtractionError(f.ID, fmt.Errorf("unsupported file type %q", f.FileType))
		}
		if err != nil {
			return o.classifyExtraction(f.ID, err)
		}
		return nil
	}

	if err := o.opts.ExtractionRetry.Do(ctx, o.logger, "extraction", op); err != nil {
		return nil, err
	}
	return extraction, nil
}

func (o *Orchestrator) classifyExtraction(fileID string, err error) error {
	if apperrors.AsStandard(err) != nil {
		return err
	}
	if errors.Is(err, adapters.ErrOCRTimeout) || errors.Is(err, adapters.ErrTranscriptionTimeout) {
		return apperrors.NewExtractionTimeoutError(fileID)
	}
	return apperrors.NewExtractionError(fileID, err)
}

func (o *Orchestrator) synthesize(ctx context.Context, log logger.Logger, ev *models.Evaluation, processed *models.ProcessedInputs) (*adapters.SynthesisResult, error) {
	stageStart := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("synthesis").Observe(time.Since(stageStart).Seconds())
	}()

	input := buildSynthesisInput(processed)
	var result *adapters.SynthesisResult

	op := func(ctx context.Context) error {
		var err error
		result, err = o.opts.Synthesis.Synthesize(ctx, input)
		if err == nil {
			return nil
		}
		if apperrors.AsStandard(err) != nil {
			return err
		}
		if errors.Is(err, adapters.ErrSynthesisTimeout) {
			return apperrors.NewSynthesisTimeoutError()
		}
		return apperrors.NewSynthesisError(err)
	}

	if err := o.opts.SynthesisRetry.Do(ctx, log, "synthesis", op); err != nil {
		return nil, err
	}
	return result, nil
}

// buildSynthesisInput joins the typed description and every extracted text in
// registration order, description first.
func buildSynthesisInput(processed *models.ProcessedInputs) *adapters.SynthesisInput {
	parts := make([]string, 0, len(processed.Inputs)+1)
	if processed.Description != "" {
		parts = append(parts, processed.Description)
	}

	input := &adapters.SynthesisInput{}
	for _, in := range processed.Inputs {
		if text := strings.TrimSpace(in.Text); text != "" {
			parts = append(parts, text)
		}
		switch in.Source {
		case models.FileImage, models.FileSketch:
			input.Images = append(input.Images, in.FileID)
		case models.FileVoice:
			input.Voice = append(input.Voice, in.FileID)
		}
	}
	input.Text = strings.Join(parts, "\n\n")
	return input
}

func (o *Orchestrator) score(ctx context.Context, log logger.Logger, planJSON json.RawMessage) (*models.ScoreBreakdown, error) {
	stageStart := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("scoring").Observe(time.Since(stageStart).Seconds())
	}()

	var scores *models.ScoreBreakdown
	op := func(ctx context.Context) error {
		var err error
		scores, err = o.opts.Scoring.Score(ctx, planJSON)
		if err == nil {
			return nil
		}
		if errors.Is(err, adapters.ErrScoringTimeout) {
			return apperrors.NewScoringTimeoutError()
		}
		return apperrors.NewScoringError(err)
	}

	if err := o.opts.ScoringRetry.Do(ctx, log, "scoring", op); err != nil {
		return nil, err
	}
	return scores, nil
}

func (o *Orchestrator) complete(ctx context.Context, log logger.Logger, ev *models.Evaluation, version int, processed *models.ProcessedInputs, synthesized *adapters.SynthesisResult, scores *models.ScoreBreakdown) error {
	stageStart := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("persistence").Observe(time.Since(stageStart).Seconds())
	}()

	processedJSON, err := json.Marshal(processed)
	if err != nil {
		return apperrors.NewPersistenceError("encode processed inputs", err)
	}

	upd := &store.CompletionUpdate{
		OverallScore:         scores.TotalScore,
		MarketViability:      scores.MarketPotential * scoreScale,
		ExecutionReadiness:   scores.BusinessClarity * scoreScale,
		FinancialFeasibility: scores.FinancialFeasibility * scoreScale,
		InnovationIndex:      scores.CompetitiveAdvantage * scoreScale,
		ScalabilityPotential: scores.EntrepreneurCapability * scoreScale,
		BusinessPlanJSON:     synthesized.PlanJSON,
		ExtractionConfidence: extractionConfidence(processed),
		ProcessedInputs:      processedJSON,
	}
	if err := o.opts.Evaluations.MarkCompleted(ctx, ev.ID, version, upd); err != nil {
		return err
	}

	if o.opts.Audit != nil {
		details, _ := json.Marshal(map[string]interface{}{
			"overallScore": upd.OverallScore,
			"version":      version,
		})
		o.opts.Audit.Record(ctx, &store.AuditEntry{
			UserID:       ev.UserID,
			Action:       models.EventEvaluationCompleted,
			ResourceType: models.ResourceEvaluation,
			ResourceID:   ev.ID,
			Details:      details,
		})
	}

	if o.opts.Indexer != nil {
		updated, err := o.opts.Evaluations.Get(ctx, ev.ID)
		if err == nil {
			err = o.opts.Indexer.IndexEvaluation(ctx, updated)
		}
		if err != nil {
			log.WithError(err).Warn("search indexing skipped", map[string]interface{}{
				"evaluationId": ev.ID,
			})
		}
	}
	return nil
}

// extractionConfidence is the mean confidence over all inputs; the typed
// description counts as a fully confident input.
func extractionConfidence(processed *models.ProcessedInputs) float64 {
	total := 0.0
	count := 0
	if processed.Description != "" {
		total += 1.0
		count++
	}
	for _, in := range processed.Inputs {
		total += in.Confidence
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (o *Orchestrator) fail(ctx context.Context, log logger.Logger, evaluationID string, version int, stage models.FailureStage, cause error, start time.Time) error {
	detail := failureDetail(cause)
	if err := o.opts.Evaluations.MarkFailed(ctx, evaluationID, version, stage, detail); err != nil {
		log.WithError(err).Error("failure state not persisted", map[string]interface{}{
			"stage": string(stage),
		})
	}

	if o.opts.Audit != nil {
		details, _ := json.Marshal(map[string]interface{}{
			"stage":  string(stage),
			"detail": detail,
		})
		o.opts.Audit.Record(ctx, &store.AuditEntry{
			Action:       models.EventEvaluationFailed,
			ResourceType: models.ResourceEvaluation,
			ResourceID:   evaluationID,
			Details:      details,
		})
	}

	metrics.PipelineRuns.WithLabelValues("failed").Inc()
	if o.opts.Observability != nil {
		o.opts.Observability.RecordRun(ctx, "failed")
		o.opts.Observability.RecordRunDuration(ctx, time.Since(start), "failed")
	}
	log.WithError(cause).Error("pipeline run failed", map[string]interface{}{
		"stage": string(stage),
	})
	return cause
}

// failureDetail condenses the cause into the failure_detail column: the error
// code plus a short message.
func failureDetail(err error) string {
	if stdErr := apperrors.AsStandard(err); stdErr != nil {
		if stdErr.Details != "" {
			return fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details)
		}
		return fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Message)
	}
	return err.Error()
}
