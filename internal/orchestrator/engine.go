// Package orchestrator implements the OptiBrain multi-candidate
// orchestration and selection engine: fan-out to tier-eligible adapters,
// normalized scoring, winner selection and iterative improvement.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"auroraai/internal/domain"
	"auroraai/internal/telemetry"
)

// improvementPrompt is the rewrite sent back to the best candidate's
// adapter when no candidate meets the threshold.
const improvementPrompt = `Please improve and expand upon this response: %q. Make it more comprehensive and detailed.`

// AdapterSource resolves adapter IDs to adapters
type AdapterSource interface {
	Adapter(id string) (domain.ModelAdapter, bool)
}

// Options configures the engine's defaults
type Options struct {
	Threshold      float64       // minimum acceptable final score
	MaxIterations  int           // improvement rounds budget (including the initial batch)
	AdapterTimeout time.Duration // per-adapter invocation bound
}

// DefaultOptions returns the standard engine settings
func DefaultOptions() Options {
	return Options{
		Threshold:      0.6,
		MaxIterations:  3,
		AdapterTimeout: 30 * time.Second,
	}
}

// RunOptions carries per-call settings for one orchestration run
type RunOptions struct {
	UserID        string
	Threshold     float64 // 0 uses the engine default
	MaxIterations int     // 0 uses the engine default

	Text     *domain.TextOptions
	Image    *domain.ImageOptions
	Realtime *domain.RealtimeOptions
}

// Engine runs orchestrations. It holds no mutable state across calls; each
// run is pure given its inputs and the adapter set.
type Engine struct {
	adapters AdapterSource
	tiers    domain.TierSource
	opts     Options
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New creates an orchestration engine. metrics may be nil.
func New(adapters AdapterSource, tiers domain.TierSource, opts Options, metrics *telemetry.Metrics, logger *slog.Logger) *Engine {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.AdapterTimeout == 0 {
		opts.AdapterTimeout = DefaultOptions().AdapterTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		adapters: adapters,
		tiers:    tiers,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunText orchestrates the text modality with iterative improvement: if the
// best candidate scores below the threshold, the best candidate's adapter
// is asked to improve its own answer, and selection re-runs over the
// accumulated pool.
func (e *Engine) RunText(ctx context.Context, prompt string, tier domain.Tier, opts RunOptions) (*domain.Result, error) {
	start := time.Now()

	req := &domain.Request{
		Modality: domain.ModalityText,
		Prompt:   prompt,
		UserID:   opts.UserID,
		Tier:     tier,
		Text:     opts.Text,
	}

	ids := e.tiers.EligibleModels(tier, domain.ModalityText)
	if len(ids) == 0 {
		e.countRun(domain.ModalityText, "no_adapters")
		return nil, fmt.Errorf("text orchestration: %w", domain.ErrNoEligibleAdapters)
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = e.opts.Threshold
	}
	maxIterations := opts.MaxIterations
	if maxIterations == 0 {
		maxIterations = e.opts.MaxIterations
	}

	candidates := e.fanOut(ctx, req, ids)
	iterations := 1

	best := SelectBest(candidates)
	for best != nil && best.FinalScore < threshold && iterations < maxIterations {
		improved := &domain.Request{
			Modality: domain.ModalityText,
			Prompt:   fmt.Sprintf(improvementPrompt, best.Response.Content),
			UserID:   opts.UserID,
			Tier:     tier,
			Text:     opts.Text,
		}

		round := e.fanOut(ctx, improved, []string{best.Response.AdapterID})

		// Later-iteration candidates are appended into a fresh pool;
		// earlier ones are never replaced.
		next := make([]*domain.Candidate, 0, len(candidates)+len(round))
		next = append(next, candidates...)
		next = append(next, round...)
		candidates = next
		iterations++

		best = SelectBest(candidates)
	}

	return e.finish(domain.ModalityText, start, opts.UserID, tier, candidates, best, iterations)
}

// RunImage orchestrates the image modality. Single shot: image quality is
// not assumed improvable by re-prompting.
func (e *Engine) RunImage(ctx context.Context, prompt string, tier domain.Tier, opts RunOptions) (*domain.Result, error) {
	req := &domain.Request{
		Modality: domain.ModalityImage,
		Prompt:   prompt,
		UserID:   opts.UserID,
		Tier:     tier,
		Image:    opts.Image,
	}
	return e.runSingleShot(ctx, req)
}

// RunRealtime orchestrates the realtime search modality, single shot
func (e *Engine) RunRealtime(ctx context.Context, query string, tier domain.Tier, opts RunOptions) (*domain.Result, error) {
	req := &domain.Request{
		Modality: domain.ModalityRealtime,
		Prompt:   query,
		UserID:   opts.UserID,
		Tier:     tier,
		Realtime: opts.Realtime,
	}
	return e.runSingleShot(ctx, req)
}

// runSingleShot is the shared fan-out/score/select path without iteration
func (e *Engine) runSingleShot(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	start := time.Now()

	ids := e.tiers.EligibleModels(req.Tier, req.Modality)
	if len(ids) == 0 {
		e.countRun(req.Modality, "no_adapters")
		return nil, fmt.Errorf("%s orchestration: %w", req.Modality, domain.ErrNoEligibleAdapters)
	}

	candidates := e.fanOut(ctx, req, ids)
	best := SelectBest(candidates)

	return e.finish(req.Modality, start, req.UserID, req.Tier, candidates, best, 1)
}

// RunMixed runs each requested modality's orchestration concurrently, pools
// every candidate and selects one global winner on the shared score scale.
// It fails only if no modality produced a usable candidate.
func (e *Engine) RunMixed(ctx context.Context, input string, modalities []domain.Modality, tier domain.Tier, opts RunOptions) (*domain.Result, error) {
	start := time.Now()

	if len(modalities) == 0 {
		modalities = []domain.Modality{domain.ModalityText, domain.ModalityRealtime}
	}

	type modalityOutcome struct {
		candidates []*domain.Candidate
		err        error
	}

	outcomes := make([]modalityOutcome, len(modalities))
	var wg sync.WaitGroup
	for i, m := range modalities {
		wg.Add(1)
		go func(i int, m domain.Modality) {
			defer wg.Done()

			var res *domain.Result
			var err error
			switch m {
			case domain.ModalityText:
				res, err = e.RunText(ctx, input, tier, opts)
			case domain.ModalityImage:
				res, err = e.RunImage(ctx, input, tier, opts)
			case domain.ModalityRealtime:
				res, err = e.RunRealtime(ctx, input, tier, opts)
			default:
				err = fmt.Errorf("unknown modality: %s", m)
			}

			if err != nil {
				outcomes[i] = modalityOutcome{err: err}
				return
			}
			outcomes[i] = modalityOutcome{candidates: res.AllCandidates}
		}(i, m)
	}
	wg.Wait()

	var pool []*domain.Candidate
	for i, o := range outcomes {
		if o.err != nil {
			e.logger.Warn("mixed orchestration: modality failed",
				"modality", modalities[i], "error", o.err)
			continue
		}
		pool = append(pool, o.candidates...)
	}

	best := SelectBest(pool)
	if best == nil {
		e.countRun("mixed", "no_candidates")
		return nil, fmt.Errorf("mixed orchestration: %w", domain.ErrNoSuccessfulCandidate)
	}

	annotateDuplicates(pool)

	result := &domain.Result{
		ID:              uuid.New().String(),
		Selected:        best.Response,
		AllCandidates:   pool,
		UnusedOutputs:   unusedOutputs(pool, best),
		OrchestrationMS: time.Since(start).Milliseconds(),
		Iterations:      1,
		Metadata: domain.ResultMetadata{
			UserID:     opts.UserID,
			Tier:       tier,
			Modalities: modalities,
		},
	}

	e.countRun("mixed", "ok")
	if e.metrics != nil {
		e.metrics.OrchestrationDuration.WithLabelValues("mixed").
			Observe(time.Since(start).Seconds())
	}
	return result, nil
}

// finish assembles the result for a single-modality run
func (e *Engine) finish(modality domain.Modality, start time.Time, userID string, tier domain.Tier, candidates []*domain.Candidate, best *domain.Candidate, iterations int) (*domain.Result, error) {
	if best == nil {
		e.countRun(modality, "no_candidates")
		return nil, fmt.Errorf("%s orchestration: %w", modality, domain.ErrNoSuccessfulCandidate)
	}

	annotateDuplicates(candidates)

	elapsed := time.Since(start)
	result := &domain.Result{
		ID:              uuid.New().String(),
		Selected:        best.Response,
		AllCandidates:   candidates,
		UnusedOutputs:   unusedOutputs(candidates, best),
		OrchestrationMS: elapsed.Milliseconds(),
		Iterations:      iterations,
		Metadata: domain.ResultMetadata{
			UserID:     userID,
			Tier:       tier,
			Modalities: []domain.Modality{modality},
		},
	}

	e.countRun(modality, "ok")
	if e.metrics != nil {
		e.metrics.OrchestrationDuration.WithLabelValues(string(modality)).Observe(elapsed.Seconds())
		e.metrics.OrchestrationIterations.WithLabelValues(string(modality)).Observe(float64(iterations))
	}

	e.logger.Debug("orchestration complete",
		"modality", modality,
		"selected", best.Response.AdapterID,
		"score", best.FinalScore,
		"candidates", len(candidates),
		"iterations", iterations,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return result, nil
}

// unusedOutputs collects the non-error responses that were not selected.
// Exclusion is keyed by adapter ID rather than content equality, so a
// second adapter producing a byte-identical answer still shows up.
func unusedOutputs(candidates []*domain.Candidate, best *domain.Candidate) []*domain.Response {
	unused := make([]*domain.Response, 0, len(candidates))
	for _, c := range candidates {
		if c.Response.Failed() {
			continue
		}
		if c.Response.AdapterID == best.Response.AdapterID {
			continue
		}
		unused = append(unused, c.Response)
	}
	return unused
}

// fanOut invokes every adapter concurrently with the identical request.
// Result order matches the input ID order so selection tie-breaking stays
// stable. The batch never fails because one adapter failed.
func (e *Engine) fanOut(ctx context.Context, req *domain.Request, ids []string) []*domain.Candidate {
	candidates := make([]*domain.Candidate, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			candidates[i] = e.invokeOne(ctx, req, id)
		}(i, id)
	}
	wg.Wait()

	return candidates
}

// invokeOne calls a single adapter under the per-adapter timeout, absorbing
// every failure mode (error return, panic, hang) into an error-tagged
// candidate.
func (e *Engine) invokeOne(ctx context.Context, req *domain.Request, id string) (cand *domain.Candidate) {
	adapter, ok := e.adapters.Adapter(id)
	if !ok {
		return Evaluate(e.errorResponse(id, id, req.Modality, "adapter not registered", domain.FailureInternal, 0))
	}

	info := adapter.Info()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("adapter panicked", "adapter", id, "panic", r)
			cand = Evaluate(e.errorResponse(id, info.Name, req.Modality,
				fmt.Sprintf("adapter panic: %v", r), domain.FailureInternal,
				time.Since(start).Milliseconds()))
		}
	}()

	invokeCtx, cancel := context.WithTimeout(ctx, e.opts.AdapterTimeout)
	defer cancel()

	resp, err := adapter.Invoke(invokeCtx, req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		reason := domain.FailureInternal
		if invokeCtx.Err() != nil {
			reason = domain.FailureTimeout
		}
		resp = e.errorResponse(id, info.Name, req.Modality, err.Error(), reason, latency)
	} else if resp == nil {
		resp = e.errorResponse(id, info.Name, req.Modality, "adapter returned no response", domain.FailureInternal, latency)
	}

	// Normalize fields the adapter may have left unset.
	if resp.AdapterID == "" {
		resp.AdapterID = id
	}
	if resp.ModelName == "" {
		resp.ModelName = info.Name
	}
	if resp.Modality == "" {
		resp.Modality = req.Modality
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = start
	}
	if resp.LatencyMS == 0 {
		resp.LatencyMS = latency
	}
	if resp.Failed() && resp.FailureReason == domain.FailureNone {
		resp.FailureReason = domain.FailureUpstream
	}

	cand = Evaluate(resp)

	if e.metrics != nil {
		status := "ok"
		if resp.Failed() {
			status = "error"
			e.metrics.AdapterErrors.WithLabelValues(id, string(resp.FailureReason)).Inc()
		}
		e.metrics.AdapterInvocations.WithLabelValues(id, status).Inc()
		e.metrics.AdapterLatency.WithLabelValues(id).Observe(float64(resp.LatencyMS) / 1000)
		e.metrics.CandidateScores.WithLabelValues(string(req.Modality), id).Observe(cand.FinalScore)
	}

	return cand
}

// errorResponse builds the normalized failure response for an adapter
func (e *Engine) errorResponse(id, name string, modality domain.Modality, msg string, reason domain.FailureReason, latency int64) *domain.Response {
	return &domain.Response{
		AdapterID:     id,
		ModelName:     name,
		Modality:      modality,
		Timestamp:     time.Now(),
		LatencyMS:     latency,
		Error:         msg,
		FailureReason: reason,
	}
}

// countRun records an orchestration outcome metric
func (e *Engine) countRun(modality domain.Modality, status string) {
	if e.metrics != nil {
		e.metrics.OrchestrationsTotal.WithLabelValues(string(modality), status).Inc()
	}
}
