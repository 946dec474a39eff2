package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"auroraai/internal/domain"
	"auroraai/internal/logsink"
	"auroraai/internal/orchestrator"
	"auroraai/internal/ratelimit"
)

// admission is the per-request context established before orchestration
type admission struct {
	UserID   string
	Tier     domain.Tier
	Identity string
}

// readBody reads and schema-validates a request body into dst
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) bool {
	maxSize := s.config.Server.MaxRequestSize
	if maxSize <= 0 {
		maxSize = 1 << 20
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Unable to read request body")
		return false
	}

	if err := validateBody(schema, body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// admit resolves the caller's tier and charges the request against their
// quota. Writes the 429 response itself when the request is rejected.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, userID, input string) (admission, bool) {
	tier := s.tiers.ResolveTier(userID, requestHeaders(r))
	identity := ratelimit.IdentityKey(userID, clientIP(r))
	tokens := estimateTokens(input)

	res := s.limiter.CheckAndConsume(identity, tier, tokens)
	if !res.OK {
		s.metrics.AdmissionsTotal.WithLabelValues(string(tier), "rejected").Inc()
		s.metrics.BlockedIdentities.Set(float64(s.limiter.Stats().BlockedIdentities))

		retryAfter := int(res.RetryAfter / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		s.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": ErrorDetail{
				Type:    string(res.Reason),
				Message: res.Reason.Message(),
			},
			"retry_after": retryAfter,
			"remaining":   res.Remaining,
			"violations":  res.ViolationCount,
		})
		return admission{}, false
	}

	s.metrics.AdmissionsTotal.WithLabelValues(string(tier), "accepted").Inc()
	s.metrics.TokensConsumed.WithLabelValues(string(tier)).Add(float64(tokens))

	return admission{UserID: userID, Tier: tier, Identity: identity}, true
}

// estimateTokens approximates token usage from input length, four
// characters per token
func estimateTokens(input string) int {
	return len(input)/4 + 1
}

func (s *Server) handleDeepThinkers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt        string  `json:"prompt"`
		UserID        string  `json:"user_id"`
		MaxTokens     int     `json:"max_tokens"`
		Temperature   float64 `json:"temperature"`
		Threshold     float64 `json:"threshold"`
		MaxIterations int     `json:"max_iterations"`
	}
	if !s.readBody(w, r, textRequestSchema, &req) {
		return
	}

	adm, ok := s.admit(w, r, req.UserID, req.Prompt)
	if !ok {
		return
	}

	maxTokens := req.MaxTokens
	if tierMax := s.tiers.MaxTokens(adm.Tier); maxTokens == 0 || (tierMax > 0 && maxTokens > tierMax) {
		maxTokens = tierMax
	}

	result, err := s.engine.RunText(r.Context(), req.Prompt, adm.Tier, orchestrator.RunOptions{
		UserID:        adm.UserID,
		Threshold:     req.Threshold,
		MaxIterations: req.MaxIterations,
		Text: &domain.TextOptions{
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
		},
	})
	s.finishOrchestration(w, "text", req.Prompt, adm, result, err)
}

func (s *Server) handleVisualCreators(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt     string `json:"prompt"`
		UserID     string `json:"user_id"`
		Style      string `json:"style"`
		Dimensions *struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"dimensions"`
	}
	if !s.readBody(w, r, imageRequestSchema, &req) {
		return
	}

	adm, ok := s.admit(w, r, req.UserID, req.Prompt)
	if !ok {
		return
	}

	opts := &domain.ImageOptions{Style: req.Style}
	if req.Dimensions != nil {
		opts.Dimensions = &domain.Dimensions{
			Width:  req.Dimensions.Width,
			Height: req.Dimensions.Height,
		}
	}

	result, err := s.engine.RunImage(r.Context(), req.Prompt, adm.Tier, orchestrator.RunOptions{
		UserID: adm.UserID,
		Image:  opts,
	})
	s.finishOrchestration(w, "image", req.Prompt, adm, result, err)
}

func (s *Server) handleRealtimeAssist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string   `json:"query"`
		UserID     string   `json:"user_id"`
		Sources    []string `json:"sources"`
		MaxResults int      `json:"max_results"`
	}
	if !s.readBody(w, r, realtimeRequestSchema, &req) {
		return
	}

	adm, ok := s.admit(w, r, req.UserID, req.Query)
	if !ok {
		return
	}

	opts := &domain.RealtimeOptions{MaxResults: req.MaxResults}
	for _, src := range req.Sources {
		opts.Sources = append(opts.Sources, domain.SourceType(src))
	}

	result, err := s.engine.RunRealtime(r.Context(), req.Query, adm.Tier, orchestrator.RunOptions{
		UserID:   adm.UserID,
		Realtime: opts,
	})
	s.finishOrchestration(w, "realtime", req.Query, adm, result, err)
}

func (s *Server) handleMixedHub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input      string   `json:"input"`
		Modalities []string `json:"modalities"`
		UserID     string   `json:"user_id"`
	}
	if !s.readBody(w, r, mixedRequestSchema, &req) {
		return
	}

	modalities := make([]domain.Modality, 0, len(req.Modalities))
	for _, m := range req.Modalities {
		modality, ok := domain.ParseModality(m)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid_request", "Unknown modality: "+m)
			return
		}
		modalities = append(modalities, modality)
	}

	adm, ok := s.admit(w, r, req.UserID, req.Input)
	if !ok {
		return
	}

	result, err := s.engine.RunMixed(r.Context(), req.Input, modalities, adm.Tier, orchestrator.RunOptions{
		UserID: adm.UserID,
	})
	s.finishOrchestration(w, "mixed", req.Input, adm, result, err)
}

// finishOrchestration records the outcome and writes the response
func (s *Server) finishOrchestration(w http.ResponseWriter, requestType, input string, adm admission, result *domain.Result, err error) {
	if err != nil {
		s.logs.Record(logsink.FailureEntry(requestType, input, adm.UserID, adm.Tier, err))

		switch {
		case errors.Is(err, domain.ErrNoEligibleAdapters):
			s.writeError(w, http.StatusForbidden, "no_eligible_models", err.Error())
		case errors.Is(err, domain.ErrNoSuccessfulCandidate):
			s.writeError(w, http.StatusBadGateway, "all_models_failed", err.Error())
		default:
			s.logger.Error("orchestration failed", "type", requestType, "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal_error", "Orchestration failed")
		}
		return
	}

	s.logs.Record(logsink.EntryFromResult(requestType, input, result))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.All()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"models": infos,
		"count":  len(infos),
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := logsink.Query{
		UserID:      r.URL.Query().Get("user_id"),
		Tier:        r.URL.Query().Get("tier"),
		RequestType: r.URL.Query().Get("request_type"),
		Limit:       queryInt(r, "limit", 100),
		Offset:      queryInt(r, "offset", 0),
	}

	entries := s.logs.List(q)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

func (s *Server) handleLimitStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	tier := s.tiers.ResolveTier(userID, requestHeaders(r))
	identity := ratelimit.IdentityKey(userID, clientIP(r))

	status := s.limiter.Status(identity, tier)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tier":   tier,
		"limits": s.tiers.LimitsFor(tier),
		"status": status,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
