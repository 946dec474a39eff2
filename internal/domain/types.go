// Package domain defines core domain types for the AuroraAI orchestration engine.
package domain

import (
	"context"
	"time"
)

// =============================================================================
// Modality and Tier Types
// =============================================================================

// Modality identifies the kind of model a request targets
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityImage    Modality = "image"
	ModalityRealtime Modality = "realtime"
)

// AllModalities returns all supported modalities
func AllModalities() []Modality {
	return []Modality{ModalityText, ModalityImage, ModalityRealtime}
}

// ParseModality parses a modality string
func ParseModality(s string) (Modality, bool) {
	switch s {
	case "text", "deep-thinkers":
		return ModalityText, true
	case "image", "visual-creators":
		return ModalityImage, true
	case "realtime", "realtime-assist":
		return ModalityRealtime, true
	default:
		return "", false
	}
}

// Tier classifies a user for rate limiting and model eligibility
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// ParseTier parses a tier string
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "free":
		return TierFree, true
	case "paid":
		return TierPaid, true
	default:
		return "", false
	}
}

// SourceType identifies where a realtime search result came from
type SourceType string

const (
	SourceWeb     SourceType = "web"
	SourceYouTube SourceType = "youtube"
	SourceCustom  SourceType = "custom"
)

// =============================================================================
// Request Types
// =============================================================================

// Request is a normalized model request. It is immutable once constructed;
// one request spawns N parallel adapter invocations.
type Request struct {
	Modality Modality `json:"modality"`
	Prompt   string   `json:"prompt"`
	UserID   string   `json:"user_id,omitempty"`
	Tier     Tier     `json:"tier"`

	// Modality-specific option bags. Only the bag matching Modality is set.
	Text     *TextOptions     `json:"text,omitempty"`
	Image    *ImageOptions    `json:"image,omitempty"`
	Realtime *RealtimeOptions `json:"realtime,omitempty"`
}

// TextOptions are options for text generation requests
type TextOptions struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ImageOptions are options for image generation requests
type ImageOptions struct {
	Style      string      `json:"style,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Dimensions describes requested image dimensions
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RealtimeOptions are options for realtime search requests
type RealtimeOptions struct {
	Sources    []SourceType `json:"sources,omitempty"`
	MaxResults int          `json:"max_results,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// Response is a normalized model response. Exactly one of Content (success)
// or Error (failure) is meaningful; a non-empty Error marks the response
// unusable for selection.
type Response struct {
	AdapterID  string    `json:"adapter_id"`
	ModelName  string    `json:"model_name"`
	Modality   Modality  `json:"modality"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	LatencyMS  int64     `json:"latency_ms"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	// Confidence is an adapter-supplied estimate in [0,1]; zero means unknown.
	Confidence float64 `json:"confidence,omitempty"`

	Error         string        `json:"error,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`

	// Image-specific fields
	ImageURL    string         `json:"image_url,omitempty"`
	ImageBase64 string         `json:"image_base64,omitempty"`
	ImageMeta   *ImageMetadata `json:"image_meta,omitempty"`

	// Realtime-specific fields
	Sources []Source `json:"sources,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Failed reports whether the response carries an error
func (r *Response) Failed() bool {
	return r.Error != ""
}

// HasImage reports whether the response carries an image locator
func (r *Response) HasImage() bool {
	return r.ImageURL != "" || r.ImageBase64 != ""
}

// ImageMetadata describes a generated image
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Source is one ranked result from a realtime search adapter
type Source struct {
	Title   string     `json:"title"`
	URL     string     `json:"url"`
	Snippet string     `json:"snippet"`
	Type    SourceType `json:"type"`
}

// =============================================================================
// Candidate and Result Types
// =============================================================================

// Candidate wraps a response with its derived scores. Candidates are created
// fresh every orchestration run; the scores are fixed at creation, with only
// the DuplicateOf annotation filled in afterward.
type Candidate struct {
	Response *Response `json:"response"`

	Score             float64 `json:"score"`
	CompletenessScore float64 `json:"completeness_score"`
	LatencyPenalty    float64 `json:"latency_penalty"`
	TokenPenalty      float64 `json:"token_penalty"`
	// FinalScore is max(0, Score); always 0 for error responses.
	FinalScore float64 `json:"final_score"`

	// DuplicateOf names the adapter whose content this candidate nearly
	// duplicates, if any. Diagnostic only; never affects selection.
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Result is the outcome of one orchestration call
type Result struct {
	ID              string         `json:"id"`
	Selected        *Response      `json:"selected"`
	AllCandidates   []*Candidate   `json:"all_candidates"`
	UnusedOutputs   []*Response    `json:"unused_outputs"`
	OrchestrationMS int64          `json:"orchestration_ms"`
	Iterations      int            `json:"iterations"`
	Metadata        ResultMetadata `json:"metadata"`
}

// ResultMetadata carries request context alongside a result
type ResultMetadata struct {
	UserID     string     `json:"user_id,omitempty"`
	Tier       Tier       `json:"tier"`
	Modalities []Modality `json:"modalities"`
}

// =============================================================================
// Adapter Contract
// =============================================================================

// AdapterInfo describes a registered model adapter
type AdapterInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Modality       Modality `json:"modality"`
	MaxTokens      int      `json:"max_tokens"`
	SupportedTiers []Tier   `json:"supported_tiers"`
}

// SupportsTier reports whether the adapter serves the given tier
func (a AdapterInfo) SupportsTier(tier Tier) bool {
	for _, t := range a.SupportedTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// ModelAdapter is the uniform contract every provider adapter satisfies.
// Invoke must not return an error for ordinary failure modes (network error,
// non-2xx, malformed payload); it resolves to a Response with Error and
// FailureReason set instead. A returned error is treated as an adapter bug
// and absorbed at the fan-out boundary.
type ModelAdapter interface {
	Info() AdapterInfo
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// =============================================================================
// Log Sink Contract
// =============================================================================

// LogEntry records one orchestration outcome
type LogEntry struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	UserID        string             `json:"user_id,omitempty"`
	Tier          Tier               `json:"tier"`
	RequestType   string             `json:"request_type"` // modality or "mixed"
	Input         string             `json:"input"`
	SelectedModel string             `json:"selected_model"`
	AllModels     []string           `json:"all_models"`
	Scores        map[string]float64 `json:"scores"`
	TokensUsed    int                `json:"tokens_used"`
	LatencyMS     int64              `json:"latency_ms"`
	Success       bool               `json:"success"`
	Error         string             `json:"error,omitempty"`
}

// LogSink records orchestration outcomes. Record is fire-and-forget and must
// never block or fail the caller's response path.
type LogSink interface {
	Record(entry *LogEntry)
}

// =============================================================================
// Tier Source Contract
// =============================================================================

// RateLimitConfig holds the numeric limits applied to one tier
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" toml:"requests_per_minute"`
	RequestsPerHour   int `json:"requests_per_hour" toml:"requests_per_hour"`
	RequestsPerDay    int `json:"requests_per_day" toml:"requests_per_day"`
	TokensPerHour     int `json:"tokens_per_hour" toml:"tokens_per_hour"`
}

// TierSource supplies tier classification and per-tier limits
type TierSource interface {
	ResolveTier(userID string, headers map[string]string) Tier
	LimitsFor(tier Tier) RateLimitConfig
	EligibleModels(tier Tier, modality Modality) []string
}
