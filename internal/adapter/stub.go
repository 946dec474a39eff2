package adapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"auroraai/internal/domain"
)

// Stub is a deterministic in-process adapter. Real vendor integrations live
// behind the same contract; stubs keep the engine exercisable without API
// keys and give tests reproducible candidates.
type Stub struct {
	info domain.AdapterInfo
}

// NewStub creates a stub adapter for the given catalog entry
func NewStub(info domain.AdapterInfo) *Stub {
	return &Stub{info: info}
}

// Info returns the adapter's catalog entry
func (s *Stub) Info() domain.AdapterInfo {
	return s.info
}

// Invoke produces a deterministic response derived from the adapter ID and
// the prompt
func (s *Stub) Invoke(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return &domain.Response{
			AdapterID:     s.info.ID,
			ModelName:     s.info.Name,
			Modality:      s.info.Modality,
			Timestamp:     time.Now(),
			Error:         err.Error(),
			FailureReason: domain.FailureTimeout,
		}, nil
	}

	start := time.Now()
	resp := &domain.Response{
		AdapterID: s.info.ID,
		ModelName: s.info.Name,
		Modality:  s.info.Modality,
		Timestamp: start,
	}

	switch s.info.Modality {
	case domain.ModalityText:
		s.fillText(req, resp)
	case domain.ModalityImage:
		s.fillImage(req, resp)
	case domain.ModalityRealtime:
		s.fillRealtime(req, resp)
	}

	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp, nil
}

func (s *Stub) fillText(req *domain.Request, resp *domain.Response) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s's perspective on: %s\n\n", s.info.Name, req.Prompt)
	fmt.Fprintf(&b, "1. The question touches on several key aspects worth separating.\n")
	fmt.Fprintf(&b, "2. Each aspect carries different trade-offs depending on context.\n")
	fmt.Fprintf(&b, "3. A practical approach balances them against the stated goal.\n\n")
	fmt.Fprintf(&b, "In summary, %q deserves a structured answer rather than a one-liner, and the considerations above give a starting framework for one.", req.Prompt)

	resp.Content = b.String()
	resp.TokensUsed = len(resp.Content)/4 + seed(s.info.ID, req.Prompt)%40
	resp.Confidence = estimateConfidence(resp.Content, resp.TokensUsed)
}

func (s *Stub) fillImage(req *domain.Request, resp *domain.Response) {
	width, height := 512, 512
	if req.Image != nil && req.Image.Dimensions != nil {
		width = req.Image.Dimensions.Width
		height = req.Image.Dimensions.Height
	}

	resp.ImageURL = fmt.Sprintf("https://images.auroraai.dev/%s/%d.png",
		s.info.ID, seed(s.info.ID, req.Prompt))
	resp.Content = resp.ImageURL
	resp.ImageMeta = &domain.ImageMetadata{Width: width, Height: height, Format: "png"}
	resp.Confidence = 0.5 + float64(seed(s.info.ID, req.Prompt)%30)/100
}

func (s *Stub) fillRealtime(req *domain.Request, resp *domain.Response) {
	maxResults := 5
	if req.Realtime != nil && req.Realtime.MaxResults > 0 && req.Realtime.MaxResults < maxResults {
		maxResults = req.Realtime.MaxResults
	}

	n := 3 + seed(s.info.ID, req.Prompt)%3
	if n > maxResults {
		n = maxResults
	}

	sources := make([]domain.Source, 0, n)
	for i := 0; i < n; i++ {
		sources = append(sources, domain.Source{
			Title:   fmt.Sprintf("Result %d for %s", i+1, req.Prompt),
			URL:     fmt.Sprintf("https://example.com/%s/%d", s.info.ID, i+1),
			Snippet: fmt.Sprintf("Snippet %d covering aspects of %q.", i+1, req.Prompt),
			Type:    domain.SourceWeb,
		})
	}

	summary := fmt.Sprintf("Found %d web results. Top result: %s - %s",
		len(sources), sources[0].Title, sources[0].Snippet)

	resp.Sources = sources
	resp.Summary = summary
	resp.Content = summary
	resp.TokensUsed = len(summary) / 4
	resp.Confidence = estimateConfidence(summary, resp.TokensUsed)
}

// seed derives a stable small number from adapter ID and prompt
func seed(id, prompt string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	h.Write([]byte(prompt))
	return int(h.Sum32() % 1000)
}
