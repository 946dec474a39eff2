package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"auroraai/internal/domain"
)

// OpenAICompat calls a chat-completions endpoint speaking the OpenAI wire
// format. It covers the text modality only; image and realtime adapters
// stay on stubs until a vendor integration lands.
type OpenAICompat struct {
	info       domain.AdapterInfo
	baseURL    string
	apiKey     string
	modelID    string
	httpClient *http.Client
	retry      retryConfig
}

// NewOpenAICompat creates an adapter for an OpenAI-compatible endpoint
func NewOpenAICompat(info domain.AdapterInfo, baseURL, apiKey, modelID string) *OpenAICompat {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &OpenAICompat{
		info:    info,
		baseURL: baseURL,
		apiKey:  apiKey,
		modelID: modelID,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		retry: defaultRetryConfig(),
	}
}

// Info returns the adapter's catalog entry
func (c *OpenAICompat) Info() domain.AdapterInfo {
	return c.info
}

// Invoke sends the prompt to the upstream chat-completions endpoint.
// Failures come back as error-tagged responses with a structured failure
// reason; transient reasons are retried with backoff before giving up.
func (c *OpenAICompat) Invoke(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	start := time.Now()

	resp, reason, err := retryInvoke(ctx, c.retry, func() (*domain.Response, domain.FailureReason, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		return &domain.Response{
			AdapterID:     c.info.ID,
			ModelName:     c.info.Name,
			Modality:      c.info.Modality,
			Timestamp:     start,
			LatencyMS:     time.Since(start).Milliseconds(),
			Error:         err.Error(),
			FailureReason: reason,
		}, nil
	}

	resp.Timestamp = start
	resp.LatencyMS = time.Since(start).Milliseconds()
	return resp, nil
}

func (c *OpenAICompat) complete(ctx context.Context, req *domain.Request) (*domain.Response, domain.FailureReason, error) {
	maxTokens := c.info.MaxTokens
	if req.Text != nil && req.Text.MaxTokens > 0 && req.Text.MaxTokens < maxTokens {
		maxTokens = req.Text.MaxTokens
	}

	payload := map[string]any{
		"model": c.modelID,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}
	if req.Text != nil && req.Text.Temperature > 0 {
		payload["temperature"] = req.Text.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.FailureInternal, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, domain.FailureInternal, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err), err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, classifyStatus(httpResp.StatusCode),
			fmt.Errorf("upstream returned %s: %s", httpResp.Status, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, domain.FailureMalformed, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, domain.FailureMalformed, errors.New("upstream returned no choices")
	}

	content := result.Choices[0].Message.Content
	return &domain.Response{
		AdapterID:  c.info.ID,
		ModelName:  c.info.Name,
		Modality:   c.info.Modality,
		Content:    content,
		TokensUsed: result.Usage.TotalTokens,
		Confidence: estimateConfidence(content, result.Usage.TotalTokens),
	}, domain.FailureNone, nil
}

// classifyStatus maps an HTTP status to a failure reason
func classifyStatus(status int) domain.FailureReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.FailureAuth
	case status == http.StatusTooManyRequests:
		return domain.FailureThrottled
	case status >= 500:
		return domain.FailureUpstream
	default:
		// Remaining 4xx mean the request itself was rejected; retrying
		// the same payload cannot help.
		return domain.FailureInternal
	}
}

// classifyTransportError maps a transport-level error to a failure reason
func classifyTransportError(ctx context.Context, err error) domain.FailureReason {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}

	return domain.FailureNetwork
}
