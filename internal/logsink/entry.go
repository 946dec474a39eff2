package logsink

import (
	"time"

	"github.com/google/uuid"

	"auroraai/internal/domain"
)

// EntryFromResult flattens an orchestration result into a log entry
func EntryFromResult(requestType, input string, res *domain.Result) *domain.LogEntry {
	entry := &domain.LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		UserID:      res.Metadata.UserID,
		Tier:        res.Metadata.Tier,
		RequestType: requestType,
		Input:       input,
		Scores:      make(map[string]float64, len(res.AllCandidates)),
	}

	for _, c := range res.AllCandidates {
		entry.AllModels = append(entry.AllModels, c.Response.ModelName)
		entry.Scores[c.Response.AdapterID] = c.FinalScore
	}

	if res.Selected != nil {
		entry.SelectedModel = res.Selected.ModelName
		entry.TokensUsed = res.Selected.TokensUsed
		entry.LatencyMS = res.OrchestrationMS
		entry.Success = true
	}

	return entry
}

// FailureEntry records an orchestration that produced no usable result
func FailureEntry(requestType, input, userID string, tier domain.Tier, err error) *domain.LogEntry {
	return &domain.LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		UserID:      userID,
		Tier:        tier,
		RequestType: requestType,
		Input:       input,
		Success:     false,
		Error:       err.Error(),
	}
}
