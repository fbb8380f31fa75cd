package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"uxrmate/internal/analysis"
)

// ReportInstruction frames the model for the executive summary.
const ReportInstruction = "You are a Research Lead."

// reportEntry is the slice of a Row the report prompt carries. Raw replies
// and bookkeeping columns stay out of the prompt.
type reportEntry struct {
	CUJID          string          `json:"cuj_id"`
	Task           string          `json:"task"`
	Expectation    string          `json:"expectation"`
	Video          string          `json:"video"`
	Status         analysis.Status `json:"status"`
	FrictionScore  int             `json:"friction_score"`
	Verified       bool            `json:"reviewer_verified"`
	ReviewerNotes  string          `json:"reviewer_notes,omitempty"`
	Observation    string          `json:"observation"`
	Recommendation string          `json:"recommendation"`
}

// BuildReportPrompt renders the results into the report request. Status and
// friction are the effective values, so reviewer corrections reach the
// report.
func BuildReportPrompt(rows []Row) (string, error) {
	entries := make([]reportEntry, len(rows))
	for i, r := range rows {
		entries[i] = reportEntry{
			CUJID:          r.CUJID,
			Task:           r.Task,
			Expectation:    r.Expectation,
			Video:          r.AssetName,
			Status:         r.Status,
			FrictionScore:  r.FrictionScore,
			Verified:       r.Verified,
			ReviewerNotes:  r.ReviewerNotes,
			Observation:    r.Observation,
			Recommendation: r.Recommendation,
		}
	}
	var buf bytes.Buffer
	buf.WriteString("Write an executive summary markdown report based on these results:\n")
	enc := jsonEncoder(&buf)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("encode report results: %w", err)
	}
	return buf.String(), nil
}

// DraftReport asks the model for a markdown executive summary of rows.
func DraftReport(ctx context.Context, c analysis.Completer, model string, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("draft report: no results")
	}
	prompt, err := BuildReportPrompt(rows)
	if err != nil {
		return "", err
	}
	text, err := c.Complete(ctx, analysis.Completion{
		Model:             model,
		SystemInstruction: ReportInstruction,
		Prompt:            prompt,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("draft report: empty reply")
	}
	return text, nil
}
