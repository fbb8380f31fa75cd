package export_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"uxrmate/internal/analysis"
	"uxrmate/internal/export"
)

type recordingCompleter struct {
	calls []analysis.Completion
	reply string
}

func (r *recordingCompleter) Complete(_ context.Context, c analysis.Completion) (string, error) {
	r.calls = append(r.calls, c)
	return r.reply, nil
}

func TestBuildReportPromptUsesEffectiveValues(t *testing.T) {
	prompt, err := export.BuildReportPrompt(export.Rows(sampleResults()))
	if err != nil {
		t.Fatalf("BuildReportPrompt: %v", err)
	}
	header, body, ok := strings.Cut(prompt, "\n")
	if !ok || !strings.Contains(header, "executive summary") {
		t.Fatalf("unexpected prompt header: %q", header)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatalf("prompt body is not JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first["status"] != "Pass" || first["friction_score"] != float64(1) || first["reviewer_verified"] != true {
		t.Fatalf("reviewer overrides missing from prompt: %v", first)
	}
	if _, ok := first["raw_response"]; ok {
		t.Fatal("raw replies must stay out of the prompt")
	}
}

func TestDraftReport(t *testing.T) {
	c := &recordingCompleter{reply: "\n# Findings\nSign up needs work.\n"}
	report, err := export.DraftReport(context.Background(), c, "gemini-2.5-pro", export.Rows(sampleResults()))
	if err != nil {
		t.Fatalf("DraftReport: %v", err)
	}
	if report != "# Findings\nSign up needs work." {
		t.Fatalf("report = %q", report)
	}
	if len(c.calls) != 1 || c.calls[0].JSON || c.calls[0].SystemInstruction != export.ReportInstruction || c.calls[0].Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected completion: %+v", c.calls)
	}

	if _, err := export.DraftReport(context.Background(), c, "m", nil); err == nil {
		t.Fatal("expected error without results")
	}
	c.reply = "  "
	if _, err := export.DraftReport(context.Background(), c, "m", export.Rows(sampleResults())); err == nil {
		t.Fatal("expected error for empty reply")
	}
}
