package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type completerFunc func(ctx context.Context, c Completion) (string, error)

func (f completerFunc) Complete(ctx context.Context, c Completion) (string, error) { return f(ctx, c) }

func TestParseJourneys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Journey
		wantErr bool
	}{
		{
			name:    "bare array",
			content: `[{"id":"CUJ-1","task":" Sign up ","expectation":"Account created"}]`,
			want:    []Journey{{ID: "CUJ-1", Task: "Sign up", Expectation: "Account created"}},
		},
		{
			name:    "fenced and wrapped",
			content: "```json\n{\"cujs\":[{\"id\":\"A\",\"task\":\"Search\",\"expectation\":\"Results shown\"}]}\n```",
			want:    []Journey{{ID: "A", Task: "Search", Expectation: "Results shown"}},
		},
		{
			name:    "drops incomplete entries",
			content: `[{"id":"A","task":"Search"},{"task":"Checkout","expectation":"Order placed"}]`,
			want:    []Journey{{Task: "Checkout", Expectation: "Order placed"}},
		},
		{name: "nothing usable", content: `[{"id":"A"}]`, wantErr: true},
		{name: "prose", content: "Sorry, I can't do that.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJourneys(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJourneys: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("journeys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUniqueJourneyIDs(t *testing.T) {
	taken := map[string]bool{"CUJ-1": true, "CUJ-1-2": true}
	got := UniqueJourneyIDs([]Journey{
		{ID: "CUJ-1", Task: "a", Expectation: "a"},
		{ID: "CUJ-9", Task: "b", Expectation: "b"},
		{ID: "CUJ-9", Task: "c", Expectation: "c"},
		{Task: "d", Expectation: "d"},
	}, taken)
	var ids []string
	for _, j := range got {
		ids = append(ids, j.ID)
	}
	if diff := cmp.Diff([]string{"CUJ-1-3", "CUJ-9", "CUJ-9-2", "CUJ-GEN-4"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if !taken["CUJ-GEN-4"] {
		t.Fatal("expected handed out ids to be recorded")
	}
}

func TestGenerateJourneys(t *testing.T) {
	var call Completion
	c := completerFunc(func(_ context.Context, in Completion) (string, error) {
		call = in
		return `[{"id":"X","task":"Upload","expectation":"File listed"}]`, nil
	})
	got, err := GenerateJourneys(context.Background(), c, "m", "file upload", 2)
	if err != nil {
		t.Fatalf("GenerateJourneys: %v", err)
	}
	if len(got) != 1 || got[0].ID != "X" {
		t.Fatalf("unexpected journeys: %+v", got)
	}
	if !call.JSON || call.Model != "m" || call.SystemInstruction != JourneyInstruction {
		t.Fatalf("unexpected completion: %+v", call)
	}
	if !strings.Contains(call.Prompt, "Generate 2 distinct") || !strings.Contains(call.Prompt, `"file upload"`) {
		t.Fatalf("unexpected prompt: %q", call.Prompt)
	}

	if _, err := GenerateJourneys(context.Background(), c, "m", "  ", 2); err == nil {
		t.Fatal("expected blank topic to fail")
	}
	boom := errors.New("boom")
	failing := completerFunc(func(context.Context, Completion) (string, error) { return "", boom })
	if _, err := GenerateJourneys(context.Background(), failing, "m", "x", 0); !errors.Is(err, boom) {
		t.Fatalf("expected completer error, got %v", err)
	}
}
