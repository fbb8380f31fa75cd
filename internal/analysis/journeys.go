package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Completion is one text-only model call.
type Completion struct {
	Model             string
	SystemInstruction string
	Prompt            string
	// JSON asks the model for an application/json reply.
	JSON bool
}

// Completer runs text-only model calls.
type Completer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// DefaultJourneyCount is how many CUJs one generation asks for.
const DefaultJourneyCount = 4

// JourneyInstruction frames the model for CUJ generation.
const JourneyInstruction = "You are a QA Lead."

// Journey is a generated CUJ draft.
type Journey struct {
	ID          string `json:"id"`
	Task        string `json:"task"`
	Expectation string `json:"expectation"`
}

// BuildJourneyPrompt asks for count distinct CUJs about topic.
func BuildJourneyPrompt(topic string, count int) string {
	if count <= 0 {
		count = DefaultJourneyCount
	}
	return fmt.Sprintf("Generate %d distinct Critical User Journeys (CUJs) for testing: %q.\n"+
		"Return strictly a JSON array of objects with keys: \"id\", \"task\", \"expectation\".",
		count, strings.TrimSpace(topic))
}

// ParseJourneys decodes a generated CUJ list. The outermost array is used,
// so an object wrapping the list also decodes. Entries without a task or
// expectation are dropped.
func ParseJourneys(content string) ([]Journey, error) {
	var raw []Journey
	if err := decodeJSONDelimited(content, &raw, '[', ']'); err != nil {
		return nil, fmt.Errorf("decode journeys: %w", err)
	}
	out := make([]Journey, 0, len(raw))
	for _, j := range raw {
		j = Journey{
			ID:          strings.TrimSpace(j.ID),
			Task:        strings.TrimSpace(j.Task),
			Expectation: strings.TrimSpace(j.Expectation),
		}
		if j.Task == "" || j.Expectation == "" {
			continue
		}
		out = append(out, j)
	}
	if len(out) == 0 {
		return nil, errors.New("decode journeys: no usable entries")
	}
	return out, nil
}

// UniqueJourneyIDs fills in missing ids and renames ids already in taken by
// appending -2, -3, ... so generated drafts never replace an existing CUJ.
// taken is updated with the ids handed out.
func UniqueJourneyIDs(journeys []Journey, taken map[string]bool) []Journey {
	out := make([]Journey, len(journeys))
	for i, j := range journeys {
		base := j.ID
		if base == "" {
			base = "CUJ-GEN-" + strconv.Itoa(i+1)
		}
		id := base
		for n := 2; taken[id]; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
		taken[id] = true
		j.ID = id
		out[i] = j
	}
	return out
}

// GenerateJourneys asks the model for CUJ drafts about topic.
func GenerateJourneys(ctx context.Context, c Completer, model, topic string, count int) ([]Journey, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("generate journeys: topic is required")
	}
	text, err := c.Complete(ctx, Completion{
		Model:             model,
		SystemInstruction: JourneyInstruction,
		Prompt:            BuildJourneyPrompt(topic, count),
		JSON:              true,
	})
	if err != nil {
		return nil, err
	}
	return ParseJourneys(text)
}
