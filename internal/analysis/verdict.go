package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

type rawVerdict struct {
	Status          string      `json:"status"`
	FrictionScore   json.Number `json:"friction_score"`
	ConfidenceScore json.Number `json:"confidence_score"`
	Observation     string      `json:"observation"`
	Recommendation  string      `json:"recommendation"`
	KeyMoments      []KeyMoment `json:"key_moments"`
}

// ParseVerdict decodes a model reply. It accepts bare JSON, fenced JSON and
// JSON embedded in prose. Scores are rounded and clamped to [1,5]; a
// missing or unparseable confidence is left nil.
func ParseVerdict(content string) (Verdict, error) {
	var raw rawVerdict
	if err := decodeJSON(content, &raw); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	status, err := ParseStatus(raw.Status)
	if err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if raw.FrictionScore == "" {
		return Verdict{}, errors.New("decode verdict: friction_score missing")
	}
	friction, err := raw.FrictionScore.Float64()
	if err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: friction_score: %w", err)
	}

	v := Verdict{
		Status:         status,
		FrictionScore:  roundScore(friction),
		Observation:    strings.TrimSpace(raw.Observation),
		Recommendation: strings.TrimSpace(raw.Recommendation),
		Raw:            strings.TrimSpace(content),
	}
	if raw.ConfidenceScore != "" {
		if c, err := raw.ConfidenceScore.Float64(); err == nil {
			score := roundScore(c)
			v.ConfidenceScore = &score
		}
	}
	for _, m := range raw.KeyMoments {
		if strings.TrimSpace(m.Description) == "" {
			continue
		}
		v.KeyMoments = append(v.KeyMoments, KeyMoment{
			Timestamp:   strings.TrimSpace(m.Timestamp),
			Description: strings.TrimSpace(m.Description),
		})
	}
	return v, nil
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// roundScore clamps before converting so huge model values cannot overflow.
func roundScore(f float64) int {
	if math.IsNaN(f) {
		return MinScore
	}
	return int(math.Round(math.Min(math.Max(f, MinScore), MaxScore)))
}

func decodeJSON(content string, target any) error {
	return decodeJSONDelimited(content, target, '{', '}')
}

// decodeJSONDelimited unmarshals content, falling back to the outermost
// lead/trail delimited span when the model wrapped it in a fence or prose.
func decodeJSONDelimited(content string, target any, lead, trail byte) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := sanitizeJSONPayload(trimmed, lead, trail)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, Snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, Snippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string, lead, trail byte) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == lead {
		return trimmed
	}
	if start := strings.IndexByte(trimmed, lead); start >= 0 {
		if end := strings.LastIndexByte(trimmed, trail); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// Snippet collapses whitespace and truncates content for log and error text.
func Snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
