package engine

import (
	"fmt"
	"regexp"
	"strings"
)

var apiKeyPattern = regexp.MustCompile(`^AIza[A-Za-z0-9_-]+$`)

// PreflightError lists every reason a run cannot start.
type PreflightError struct {
	Problems []string
}

func (e *PreflightError) Error() string {
	if len(e.Problems) == 1 {
		return "pre-flight check failed: " + e.Problems[0]
	}
	return fmt.Sprintf("pre-flight check failed with %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// ValidAPIKeyShape reports whether key looks like an inference API key. It
// is a local format check only.
func ValidAPIKeyShape(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// Preflight validates req without spending anything. It returns a
// *PreflightError listing all problems, or nil.
func (c *Controller) Preflight(req Request) error {
	var problems []string

	key := strings.TrimSpace(req.APIKey)
	switch {
	case key == "":
		problems = append(problems, "no API key configured (set gemini.api_key or GEMINI_API_KEY)")
	case !ValidAPIKeyShape(key):
		problems = append(problems, "API key format looks invalid (expected a key starting with \"AIza\")")
	}

	if len(req.CUJs) == 0 {
		problems = append(problems, "no CUJs defined")
	}

	ready := req.ReadyAssets()
	if len(ready) == 0 {
		problems = append(problems, "no ready videos available")
	}
	for _, a := range ready {
		if err := c.files.Check(a.FilePath); err != nil {
			problems = append(problems, fmt.Sprintf("video file missing for %q: %s", a.Name, a.FilePath))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &PreflightError{Problems: problems}
}
