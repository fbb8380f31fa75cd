package cost

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Token estimates for a single analysis call.
const (
	VideoTokensPerSecond = 258
	AudioTokensPerSecond = 25
	PromptOverheadTokens = 1000
	ResponseTokens       = 500
)

const tokensPerMillion = 1_000_000

// Breakdown is the priced token estimate for one analysis.
type Breakdown struct {
	Model            string
	ModelDisplayName string
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
}

// Estimate prices one analysis of a video lasting durationSeconds with the
// given model. Negative or non-finite durations count as zero and unknown
// models resolve to DefaultModel.
func Estimate(durationSeconds float64, modelID string) Breakdown {
	model := Resolve(modelID)
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		durationSeconds = 0
	}

	inputTokens := durationSeconds*(VideoTokensPerSecond+AudioTokensPerSecond) + PromptOverheadTokens
	inputCost := inputTokens / tokensPerMillion * model.InputCostPerMillion
	outputCost := float64(ResponseTokens) / tokensPerMillion * model.OutputCostPerMillion

	return Breakdown{
		Model:            model.ID,
		ModelDisplayName: model.DisplayName,
		InputTokens:      int(inputTokens),
		OutputTokens:     ResponseTokens,
		TotalTokens:      int(inputTokens + ResponseTokens),
		InputCost:        inputCost,
		OutputCost:       outputCost,
		TotalCost:        inputCost + outputCost,
	}
}

// FormatCost renders a dollar amount, keeping four decimals below one cent.
func FormatCost(amount float64) string {
	if amount < 0.01 {
		return fmt.Sprintf("$%.4f", amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

var printer = message.NewPrinter(language.English)

// FormatTokens renders a token count with thousands separators.
func FormatTokens(tokens int) string {
	return printer.Sprintf("%d", tokens)
}
