package cost

// Model describes a supported inference model and its pricing in US dollars
// per million tokens.
type Model struct {
	ID                   string
	DisplayName          string
	InputCostPerMillion  float64
	OutputCostPerMillion float64
	BestFor              string
	SupportsVideo        bool
}

// DefaultModel is used when a caller names a model that is not in the table.
const DefaultModel = "gemini-2.5-flash-lite"

var models = []Model{
	{
		ID:                   "gemini-2.5-flash-lite",
		DisplayName:          "Gemini 2.5 Flash-Lite (Recommended - Fastest & Cheapest)",
		InputCostPerMillion:  0.10,
		OutputCostPerMillion: 0.40,
		BestFor:              "High-volume, cost-sensitive tasks",
		SupportsVideo:        true,
	},
	{
		ID:                   "gemini-2.5-flash",
		DisplayName:          "Gemini 2.5 Flash (Best Quality)",
		InputCostPerMillion:  0.30,
		OutputCostPerMillion: 2.50,
		BestFor:              "Complex reasoning, detailed analysis",
		SupportsVideo:        true,
	},
	{
		ID:                   "gemini-2.0-flash-exp",
		DisplayName:          "Gemini 2.0 Flash Experimental (Cutting Edge)",
		InputCostPerMillion:  0,
		OutputCostPerMillion: 0,
		BestFor:              "Testing latest features, real-time capabilities",
		SupportsVideo:        true,
	},
	{
		ID:                   "gemini-1.5-pro",
		DisplayName:          "Gemini 1.5 Pro (Legacy)",
		InputCostPerMillion:  0.35,
		OutputCostPerMillion: 1.05,
		BestFor:              "Backward compatibility",
		SupportsVideo:        true,
	},
	{
		ID:                   "gemini-1.5-flash",
		DisplayName:          "Gemini 1.5 Flash (Legacy)",
		InputCostPerMillion:  0.15,
		OutputCostPerMillion: 0.60,
		BestFor:              "Backward compatibility, fast processing",
		SupportsVideo:        true,
	},
}

// Models returns the supported models in display order.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Lookup returns the model with the given id.
func Lookup(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Resolve returns the model with the given id, or the default model.
func Resolve(id string) Model {
	if m, ok := Lookup(id); ok {
		return m
	}
	m, _ := Lookup(DefaultModel)
	return m
}
