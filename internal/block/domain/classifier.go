package domain

// Verdict is the tri-state classifier output.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictAsk   Verdict = "ask"
	VerdictBlock Verdict = "block"
)

// Label is a training label for the classifier.
type Label string

const (
	LabelBlock Label = "block"
	LabelAllow Label = "allow"
)

// AiModel is a linear weight map over prefixed tokens. Bias is kept at zero;
// it is persisted for compatibility with the extension's snapshot format.
type AiModel struct {
	Weights          map[string]float64 `json:"weights"`
	Bias             float64            `json:"bias"`
	PositiveExamples int                `json:"positiveExamples"`
	NegativeExamples int                `json:"negativeExamples"`
	UpdatedAt        int64              `json:"updatedAt"` // unix milliseconds
}

// NewAiModel returns a model with no learned weights.
func NewAiModel(updatedAt int64) *AiModel {
	return &AiModel{Weights: map[string]float64{}, UpdatedAt: updatedAt}
}

// Examples is the total number of labeled observations the model has seen.
func (m *AiModel) Examples() int {
	return m.PositiveExamples + m.NegativeExamples
}

// Clone returns a deep copy so callers can swap models without sharing maps.
func (m *AiModel) Clone() *AiModel {
	c := *m
	c.Weights = make(map[string]float64, len(m.Weights))
	for k, v := range m.Weights {
		c.Weights[k] = v
	}
	return &c
}

// AiConfig tunes the classifier. Validation tags bound each field; the
// classifier falls back to the default for any field that fails them.
type AiConfig struct {
	Enabled      bool    `json:"enabled"`
	Threshold    float64 `json:"threshold" validate:"gt=0"`
	LearningRate float64 `json:"learningRate" validate:"gt=0"`
	MinExamples  int     `json:"minExamples" validate:"gte=0"`
	MaxWeight    float64 `json:"maxWeight" validate:"gt=0"`
}

// DefaultAiConfig returns the classifier defaults.
func DefaultAiConfig() AiConfig {
	return AiConfig{
		Enabled:      true,
		Threshold:    1.6,
		LearningRate: 0.6,
		MinExamples:  5,
		MaxWeight:    5,
	}
}
