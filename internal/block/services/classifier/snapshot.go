package classifier

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"github.com/haukened/siteblock/internal/block/domain"
)

var validate = validator.New()

// MergeConfig reads a persisted AiConfig. Fields that are missing, of the
// wrong JSON type, or out of range fall back to their defaults individually.
func MergeConfig(raw json.RawMessage) domain.AiConfig {
	cfg := domain.DefaultAiConfig()
	if !gjson.ValidBytes(raw) {
		return cfg
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return cfg
	}

	if v := doc.Get("enabled"); v.IsBool() {
		cfg.Enabled = v.Bool()
	}
	if v := doc.Get("threshold"); v.Type == gjson.Number {
		cfg.Threshold = v.Float()
	}
	if v := doc.Get("learningRate"); v.Type == gjson.Number {
		cfg.LearningRate = v.Float()
	}
	if v := doc.Get("minExamples"); v.Type == gjson.Number {
		cfg.MinExamples = int(v.Int())
	}
	if v := doc.Get("maxWeight"); v.Type == gjson.Number {
		cfg.MaxWeight = v.Float()
	}

	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		def := domain.DefaultAiConfig()
		for _, fe := range verrs {
			switch fe.StructField() {
			case "Threshold":
				cfg.Threshold = def.Threshold
			case "LearningRate":
				cfg.LearningRate = def.LearningRate
			case "MinExamples":
				cfg.MinExamples = def.MinExamples
			case "MaxWeight":
				cfg.MaxWeight = def.MaxWeight
			}
		}
	}
	return cfg
}

// NormalizeModel reads a persisted AiModel. It returns nil when the snapshot
// is not an object with a "weights" object; the caller then seeds a new model.
// Non-numeric weights are dropped and missing counters default to zero.
func NormalizeModel(raw json.RawMessage, now int64) *domain.AiModel {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil
	}
	weights := doc.Get("weights")
	if !weights.IsObject() {
		return nil
	}

	model := domain.NewAiModel(now)
	weights.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			model.Weights[key.String()] = value.Float()
		}
		return true
	})
	if v := doc.Get("bias"); v.Type == gjson.Number {
		model.Bias = v.Float()
	}
	if v := doc.Get("positiveExamples"); v.Type == gjson.Number {
		model.PositiveExamples = int(v.Int())
	}
	if v := doc.Get("negativeExamples"); v.Type == gjson.Number {
		model.NegativeExamples = int(v.Int())
	}
	if v := doc.Get("updatedAt"); v.Type == gjson.Number {
		model.UpdatedAt = v.Int()
	}
	return model
}
