// Package classifier implements the adaptive allow/ask/block model: a linear
// bag-of-tokens weight map trained online from block and allow feedback.
//
// All functions are pure. Models are never mutated in place; every update
// returns a fresh copy so owners can swap references atomically.
package classifier

import (
	"math"

	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
)

// sourceThresholdFactor relaxes the threshold for the source half of a page,
// which has fewer tokens than the topic half.
const sourceThresholdFactor = 0.8

// Score returns the dot product of the token set with the model weights.
// Bias is never added.
func Score(tokens []string, model *domain.AiModel) float64 {
	var score float64
	for _, tok := range tokens {
		score += model.Weights[tok]
	}
	return score
}

// Update moves the weight of every distinct token by learningRate towards the
// label and clamps it into [-maxWeight, maxWeight]. Empty token sets leave the
// model untouched.
func Update(tokens []string, label domain.Label, model *domain.AiModel, cfg domain.AiConfig, now int64) *domain.AiModel {
	if len(tokens) == 0 {
		return model
	}
	delta := cfg.LearningRate
	if label != domain.LabelBlock {
		delta = -delta
	}

	next := model.Clone()
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		next.Weights[tok] = clamp(next.Weights[tok]+delta, -cfg.MaxWeight, cfg.MaxWeight)
	}
	if label == domain.LabelBlock {
		next.PositiveExamples++
	} else {
		next.NegativeExamples++
	}
	next.UpdatedAt = now
	return next
}

// Train tokenizes a page and applies Update with all of its tokens.
func Train(title, description, hostname string, label domain.Label, model *domain.AiModel, cfg domain.AiConfig, now int64) *domain.AiModel {
	return Update(BuildTokens(title, description, hostname).All(), label, model, cfg, now)
}

// Decide returns the verdict for a page. It blocks only when both the topic
// and the source carry a confident block signal, and asks when the topic is
// confident but the source is unproven (neither strong nor clearly allowed).
func Decide(title, description, hostname string, model *domain.AiModel, cfg domain.AiConfig) domain.Verdict {
	if !cfg.Enabled || model == nil {
		return domain.VerdictAllow
	}
	if model.Examples() < cfg.MinExamples {
		return domain.VerdictAllow
	}
	tokens := BuildTokens(title, description, hostname)
	sourceAll := tokens.SourceAll()
	if len(tokens.Topic) == 0 || len(sourceAll) == 0 {
		return domain.VerdictAllow
	}

	topic := summarize(tokens.Topic, model)
	source := summarize(sourceAll, model)

	topicStrong := topic.confident(cfg.Threshold, 2)
	sourceStrong := source.confident(cfg.Threshold*sourceThresholdFactor, 1)
	sourceNegative := source.negative(cfg.Threshold)

	switch {
	case topicStrong && sourceStrong:
		return domain.VerdictBlock
	case topicStrong && !sourceNegative:
		return domain.VerdictAsk
	default:
		return domain.VerdictAllow
	}
}

// summary splits token weights into positive and negative mass.
type summary struct {
	positiveSum   float64
	negativeSum   float64
	positiveCount int
}

func summarize(tokens []string, model *domain.AiModel) summary {
	var s summary
	for _, tok := range tokens {
		w := model.Weights[tok]
		switch {
		case w > 0:
			s.positiveSum += w
			s.positiveCount++
		case w < 0:
			s.negativeSum += -w
		}
	}
	return s
}

func (s summary) confident(threshold float64, minPositive int) bool {
	if s.positiveCount < minPositive {
		return false
	}
	return s.positiveSum >= threshold && s.positiveSum >= 2*s.negativeSum
}

func (s summary) negative(threshold float64) bool {
	if s.negativeSum <= 0 {
		return false
	}
	return s.negativeSum >= threshold && s.negativeSum >= 2*s.positiveSum
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// entryHostname resolves the hostname an entry was created for, for either scope.
func entryHostname(e domain.BlockedEntry) string {
	return urlnorm.Hostname(e.Name)
}
