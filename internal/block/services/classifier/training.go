package classifier

import "github.com/haukened/siteblock/internal/block/domain"

// trainingKey identifies one labeled example derived from a blocklist entry.
type trainingKey struct {
	hostname    string
	title       string
	description string
}

// example is an enabled entry that carries enough signal to train on.
type example struct {
	key   trainingKey
	entry domain.BlockedEntry
}

// examples returns enabled entries with page text and a resolvable hostname,
// first occurrence of each key only.
func examples(entries []domain.BlockedEntry) []example {
	seen := make(map[trainingKey]struct{})
	var out []example
	for _, e := range entries {
		if !e.Enabled || e.Text() == "" {
			continue
		}
		host := entryHostname(e)
		if host == "" {
			continue
		}
		k := trainingKey{hostname: host, title: e.Title, description: e.Description}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, example{key: k, entry: e})
	}
	return out
}

// BuildModelFromBlockedList seeds a fresh model by training every enabled,
// text-bearing entry once as a block example.
func BuildModelFromBlockedList(entries []domain.BlockedEntry, cfg domain.AiConfig, now int64) *domain.AiModel {
	model := domain.NewAiModel(now)
	seen := make(map[string]struct{})
	for _, ex := range examples(entries) {
		k := Text(ex.entry.Title, ex.entry.Description) + "|" + ex.key.hostname
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		model = Train(ex.entry.Title, ex.entry.Description, ex.key.hostname, domain.LabelBlock, model, cfg, now)
	}
	return model
}

// RetrainResult counts the examples applied by Retrain.
type RetrainResult struct {
	Blocked int
	Allowed int
}

// Retrain applies the difference between two blocklist snapshots to model.
// Examples enabled only in next train as block; examples enabled in prev but
// disabled or removed in next train as allow.
func Retrain(prev, next []domain.BlockedEntry, model *domain.AiModel, cfg domain.AiConfig, now int64) (*domain.AiModel, RetrainResult) {
	var res RetrainResult
	before := examples(prev)
	after := examples(next)

	inBefore := make(map[trainingKey]struct{}, len(before))
	for _, ex := range before {
		inBefore[ex.key] = struct{}{}
	}
	inAfter := make(map[trainingKey]struct{}, len(after))
	for _, ex := range after {
		inAfter[ex.key] = struct{}{}
	}

	for _, ex := range after {
		if _, ok := inBefore[ex.key]; ok {
			continue
		}
		model = Train(ex.key.title, ex.key.description, ex.key.hostname, domain.LabelBlock, model, cfg, now)
		res.Blocked++
	}
	for _, ex := range before {
		if _, ok := inAfter[ex.key]; ok {
			continue
		}
		model = Train(ex.key.title, ex.key.description, ex.key.hostname, domain.LabelAllow, model, cfg, now)
		res.Allowed++
	}
	return model, res
}
