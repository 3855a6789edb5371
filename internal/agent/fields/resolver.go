package fields

import (
	"github.com/feichai0017/quote-extractor/internal/models"
)

// Resolver runs an extractor set over a text and folds the candidates into a
// single update map.
type Resolver struct {
	extractors []Extractor
}

// NewResolver builds a resolver over extractors, in order. With no extractors
// it uses DefaultExtractors.
func NewResolver(extractors ...Extractor) *Resolver {
	if len(extractors) == 0 {
		extractors = DefaultExtractors()
	}
	return &Resolver{extractors: extractors}
}

// Extractors returns the extractor names in run order.
func (r *Resolver) Extractors() []string {
	names := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		names[i] = e.Name
	}
	return names
}

// Resolve returns one entry per extracted field. Text without any recognizable
// pattern yields an empty, non-nil map.
func (r *Resolver) Resolve(text string) models.FieldUpdateMap {
	updates := make(models.FieldUpdateMap)
	if text == "" {
		return updates
	}

	for _, e := range r.extractors {
		for _, c := range run(e, text) {
			if !c.Field.Valid() || !e.owns(c.Field) {
				continue
			}
			// earlier extractors keep their keys
			if _, taken := updates[c.Field]; taken {
				continue
			}
			if e.Coerce == nil {
				updates[c.Field] = c.Value
				continue
			}
			if v, ok := e.Coerce(c); ok {
				updates[c.Field] = v
			}
		}
	}
	return updates
}

// Candidates returns every candidate produced for text before coercion, in
// extractor order. Useful for explaining a result.
func (r *Resolver) Candidates(text string) []models.FieldCandidate {
	var out []models.FieldCandidate
	if text == "" {
		return out
	}
	for _, e := range r.extractors {
		out = append(out, run(e, text)...)
	}
	return out
}

// run isolates a misbehaving extractor: a panic degrades to no candidates.
func run(e Extractor, text string) (cands []models.FieldCandidate) {
	if e.Match == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			cands = nil
		}
	}()
	return e.Match(text)
}
