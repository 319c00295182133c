package scoring

import (
	"encoding/json"
	"fmt"
	"math"

	"reviewdesk/internal/models"
)

// legacyCategoryWeight is the historical per-category denominator used before
// rubric-derived weights existed. It is kept only as a degraded fallback for
// records whose form/role resolves to no rubric.
const legacyCategoryWeight = 4.0

// Score is an accumulated rating against the maximum possible rating.
type Score struct {
	Value float64 `json:"value"`
	OutOf float64 `json:"outOf"`
}

// Invalid returns the sentinel score substituted when a per-record
// computation fails.
func Invalid() Score {
	return Score{Value: math.NaN(), OutOf: math.NaN()}
}

// Valid reports whether s is a real score rather than the failure sentinel.
func (s Score) Valid() bool {
	return !math.IsNaN(s.Value) && !math.IsNaN(s.OutOf)
}

type scoreJSON struct {
	Value *float64 `json:"value"`
	OutOf *float64 `json:"outOf"`
}

// MarshalJSON encodes the NaN sentinel as nulls; encoding/json rejects NaN
// and the sentinel has to survive the cache and the wire.
func (s Score) MarshalJSON() ([]byte, error) {
	var v scoreJSON
	if !math.IsNaN(s.Value) {
		v.Value = &s.Value
	}
	if !math.IsNaN(s.OutOf) {
		v.OutOf = &s.OutOf
	}
	return json.Marshal(v)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var v scoreJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Value = math.NaN()
	s.OutOf = math.NaN()
	if v.Value != nil {
		s.Value = *v.Value
	}
	if v.OutOf != nil {
		s.OutOf = *v.OutOf
	}
	return nil
}

// Calculate computes a submitted record's score against the resolved rubrics.
//
// Every rubric category contributes its maximum weight to the denominator;
// a category the reviewer never rated contributes zero to the numerator but
// keeps its weight. With no rubrics resolved the legacy constant-weight
// fallback is used over the record's own rated categories.
//
// Pure function of (record, rubrics); safe to cache by record identity plus
// rubric set identity.
func Calculate(record models.ScoredRecord, rubrics []models.RoleReviewRubric) (Score, error) {
	if record == nil {
		return Invalid(), fmt.Errorf("scoring: nil record")
	}
	if !record.IsSubmitted() {
		return Invalid(), fmt.Errorf("scoring: record is not submitted")
	}

	ratings := record.CategoryRatings()
	if len(rubrics) == 0 {
		return legacyScore(ratings)
	}

	var value, outOf float64
	for _, rubric := range rubrics {
		for category, weight := range rubric.Categories {
			if weight < 0 || weight > models.MaxCategoryWeight {
				return Invalid(), fmt.Errorf("scoring: category %q has weight %v outside [0, %v]", category, weight, models.MaxCategoryWeight)
			}
			rating, ok := ratings[category]
			if !ok {
				// Missing and zero ratings are equivalent.
				rating = 0
			}
			if rating < 0 || rating > weight {
				return Invalid(), fmt.Errorf("scoring: rating %v for category %q outside [0, %v]", rating, category, weight)
			}
			value += rating
			outOf += weight
		}
	}
	return Score{Value: value, OutOf: outOf}, nil
}

func legacyScore(ratings map[string]float64) (Score, error) {
	var value float64
	for category, rating := range ratings {
		if rating < 0 || rating > legacyCategoryWeight {
			return Invalid(), fmt.Errorf("scoring: rating %v for category %q outside [0, %v]", rating, category, legacyCategoryWeight)
		}
		value += rating
	}
	return Score{Value: value, OutOf: legacyCategoryWeight * float64(len(ratings))}, nil
}
