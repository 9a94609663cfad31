// Package scoring derives category subtotals and percentage totals from
// rubric scores. Everything here is pure.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/SAP-F-2025/evaluation-service/internal/errors"
)

const (
	MinItemScore = 1
	MaxItemScore = 5
)

// CategoryTag is the closed set of rubric categories.
type CategoryTag string

const (
	CategoryProfessionalism CategoryTag = "PROFESSIONALISM"
	CategoryLeadership      CategoryTag = "RESPONSIBILITIES_LEADERSHIP"
	CategoryDevelopment     CategoryTag = "DEVELOPMENT"
	CategoryService         CategoryTag = "ENGAGEMENT_SERVICE"
	CategoryOther           CategoryTag = "OTHER"
)

// Categories lists the tags in report order.
var Categories = []CategoryTag{
	CategoryProfessionalism,
	CategoryLeadership,
	CategoryDevelopment,
	CategoryService,
	CategoryOther,
}

var prefixes = map[string]CategoryTag{
	"professionalism":  CategoryProfessionalism,
	"responsibilities": CategoryLeadership,
	"leadership":       CategoryLeadership,
	"development":      CategoryDevelopment,
	"engagement":       CategoryService,
	"service":          CategoryService,
}

// CategoryOf derives the category from a "[Category] Item Name" key.
func CategoryOf(key string) CategoryTag {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "[") {
		return CategoryOther
	}
	end := strings.Index(key, "]")
	if end < 0 {
		return CategoryOther
	}
	tag := strings.ToLower(strings.TrimSpace(key[1:end]))
	if c, ok := prefixes[tag]; ok {
		return c
	}
	return CategoryOther
}

// RubricScoreSet groups item scores by category. Item names keep their full
// "[Category] Item Name" key.
type RubricScoreSet struct {
	Items map[CategoryTag]map[string]int `json:"items"`
}

// ParseScores validates a flat score map and groups it by category.
func ParseScores(raw map[string]int) (RubricScoreSet, error) {
	set := RubricScoreSet{Items: make(map[CategoryTag]map[string]int)}
	var errs apperrors.ValidationErrors

	for _, key := range sortedKeys(raw) {
		value := raw[key]
		if strings.TrimSpace(key) == "" {
			errs = append(errs, apperrors.ValidationError{
				Field:   "scores",
				Message: "item name must not be empty",
				Rule:    "rubric_item",
			})
			continue
		}
		if value < MinItemScore || value > MaxItemScore {
			errs = append(errs, apperrors.ValidationError{
				Field:   fmt.Sprintf("scores[%s]", key),
				Message: fmt.Sprintf("must be between %d and %d", MinItemScore, MaxItemScore),
				Value:   value,
				Rule:    "rubric_score",
			})
			continue
		}
		set.add(key, value)
	}

	if len(errs) > 0 {
		return RubricScoreSet{}, errs
	}
	return set, nil
}

func (s *RubricScoreSet) add(key string, value int) {
	category := CategoryOf(key)
	if s.Items[category] == nil {
		s.Items[category] = make(map[string]int)
	}
	s.Items[category][key] = value
}

// Len returns the number of scored items.
func (s RubricScoreSet) Len() int {
	n := 0
	for _, items := range s.Items {
		n += len(items)
	}
	return n
}

// Flat returns the scores keyed by item, the shape stored on reviews.
func (s RubricScoreSet) Flat() map[string]int {
	flat := make(map[string]int, s.Len())
	for _, items := range s.Items {
		for key, value := range items {
			flat[key] = value
		}
	}
	return flat
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
