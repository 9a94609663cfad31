package scoring

import (
	"math"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// PromotedDisplayScore is shown whenever the Dean's status is PROMOTED.
const PromotedDisplayScore = 100

type CategorySubtotal struct {
	Category CategoryTag `json:"category"`
	Sum      int         `json:"sum"`
	Count    int         `json:"count"`
	Max      int         `json:"max"`
}

type Summary struct {
	CategorySubtotals map[CategoryTag]CategorySubtotal `json:"categorySubtotals"`
	TotalScore        int                              `json:"totalScore"`
	ItemCount         int                              `json:"itemCount"`
	RawSum            int                              `json:"rawSum"`
	MaxScore          int                              `json:"maxScore"`
}

// Aggregate sums each category and derives the percentage total
// round(sum / (count*5) * 100). An empty set totals 0.
func Aggregate(set RubricScoreSet) Summary {
	summary := Summary{CategorySubtotals: make(map[CategoryTag]CategorySubtotal)}

	for category, items := range set.Items {
		if len(items) == 0 {
			continue
		}
		sub := CategorySubtotal{Category: category}
		for _, value := range items {
			sub.Sum += value
			sub.Count++
		}
		sub.Max = sub.Count * MaxItemScore
		summary.CategorySubtotals[category] = sub

		summary.RawSum += sub.Sum
		summary.ItemCount += sub.Count
	}

	summary.MaxScore = summary.ItemCount * MaxItemScore
	summary.TotalScore = Percentage(summary.RawSum, summary.ItemCount)
	return summary
}

// Percentage returns round(sum / (count*5) * 100), clamped to [0,100].
func Percentage(sum, count int) int {
	if count <= 0 {
		return 0
	}
	pct := int(math.Round(float64(sum) / float64(count*MaxItemScore) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ResolveTotal prefers a stored total over re-deriving one from the items.
func ResolveTotal(stored *int, set RubricScoreSet) int {
	if stored != nil {
		return *stored
	}
	return Aggregate(set).TotalScore
}

// DisplayScore applies the PROMOTED override to a numeric score. The bool is
// false when there is nothing to show.
func DisplayScore(status models.FinalStatus, score *int) (int, bool) {
	if status == models.FinalPromoted {
		return PromotedDisplayScore, true
	}
	if score == nil {
		return 0, false
	}
	return *score, false
}
