package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
)

const pricePlaces = 2

var hundred = decimal.NewFromInt(100)

// AppliedAdjustment is one step of the price breakdown.
type AppliedAdjustment struct {
	ID          int64                `json:"id"`
	Type        enums.AdjustmentType `json:"type"`
	Value       decimal.Decimal      `json:"value"`
	Priority    int                  `json:"priority"`
	Delta       decimal.Decimal      `json:"delta"`
	Description *string              `json:"description,omitempty"`
}

// ActiveAt keeps the rules that are flagged active and whose window contains now.
func ActiveAt(rules []models.PriceAdjustment, now time.Time) []models.PriceAdjustment {
	out := make([]models.PriceAdjustment, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive && rule.InWindow(now) {
			out = append(out, rule)
		}
	}
	return out
}

// ApplyAdjustments runs rules over base in priority order, ties broken by id.
// The running price is carried at full precision; percentage deltas are
// reported rounded and the final price is rounded to cents.
func ApplyAdjustments(base decimal.Decimal, rules []models.PriceAdjustment) (decimal.Decimal, []AppliedAdjustment) {
	ordered := append([]models.PriceAdjustment(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	running := base
	applied := make([]AppliedAdjustment, 0, len(ordered))
	for _, rule := range ordered {
		var delta, reported decimal.Decimal
		switch rule.AdjustmentType {
		case enums.AdjustmentTypePercentage:
			delta = running.Mul(rule.Value).Div(hundred)
			// Halves round away from zero on both signs: -5.025 reports -5.03.
			reported = delta.Round(pricePlaces)
		case enums.AdjustmentTypeFixed:
			delta = rule.Value
			reported = delta
		default:
			continue
		}
		running = running.Add(delta)
		applied = append(applied, AppliedAdjustment{
			ID:          rule.ID,
			Type:        rule.AdjustmentType,
			Value:       rule.Value,
			Priority:    rule.Priority,
			Delta:       reported,
			Description: rule.Description,
		})
	}
	return running.Round(pricePlaces), applied
}
