// Package alerts evaluates user-defined price thresholds against snapshots.
// Evaluation is pure: no state, no suppression. Alerts remain active after
// firing and re-fire on every qualifying snapshot until their owner removes
// them.
package alerts

import (
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// Triggered is an alert that fired, annotated with the price observed at
// trigger time.
type Triggered struct {
	Alert        models.PriceAlert `json:"alert"`
	CurrentPrice float64           `json:"currentPrice"`
}

// Evaluate returns the alerts whose threshold the snapshot crosses. Inactive
// alerts and alerts for symbols absent from the snapshot are skipped silently.
func Evaluate(snap *models.Snapshot, candidates []models.PriceAlert) []Triggered {
	if snap == nil || len(candidates) == 0 {
		return nil
	}

	prices := make(map[string]float64, len(snap.Stocks))
	for _, s := range snap.Stocks {
		prices[s.Symbol] = s.Price
	}

	var triggered []Triggered
	for _, a := range candidates {
		if !a.Active {
			continue
		}
		price, ok := prices[a.Symbol]
		if !ok {
			continue
		}

		fired := (a.Condition == models.ConditionAbove && price >= a.TargetPrice) ||
			(a.Condition == models.ConditionBelow && price <= a.TargetPrice)
		if fired {
			triggered = append(triggered, Triggered{Alert: a, CurrentPrice: price})
		}
	}
	return triggered
}
