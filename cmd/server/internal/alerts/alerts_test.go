package alerts_test

import (
	"testing"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/alerts"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

func snapshotWith(symbol string, price float64) *models.Snapshot {
	return &models.Snapshot{
		Stocks: []models.Instrument{
			{Symbol: symbol, Name: symbol, Price: price, Volume: 1000, Sector: "Banques"},
		},
	}
}

func TestEvaluate_AboveFires(t *testing.T) {
	alert := models.PriceAlert{ID: "1", Symbol: "BIAT", TargetPrice: 120, Condition: models.ConditionAbove, Active: true}

	triggered := alerts.Evaluate(snapshotWith("BIAT", 121), []models.PriceAlert{alert})

	if len(triggered) != 1 {
		t.Fatalf("Expected alert to fire, got %d", len(triggered))
	}
	if triggered[0].CurrentPrice != 121 {
		t.Errorf("Expected observed price 121, got %f", triggered[0].CurrentPrice)
	}
	if triggered[0].Alert.ID != "1" {
		t.Errorf("Triggered entry should carry the original alert")
	}
}

func TestEvaluate_AboveExactBoundaryFires(t *testing.T) {
	alert := models.PriceAlert{Symbol: "BIAT", TargetPrice: 120, Condition: models.ConditionAbove, Active: true}

	if len(alerts.Evaluate(snapshotWith("BIAT", 120), []models.PriceAlert{alert})) != 1 {
		t.Error("price == target must fire for above")
	}
}

func TestEvaluate_AboveBelowTargetDoesNotFire(t *testing.T) {
	alert := models.PriceAlert{Symbol: "BIAT", TargetPrice: 120, Condition: models.ConditionAbove, Active: true}

	if len(alerts.Evaluate(snapshotWith("BIAT", 119), []models.PriceAlert{alert})) != 0 {
		t.Error("price below target must not fire for above")
	}
}

func TestEvaluate_BelowFires(t *testing.T) {
	alert := models.PriceAlert{Symbol: "STB", TargetPrice: 5, Condition: models.ConditionBelow, Active: true}

	triggered := alerts.Evaluate(snapshotWith("STB", 4.85), []models.PriceAlert{alert})
	if len(triggered) != 1 {
		t.Fatal("Expected below alert to fire")
	}
	if triggered[0].CurrentPrice != 4.85 {
		t.Errorf("Expected observed price 4.85, got %f", triggered[0].CurrentPrice)
	}
}

func TestEvaluate_MissingSymbolSkipped(t *testing.T) {
	alert := models.PriceAlert{Symbol: "BIAT", TargetPrice: 120, Condition: models.ConditionAbove, Active: true}

	if got := alerts.Evaluate(snapshotWith("SFBT", 500), []models.PriceAlert{alert}); len(got) != 0 {
		t.Error("Alert for absent symbol must be skipped silently")
	}
}

func TestEvaluate_InactiveSkipped(t *testing.T) {
	alert := models.PriceAlert{Symbol: "BIAT", TargetPrice: 120, Condition: models.ConditionAbove, Active: false}

	if got := alerts.Evaluate(snapshotWith("BIAT", 500), []models.PriceAlert{alert}); len(got) != 0 {
		t.Error("Inactive alert must not fire")
	}
}

func TestEvaluate_NilInputs(t *testing.T) {
	if got := alerts.Evaluate(nil, []models.PriceAlert{{Symbol: "BIAT", Active: true}}); got != nil {
		t.Error("Nil snapshot must yield no triggers")
	}
	if got := alerts.Evaluate(snapshotWith("BIAT", 1), nil); got != nil {
		t.Error("Empty alert set must yield no triggers")
	}
}

func TestEvaluate_MultipleAlertsSameSymbol(t *testing.T) {
	candidates := []models.PriceAlert{
		{ID: "1", Symbol: "BIAT", TargetPrice: 100, Condition: models.ConditionAbove, Active: true},
		{ID: "2", Symbol: "BIAT", TargetPrice: 150, Condition: models.ConditionAbove, Active: true},
		{ID: "3", Symbol: "BIAT", TargetPrice: 110, Condition: models.ConditionBelow, Active: true},
	}

	triggered := alerts.Evaluate(snapshotWith("BIAT", 121), candidates)

	if len(triggered) != 1 || triggered[0].Alert.ID != "1" {
		t.Errorf("Expected only alert 1 to fire, got %+v", triggered)
	}
}
