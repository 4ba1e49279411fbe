package models

import (
	"math"
	"time"
)

// Index map keys used across the pipeline.
const (
	IndexTunindex   = "tunindex"
	IndexTunindex20 = "tunindex20"
)

// Price alert conditions.
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// Instrument is a single listed security on the BVMT. Instruments are never
// mutated in place; every refresh replaces them wholesale inside a new Snapshot.
type Instrument struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`  // TND, 2 decimals
	Change float64 `json:"change"` // percent, signed
	Volume int64   `json:"volume"`
	Sector string  `json:"sector"`
}

// Index is a market-level aggregate. Value carries over between snapshots and
// evolves multiplicatively from the previous level, unlike instruments.
type Index struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"` // percent
	Volume int64   `json:"volume"`
}

// SectorAggregate is a derived roll-up of instruments grouped by sector.
type SectorAggregate struct {
	Name   string  `json:"name"`
	Change float64 `json:"change"` // mean of constituent changes
	Volume int64   `json:"volume"` // sum of constituent volumes
}

// ChartPoint is one sample of the TUNINDEX level over time.
type ChartPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Snapshot is the complete market state at one instant. A Snapshot is immutable
// once published: readers share the same value and writers build a new one.
type Snapshot struct {
	Stocks       []Instrument      `json:"stocks"`
	Indices      map[string]Index  `json:"indices"`
	Sectors      []SectorAggregate `json:"sectors"`
	ChartHistory []ChartPoint      `json:"chartHistory"`
	LastUpdate   time.Time         `json:"lastUpdate"`
}

// PriceAlert is a user-defined threshold. Alerts stay active after firing so
// they re-fire on every qualifying snapshot; deactivation is the owner's call.
type PriceAlert struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"targetPrice"`
	Condition   string    `json:"condition"` // "above" or "below"
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Round2 rounds to 2 decimal places, the precision used for prices and index levels.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SectorsFrom recomputes sector aggregates from an instrument set. Sector order
// follows first appearance in the input, so a fixed roster yields a fixed order.
func SectorsFrom(stocks []Instrument) []SectorAggregate {
	type acc struct {
		changeSum float64
		volume    int64
		count     int
	}

	order := make([]string, 0, 8)
	bySector := make(map[string]*acc)

	for _, s := range stocks {
		if s.Sector == "" {
			continue
		}
		a, ok := bySector[s.Sector]
		if !ok {
			a = &acc{}
			bySector[s.Sector] = a
			order = append(order, s.Sector)
		}
		a.changeSum += s.Change
		a.volume += s.Volume
		a.count++
	}

	sectors := make([]SectorAggregate, 0, len(order))
	for _, name := range order {
		a := bySector[name]
		sectors = append(sectors, SectorAggregate{
			Name:   name,
			Change: Round2(a.changeSum / float64(a.count)),
			Volume: a.volume,
		})
	}
	return sectors
}

// Clone returns a deep copy. Jitter ticks clone before perturbing so published
// snapshots are never mutated.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Stocks:       make([]Instrument, len(s.Stocks)),
		Indices:      make(map[string]Index, len(s.Indices)),
		Sectors:      make([]SectorAggregate, len(s.Sectors)),
		ChartHistory: make([]ChartPoint, len(s.ChartHistory)),
		LastUpdate:   s.LastUpdate,
	}
	copy(c.Stocks, s.Stocks)
	copy(c.Sectors, s.Sectors)
	copy(c.ChartHistory, s.ChartHistory)
	for name, idx := range s.Indices {
		c.Indices[name] = idx
	}
	return c
}
