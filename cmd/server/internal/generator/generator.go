package generator

import (
	"time"

	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

// Index levels used when no previous snapshot exists to carry over from.
const (
	baseTunindex   = 9847.32
	baseTunindex20 = 4312.18
)

const chartSeedPoints = 31

type rosterEntry struct {
	symbol    string
	name      string
	basePrice float64
	sector    string
}

// Companies listed on the BVMT with approximate base prices. The roster drives
// every synthetic snapshot; the first 20 entries form the TUNINDEX20 basket.
var roster = []rosterEntry{
	{"BIAT", "Banque Internationale Arabe de Tunisie", 118.50, "Banques"},
	{"SFBT", "Société de Fabrication des Boissons de Tunisie", 21.80, "Agroalimentaire"},
	{"PGH", "Poulina Group Holding", 12.15, "Holding"},
	{"STB", "Société Tunisienne de Banque", 4.85, "Banques"},
	{"ATTIJARI", "Attijari Bank Tunisie", 42.30, "Banques"},
	{"BH", "Banque de l'Habitat", 14.70, "Banques"},
	{"ADWYA", "Adwya", 8.95, "Pharma"},
	{"SAH", "SAH Lilas", 5.42, "Agroalimentaire"},
	{"TELNET", "Telnet Holding", 9.20, "Tech"},
	{"ARTES", "Automobile Réseau Tunisien", 6.80, "Distribution"},
	{"BNA", "Banque Nationale Agricole", 8.90, "Banques"},
	{"UIB", "Union Internationale de Banques", 22.50, "Banques"},
	{"STAR", "Société Tunisienne d'Assurance et de Réassurance", 135.00, "Assurance"},
	{"DELICE", "Délice Holding", 16.20, "Agroalimentaire"},
	{"ONE TECH", "One Tech Holding", 11.45, "Tech"},
	{"MONOPRIX", "Monoprix", 7.90, "Distribution"},
	{"CARTHAGE CEMENT", "Carthage Cement", 1.85, "Industrie"},
	{"ENNAKL", "Ennakl Automobiles", 12.80, "Distribution"},
	{"LAND'OR", "Land'Or", 9.35, "Agroalimentaire"},
	{"EUROCYCLES", "Euro-Cycles", 25.60, "Industrie"},
	{"SIPHAT", "Siphat", 4.20, "Pharma"},
	{"TPR", "TPR", 6.15, "Industrie"},
	{"SOTUVER", "Sotuver", 8.70, "Industrie"},
	{"UBCI", "Union Bancaire pour le Commerce et l'Industrie", 28.40, "Banques"},
	{"ATB", "Arab Tunisian Bank", 3.25, "Banques"},
	{"CITY CARS", "City Cars", 3.80, "Distribution"},
	{"GIF", "GIF Filter", 1.95, "Industrie"},
	{"SITS", "SITS", 2.45, "Immobilier"},
	{"SIMPAR", "Simpar", 35.50, "Immobilier"},
	{"SOTETEL", "Sotetel", 5.60, "Tech"},
}

// RosterSize is the number of instruments every synthetic snapshot contains.
var RosterSize = len(roster)

// Generator produces complete synthetic snapshots with no external dependency.
// It bootstraps the pipeline and backs it whenever scraping fails.
type Generator struct {
	logger *zap.Logger
	rand   Rand
	clock  Clock
}

func New(logger *zap.Logger, rnd Rand, clock Clock) *Generator {
	return &Generator{logger: logger, rand: rnd, clock: clock}
}

// Generate builds a full snapshot. prev supplies index-level continuity so
// synthetic periods don't jump discontinuously from real ones; it may be nil.
func (g *Generator) Generate(prev *models.Snapshot) *models.Snapshot {
	now := g.clock.Now()

	stocks := make([]models.Instrument, 0, len(roster))
	for _, entry := range roster {
		variation := (g.rand.Float64() - 0.5) * 6 // -3% to +3%
		stocks = append(stocks, models.Instrument{
			Symbol: entry.symbol,
			Name:   entry.name,
			Price:  models.Round2(entry.basePrice * (1 + variation/100)),
			Change: models.Round2(variation),
			Volume: int64(g.rand.Intn(80000) + 5000),
			Sector: entry.sector,
		})
	}

	sectors := models.SectorsFrom(stocks)

	top20 := stocks[:20]
	tunindexChange := models.Round2(meanChange(stocks))
	tunindex20Change := models.Round2(meanChange(top20))

	tunindexBase := previousValue(prev, models.IndexTunindex, baseTunindex)
	tunindex20Base := previousValue(prev, models.IndexTunindex20, baseTunindex20)

	indices := map[string]models.Index{
		models.IndexTunindex: {
			Value:  NextIndexValue(tunindexBase, tunindexChange),
			Change: tunindexChange,
			Volume: sumVolume(stocks),
		},
		models.IndexTunindex20: {
			Value:  NextIndexValue(tunindex20Base, tunindex20Change),
			Change: tunindex20Change,
			Volume: sumVolume(top20),
		},
	}

	chart := g.seedChart(indices[models.IndexTunindex].Value, now)

	g.logger.Debug("Generated synthetic snapshot",
		zap.Int("stocks", len(stocks)),
		zap.Float64("tunindex", indices[models.IndexTunindex].Value))

	return &models.Snapshot{
		Stocks:       stocks,
		Indices:      indices,
		Sectors:      sectors,
		ChartHistory: chart,
		LastUpdate:   now,
	}
}

// NextIndexValue evolves an index level from its previous value using the new
// period's mean constituent change. The /1000 damping keeps moves of a
// points-based index proportionate to a percent-based constituent change.
func NextIndexValue(prevValue, change float64) float64 {
	return models.Round2(prevValue * (1 + change/1000))
}

// seedChart synthesizes a chart history ending near the current index value,
// walking backward one minute per point with a slight upward bias.
func (g *Generator) seedChart(indexValue float64, now time.Time) []models.ChartPoint {
	chart := make([]models.ChartPoint, 0, chartSeedPoints)
	value := indexValue - g.rand.Float64()*50

	for i := chartSeedPoints - 1; i >= 0; i-- {
		value += (g.rand.Float64() - 0.48) * 5
		chart = append(chart, models.ChartPoint{
			Time:  now.Add(-time.Duration(i) * time.Minute),
			Value: models.Round2(value),
		})
	}
	return chart
}

func previousValue(prev *models.Snapshot, key string, fallback float64) float64 {
	if prev == nil {
		return fallback
	}
	if idx, ok := prev.Indices[key]; ok && idx.Value > 0 {
		return idx.Value
	}
	return fallback
}

func meanChange(stocks []models.Instrument) float64 {
	if len(stocks) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stocks {
		sum += s.Change
	}
	return sum / float64(len(stocks))
}

func sumVolume(stocks []models.Instrument) int64 {
	var sum int64
	for _, s := range stocks {
		sum += s.Volume
	}
	return sum
}
