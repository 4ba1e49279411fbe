package scraper

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

const (
	listingsPath = "/marches/aaz"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Last-known-good index levels, served whenever the homepage cannot be parsed.
var fallbackIndices = map[string]models.Index{
	models.IndexTunindex:   {Value: 9847.32, Change: 0.45, Volume: 2340000},
	models.IndexTunindex20: {Value: 4312.18, Change: 0.32, Volume: 1850000},
}

var (
	indexValueRe  = regexp.MustCompile(`(?i)(\d[\d\s,\.]+)\s*(pts|points)?`)
	indexChangeRe = regexp.MustCompile(`([+-]?\d+[.,]\d+)\s*%`)

	// The "20" in the label would otherwise be picked up as part of the value
	indexLabelRe = regexp.MustCompile(`TUNINDEX\s?20|TUNINDEX`)
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Rand supplies the estimated volumes for scraped rows (the listings page
// doesn't publish per-line volume).
type Rand interface {
	Intn(n int) int
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Scraper fetches and parses ilboursa.com pages into canonical market
// entities. The page markup is untrusted and may change without notice, so
// every parse path is defensive and every failure degrades to an empty result
// rather than an error.
type Scraper struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	rand    Rand
	clock   Clock
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger, rnd Rand, clock Clock) *Scraper {
	if clock == nil {
		clock = systemClock{}
	}
	return &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		rand:    rnd,
		clock:   clock,
	}
}

// FallbackIndices returns a copy of the hardcoded last-known-good index pair.
func FallbackIndices() map[string]models.Index {
	out := make(map[string]models.Index, len(fallbackIndices))
	for k, v := range fallbackIndices {
		out[k] = v
	}
	return out
}

// FetchInstruments scrapes the stock listings page. Network, timeout, and
// parse failures all yield an empty slice, never an error.
func (s *Scraper) FetchInstruments(ctx context.Context) []models.Instrument {
	doc, err := s.get(ctx, s.baseURL+listingsPath)
	if err != nil {
		s.logger.Warn("Stock listings fetch failed", zap.Error(err))
		return nil
	}

	stocks := s.parseListingTables(doc)
	if len(stocks) == 0 {
		// Alternate layout: row-level markers instead of a classic table
		stocks = s.parseListingRows(doc)
	}

	s.logger.Info("Scraped stock listings", zap.Int("count", len(stocks)))
	return stocks
}

// parseListingTables is the primary strategy: a classic quotes table with
// symbol, name, price, change in the first four cells.
func (s *Scraper) parseListingTables(doc *goquery.Document) []models.Instrument {
	var stocks []models.Instrument

	doc.Find("table.tableau tr, table.table-cours tr, .stock-table tbody tr, .cotations tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		symbol := strings.TrimSpace(cells.Eq(0).Text())
		name := strings.TrimSpace(cells.Eq(1).Text())
		price := parseDecimal(cells.Eq(2).Text(), false)
		change := parseDecimal(cells.Eq(3).Text(), true)

		if inst, ok := s.buildInstrument(symbol, name, price, change); ok {
			stocks = append(stocks, inst)
		}
	})
	return stocks
}

// parseListingRows is the fallback strategy: rows carrying a data-symbol
// attribute or class-based field markers.
func (s *Scraper) parseListingRows(doc *goquery.Document) []models.Instrument {
	var stocks []models.Instrument

	doc.Find("tr[data-symbol], .stock-row, .cotation-row").Each(func(_ int, row *goquery.Selection) {
		symbol, _ := row.Attr("data-symbol")
		if symbol == "" {
			symbol = row.Find(".symbol, .code").First().Text()
		}
		symbol = strings.TrimSpace(symbol)

		name := strings.TrimSpace(row.Find(".name, .societe, .libelle").First().Text())
		price := parseDecimal(row.Find(".cours, .price, .last").First().Text(), false)
		change := parseDecimal(row.Find(".var, .change, .variation").First().Text(), true)

		if inst, ok := s.buildInstrument(symbol, name, price, change); ok {
			stocks = append(stocks, inst)
		}
	})
	return stocks
}

// buildInstrument applies the row acceptance policy: a symbol and a strictly
// positive price, or the row is discarded.
func (s *Scraper) buildInstrument(symbol, name string, price, change float64) (models.Instrument, bool) {
	if symbol == "" || price <= 0 {
		return models.Instrument{}, false
	}
	symbol = strings.ToUpper(symbol)
	if name == "" {
		name = symbol
	}
	return models.Instrument{
		Symbol: symbol,
		Name:   name,
		Price:  price,
		Change: change,
		Volume: int64(s.rand.Intn(50000) + 1000), // estimated, not published per line
		Sector: CategorizeSector(symbol),
	}, true
}

// FetchIndices scrapes TUNINDEX and TUNINDEX20 from the homepage. Returns nil
// when neither index could be found.
func (s *Scraper) FetchIndices(ctx context.Context) map[string]models.Index {
	doc, err := s.get(ctx, s.baseURL+"/")
	if err != nil {
		s.logger.Warn("Indices fetch failed", zap.Error(err))
		return nil
	}

	indices := map[string]models.Index{
		models.IndexTunindex:   {},
		models.IndexTunindex20: {},
	}

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		text := sel.Text()
		stripped := indexLabelRe.ReplaceAllString(text, "")

		if strings.Contains(text, "TUNINDEX") && !strings.Contains(text, "TUNINDEX20") && !strings.Contains(text, "TUNINDEX 20") {
			if idx, ok := parseIndexText(stripped, indices[models.IndexTunindex]); ok {
				indices[models.IndexTunindex] = idx
			}
		}
		if strings.Contains(text, "TUNINDEX20") || strings.Contains(text, "TUNINDEX 20") {
			if idx, ok := parseIndexText(stripped, indices[models.IndexTunindex20]); ok {
				indices[models.IndexTunindex20] = idx
			}
		}
	})

	if indices[models.IndexTunindex].Value == 0 && indices[models.IndexTunindex20].Value == 0 {
		s.logger.Warn("No index values found on homepage")
		return nil
	}

	s.logger.Info("Scraped indices",
		zap.Float64("tunindex", indices[models.IndexTunindex].Value),
		zap.Float64("tunindex20", indices[models.IndexTunindex20].Value))
	return indices
}

// parseIndexText extracts a value and percent change from free-form index
// text. Values must clear a >1000 sanity bound; both BVMT indices trade well
// above it, and the bound rejects stray numbers picked up by the broad scan.
func parseIndexText(text string, current models.Index) (models.Index, bool) {
	changed := false

	if m := indexValueRe.FindStringSubmatch(text); m != nil {
		cleaned := strings.ReplaceAll(m[1], " ", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		if v, err := strconv.ParseFloat(strings.TrimRight(cleaned, "."), 64); err == nil && v > 1000 {
			current.Value = v
			changed = true
		}
	}
	if m := indexChangeRe.FindStringSubmatch(text); m != nil {
		if c, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			current.Change = c
			changed = true
		}
	}
	return current, changed
}

// FetchSnapshot runs both fetches concurrently and always returns a
// structurally complete snapshot: absent indices are replaced with the
// last-known-good pair, sectors are recomputed from whatever instruments were
// found, and chart history starts empty for the jitter loop to fill.
func (s *Scraper) FetchSnapshot(ctx context.Context) *models.Snapshot {
	var (
		wg      sync.WaitGroup
		stocks  []models.Instrument
		indices map[string]models.Index
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		stocks = s.FetchInstruments(ctx)
	}()
	go func() {
		defer wg.Done()
		indices = s.FetchIndices(ctx)
	}()
	wg.Wait()

	if indices == nil {
		indices = FallbackIndices()
	}

	return &models.Snapshot{
		Stocks:       stocks,
		Indices:      indices,
		Sectors:      models.SectorsFrom(stocks),
		ChartHistory: []models.ChartPoint{},
		LastUpdate:   s.clock.Now(),
	}
}

func (s *Scraper) get(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return goquery.NewDocumentFromReader(resp.Body)
}

// parseDecimal coerces scraped text into a float, stripping currency symbols,
// thousands separators, and whitespace, and mapping the French decimal comma
// to a dot. Returns 0 when nothing numeric remains.
func parseDecimal(text string, allowSign bool) float64 {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '-' && allowSign && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	// A thousands dot plus decimal comma leaves multiple dots; keep the last
	// as the decimal point.
	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
