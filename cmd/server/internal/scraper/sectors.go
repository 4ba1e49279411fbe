package scraper

// sectorBySymbol maps BVMT ticker symbols to sector labels for scraped rows.
// Maintained independently from the synthetic roster; unknown symbols fall
// back to "Autres".
var sectorBySymbol = map[string]string{
	// Banques
	"BIAT":     "Banques",
	"STB":      "Banques",
	"BH":       "Banques",
	"ATTIJARI": "Banques",
	"ATB":      "Banques",
	"BNA":      "Banques",
	"UIB":      "Banques",
	"UBCI":     "Banques",
	"AB":       "Banques",
	"BT":       "Banques",
	"BTE":      "Banques",
	"WIFAK":    "Banques",
	"ZITOUNA":  "Banques",
	"QNB":      "Banques",

	// Assurances
	"STAR":         "Assurance",
	"BH ASSURANCE": "Assurance",
	"ASTREE":       "Assurance",
	"TUNIS RE":     "Assurance",
	"CARTE":        "Assurance",
	"GAT":          "Assurance",
	"SALIM":        "Assurance",
	"AMI":          "Assurance",
	"LLOYD":        "Assurance",
	"MAGHREBIA":    "Assurance",

	// Agroalimentaire
	"SFBT":    "Agroalimentaire",
	"DELICE":  "Agroalimentaire",
	"SAH":     "Agroalimentaire",
	"SOPAT":   "Agroalimentaire",
	"LAND'OR": "Agroalimentaire",
	"ELBENE":  "Agroalimentaire",

	// Holdings
	"PGH":      "Holding",
	"CELLCOM":  "Holding",
	"HEXABYTE": "Holding",
	"AMS":      "Holding",
	"GIF":      "Holding",

	// Pharma / Santé
	"ADWYA":  "Pharma",
	"SIPHAT": "Pharma",
	"UNIMED": "Pharma",

	// Tech
	"TELNET":   "Tech",
	"ONE TECH": "Tech",
	"SOTETEL":  "Tech",

	// Distribution
	"ARTES":     "Distribution",
	"MONOPRIX":  "Distribution",
	"CITY CARS": "Distribution",
	"ENNAKL":    "Distribution",
	"UADH":      "Distribution",

	// Immobilier
	"SITS":     "Immobilier",
	"SIMPAR":   "Immobilier",
	"ESSOUKNA": "Immobilier",

	// Industrie
	"EURO CYCLES":     "Industrie",
	"SOTUVER":         "Industrie",
	"TPR":             "Industrie",
	"CARTHAGE CEMENT": "Industrie",
	"SOTIPAPIER":      "Industrie",
	"ELECTROSTAR":     "Industrie",
	"SCB":             "Industrie",
}

// CategorizeSector resolves a symbol to its sector label.
func CategorizeSector(symbol string) string {
	if sector, ok := sectorBySymbol[symbol]; ok {
		return sector
	}
	return "Autres"
}
