package catalog

import "strings"

// categorySynonyms maps common free-text spellings to the store's canonical
// category names. Keys are lowercase.
var categorySynonyms = map[string]string{
	"men":              "men's clothing",
	"mens":             "men's clothing",
	"men's":            "men's clothing",
	"men's clothing":   "men's clothing",
	"mens clothing":    "men's clothing",
	"women":            "women's clothing",
	"womens":           "women's clothing",
	"women's":          "women's clothing",
	"women's clothing": "women's clothing",
	"womens clothing":  "women's clothing",
	"electronic":       "electronics",
	"electronics":      "electronics",
	"jewelry":          "jewelery",
	"jewellery":        "jewelery",
	"jewelery":         "jewelery",
}

// NormalizeCategory maps free-text category input ("mens", "jewelry") to the
// store's canonical category name. Unmapped input is trimmed, lowercased, and
// passed through unchanged so new store categories keep working.
func NormalizeCategory(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := categorySynonyms[key]; ok {
		return canonical
	}
	return key
}
