package businessflow

import (
	"strings"

	"github.com/amirphl/parts-pricing/models"
	"github.com/samber/lo"
)

// categoryTokens maps a device category to the token looked up in formula class names.
var categoryTokens = map[string]string{
	models.CategoryHighEnd:  "high",
	models.CategoryMidEnd:   "mid",
	models.CategoryLowEnd:   "low",
	models.CategoryTab:      "tab",
	models.CategoryWearable: "wear",
}

// PickFormulaForCategory returns the first formula whose class name contains
// the category's token, or nil.
func PickFormulaForCategory(category string, formulas []*models.Formula) *models.Formula {
	token, ok := categoryTokens[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return nil
	}
	for _, f := range formulas {
		if f != nil && strings.Contains(strings.ToLower(f.ClassName), token) {
			return f
		}
	}
	return nil
}

// AutoCategory returns the majority category among the parts. Ties go to the
// category listed first in models.Categories. Uncategorized parts are ignored.
func AutoCategory(parts []*models.Part) *string {
	categories := lo.FilterMap(parts, func(p *models.Part, _ int) (string, bool) {
		if p == nil || p.Category == nil || !models.IsValidCategory(*p.Category) {
			return "", false
		}
		return *p.Category, true
	})
	if len(categories) == 0 {
		return nil
	}

	counts := lo.CountValues(categories)
	best, bestCount := "", 0
	for _, c := range models.Categories {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return &best
}
