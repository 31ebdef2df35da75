package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickFormulaForCategory(t *testing.T) {
	formulas := []*models.Formula{
		{ID: 1, ClassName: "High End"},
		{ID: 2, ClassName: "Mid End"},
		{ID: 3, ClassName: "Mid End (old)"},
		{ID: 4, ClassName: "Low End"},
		{ID: 5, ClassName: "TAB"},
		{ID: 6, ClassName: "Wearables"},
	}

	tests := []struct {
		name     string
		category string
		wantID   uint
	}{
		{name: "highend", category: models.CategoryHighEnd, wantID: 1},
		{name: "first of several wins", category: models.CategoryMidEnd, wantID: 2},
		{name: "lowend", category: models.CategoryLowEnd, wantID: 4},
		{name: "tab is case-insensitive", category: models.CategoryTab, wantID: 5},
		{name: "wearable", category: "Wearable", wantID: 6},
		{name: "unknown category", category: "laptop"},
		{name: "empty category", category: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickFormulaForCategory(tt.category, formulas)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	assert.Nil(t, PickFormulaForCategory(models.CategoryTab, []*models.Formula{{ClassName: "High End"}}))
}

func TestAutoCategory(t *testing.T) {
	part := func(category string) *models.Part {
		return &models.Part{Category: utils.NilIfBlank(category)}
	}

	tests := []struct {
		name  string
		parts []*models.Part
		want  *string
	}{
		{
			name:  "majority wins",
			parts: []*models.Part{part(models.CategoryLowEnd), part(models.CategoryMidEnd), part(models.CategoryLowEnd)},
			want:  utils.ToPtr(models.CategoryLowEnd),
		},
		{
			name:  "tie goes to the higher priority category",
			parts: []*models.Part{part(models.CategoryTab), part(models.CategoryMidEnd)},
			want:  utils.ToPtr(models.CategoryMidEnd),
		},
		{
			name:  "uncategorized parts are ignored",
			parts: []*models.Part{part(""), part(""), part(models.CategoryWearable), nil},
			want:  utils.ToPtr(models.CategoryWearable),
		},
		{
			name:  "nothing categorized",
			parts: []*models.Part{part(""), part("bogus")},
		},
		{
			name: "empty selection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoCategory(tt.parts))
		})
	}
}
