package businessflow

import (
	"strings"

	"github.com/amirphl/parts-pricing/models"
)

// DeviceMatch is the catalog entry found in a piece of part text.
// All fields are nil when nothing in the catalog matched.
type DeviceMatch struct {
	DeviceName *string `json:"model_name"`
	DeviceCode *string `json:"model_code"`
	Category   *string `json:"category"`
}

// Matched reports whether a catalog entry was found.
func (m DeviceMatch) Matched() bool {
	return m.DeviceName != nil || m.DeviceCode != nil
}

// Equal compares two matches field by field.
func (m DeviceMatch) Equal(o DeviceMatch) bool {
	return equalStrPtr(m.DeviceName, o.DeviceName) &&
		equalStrPtr(m.DeviceCode, o.DeviceCode) &&
		equalStrPtr(m.Category, o.Category)
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type catalogEntry struct {
	name      string
	code      string
	nameLower string
	codeLower string
	category  string
}

// DeviceMatcher finds the first catalog entry whose name or code occurs in
// a text. Entries are tried in the order they were given, so overlapping
// names ("Galaxy S23" and "Galaxy S23 Ultra") resolve to whichever comes first.
type DeviceMatcher struct {
	entries []catalogEntry
}

// NewDeviceMatcher builds a matcher over catalog, keeping its order.
func NewDeviceMatcher(catalog []*models.DeviceModel) *DeviceMatcher {
	entries := make([]catalogEntry, 0, len(catalog))
	for _, dm := range catalog {
		if dm == nil {
			continue
		}
		e := catalogEntry{
			name: strings.TrimSpace(dm.ModelName),
		}
		if dm.ModelCode != nil {
			e.code = strings.TrimSpace(*dm.ModelCode)
		}
		if dm.Category != nil && models.IsValidCategory(*dm.Category) {
			e.category = *dm.Category
		}
		e.nameLower = strings.ToLower(e.name)
		e.codeLower = strings.ToLower(e.code)
		if e.nameLower == "" && e.codeLower == "" {
			continue
		}
		entries = append(entries, e)
	}
	return &DeviceMatcher{entries: entries}
}

// Len returns the number of usable catalog entries.
func (m *DeviceMatcher) Len() int {
	return len(m.entries)
}

// Match returns the first catalog entry whose name or code is a
// case-insensitive substring of text.
func (m *DeviceMatcher) Match(text string) DeviceMatch {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return DeviceMatch{}
	}

	for _, e := range m.entries {
		if (e.nameLower != "" && strings.Contains(t, e.nameLower)) ||
			(e.codeLower != "" && strings.Contains(t, e.codeLower)) {
			return DeviceMatch{
				DeviceName: optional(e.name),
				DeviceCode: optional(e.code),
				Category:   optional(e.category),
			}
		}
	}
	return DeviceMatch{}
}

// MatchPart matches a part's code and description.
func (m *DeviceMatcher) MatchPart(p models.Part) DeviceMatch {
	return m.Match(p.MatchText())
}

// Annotate writes the match result onto the part and reports whether it changed.
func (m *DeviceMatcher) Annotate(p *models.Part) bool {
	match := m.MatchPart(*p)
	current := DeviceMatch{DeviceName: p.DeviceName, DeviceCode: p.DeviceCode, Category: p.Category}
	if current.Equal(match) {
		return false
	}
	p.DeviceName = match.DeviceName
	p.DeviceCode = match.DeviceCode
	p.Category = match.Category
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
