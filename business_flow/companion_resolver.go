package businessflow

import (
	"strings"

	"github.com/amirphl/parts-pricing/models"
)

// PartRole is the repair role a part plays, inferred from its text.
type PartRole string

const (
	PartRoleDisplay PartRole = "display"
	PartRoleBoard   PartRole = "board"
	PartRoleBattery PartRole = "battery"
	PartRoleCamera  PartRole = "camera"
)

type textPredicate func(text string) bool

func containsAll(terms ...string) textPredicate {
	return func(text string) bool {
		for _, t := range terms {
			if !strings.Contains(text, t) {
				return false
			}
		}
		return true
	}
}

func containsAny(terms ...string) textPredicate {
	return func(text string) bool {
		for _, t := range terms {
			if strings.Contains(text, t) {
				return true
			}
		}
		return false
	}
}

func containsNone(terms ...string) textPredicate {
	hasAny := containsAny(terms...)
	return func(text string) bool {
		return !hasAny(text)
	}
}

func allOf(preds ...textPredicate) textPredicate {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

type roleRule struct {
	role  PartRole
	match textPredicate
}

// partRoleRules classify a part. A part may take more than one role.
var partRoleRules = []roleRule{
	{role: PartRoleDisplay, match: allOf(containsAny("oled", "amoled"), containsNone("octa"))},
	{role: PartRoleBoard, match: containsAny("octa", "pba")},
	{role: PartRoleBattery, match: containsAny("battery", "batt")},
	{role: PartRoleCamera, match: containsAny("camera")},
}

// CompanionRule pairs the roles it applies to with the text test a
// companion must pass.
type CompanionRule struct {
	Name  string
	Roles []PartRole
	match textPredicate
}

func (r CompanionRule) appliesTo(roles map[PartRole]struct{}) bool {
	for _, role := range r.Roles {
		if _, ok := roles[role]; ok {
			return true
		}
	}
	return false
}

var (
	displayRoles    = []PartRole{PartRoleDisplay}
	nonDisplayRoles = []PartRole{PartRoleBoard, PartRoleBattery, PartRoleCamera}
)

// companionRules are evaluated in order; each slot yields at most one part.
var companionRules = []CompanionRule{
	{Name: "display_repair_kit", Roles: displayRoles, match: allOf(containsAll("repair", "kit"), containsAny("oled", "amoled"))},
	{Name: "back_cover_repair_kit", Roles: displayRoles, match: allOf(containsAll("repair", "kit"), containsAny("b/c", "bc", "back cover"))},
	{Name: "tape_double_face_ub", Roles: displayRoles, match: containsAll("tape double face-ub")},
	{Name: "tape_double_face_front", Roles: displayRoles, match: containsAll("tape double face-front side")},
	{Name: "as_repair_kit", Roles: displayRoles, match: containsAll("a/s repair kit")},

	{Name: "as_repair_kit_plain", Roles: nonDisplayRoles, match: allOf(
		containsAll("a/s", "repair kit"),
		containsNone("oled", "amoled", "svc", "b/c", "b-c", "back cover", "back-cover", "tape"),
	)},
	{Name: "as_repair_kit_svc", Roles: nonDisplayRoles, match: containsAll("a/s", "repair kit", "svc")},
	{Name: "as_repair_kit_back_cover", Roles: nonDisplayRoles, match: allOf(containsAll("a/s", "repair kit"), containsAny("b/c", "back cover"))},
	{Name: "as_svc_tape_back_cover", Roles: nonDisplayRoles, match: allOf(containsAll("a/s", "svc", "tape"), containsAny("back cover", "b/c"))},
}

// Companion is a part to co-select with a primary repair part.
type Companion struct {
	Part     *models.Part
	Quantity int
	Rule     string
}

func normalizedText(p models.Part) string {
	return strings.TrimSpace(strings.ToLower(p.MatchText()))
}

// ClassifyPart returns the roles of p in rule order.
func ClassifyPart(p models.Part) []PartRole {
	text := normalizedText(p)
	var roles []PartRole
	for _, r := range partRoleRules {
		if r.match(text) {
			roles = append(roles, r.role)
		}
	}
	return roles
}

// SameModel reports whether two parts were matched to the same device.
// Codes are compared when both parts carry one, otherwise names. Parts
// without a device match never share a model.
func SameModel(a, b models.Part) bool {
	ac, bc := trimmedLower(a.DeviceCode), trimmedLower(b.DeviceCode)
	if ac != "" && bc != "" {
		return ac == bc
	}
	an, bn := trimmedLower(a.DeviceName), trimmedLower(b.DeviceName)
	if an != "" && bn != "" {
		return an == bn
	}
	return false
}

func trimmedLower(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// ResolveCompanions returns the companion parts to add for selected. Each
// applicable rule contributes the first same-model part it accepts, unless
// that part is already selected or was added by an earlier rule.
func ResolveCompanions(selected models.Part, allParts []*models.Part, alreadySelected map[uint]struct{}) []Companion {
	roles := make(map[PartRole]struct{})
	for _, r := range ClassifyPart(selected) {
		roles[r] = struct{}{}
	}
	if len(roles) == 0 {
		return nil
	}

	candidates := make([]*models.Part, 0)
	texts := make([]string, 0)
	for _, p := range allParts {
		if p == nil || p.ID == selected.ID || !SameModel(selected, *p) {
			continue
		}
		candidates = append(candidates, p)
		texts = append(texts, normalizedText(*p))
	}
	if len(candidates) == 0 {
		return nil
	}

	added := make(map[uint]struct{})
	var out []Companion
	for _, rule := range companionRules {
		if !rule.appliesTo(roles) {
			continue
		}
		for i, p := range candidates {
			if !rule.match(texts[i]) {
				continue
			}
			_, selectedAlready := alreadySelected[p.ID]
			_, addedAlready := added[p.ID]
			if !selectedAlready && !addedAlready {
				added[p.ID] = struct{}{}
				out = append(out, Companion{Part: p, Quantity: 1, Rule: rule.Name})
			}
			break
		}
	}
	return out
}
