package normalize

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

const (
	packingMinItems = 3
	packingMaxItems = 10
)

type PackingKind int

const (
	PackingFlat PackingKind = iota
	PackingGrouped
)

type PackingGroup struct {
	Category string
	Items    []string
}

// PackingInput is the single shape every packing list is coerced into before
// classification. Items is set for PackingFlat, Groups for PackingGrouped.
type PackingInput struct {
	Kind   PackingKind
	Items  []string
	Groups []PackingGroup
}

var (
	leadingMarker  = regexp.MustCompile(`^(?:[-*•·–—▪◦>]+|\d+[.)]|\(\d+\))\s*`)
	trailingPunct  = regexp.MustCompile(`[\s.,;:!?]+$`)
	itemSeparators = regexp.MustCompile(`[,\n\r;]+`)

	noiseItems = map[string]struct{}{
		"osv":     {},
		"diverse": {},
		"annet":   {},
		"ting":    {},
		"greier":  {},
	}

	categoryAliases = map[string]string{
		"klær":         domain.PackingClothing,
		"klaer":        domain.PackingClothing,
		"clothes":      domain.PackingClothing,
		"clothing":     domain.PackingClothing,
		"toalettsaker": domain.PackingToiletries,
		"toiletries":   domain.PackingToiletries,
		"elektronikk":  domain.PackingElectronics,
		"electronics":  domain.PackingElectronics,
		"annet":        domain.PackingOther,
		"other":        domain.PackingOther,
	}
)

// CoercePacking detects the shape of a raw packing list once, at the boundary.
func CoercePacking(raw any) PackingInput {
	switch v := raw.(type) {
	case nil:
		return PackingInput{Kind: PackingFlat}
	case domain.TripPackingList:
		return CoercePacking([]domain.PackingCategory(v))
	case []domain.PackingCategory:
		groups := make([]PackingGroup, 0, len(v))
		for _, cat := range v {
			groups = append(groups, PackingGroup{Category: cat.Category, Items: splitAll(cat.Items)})
		}
		return PackingInput{Kind: PackingGrouped, Groups: groups}
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, `"`) {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return CoercePacking(decoded)
			}
		}
		return PackingInput{Kind: PackingFlat, Items: splitItems(trimmed)}
	case []string:
		return PackingInput{Kind: PackingFlat, Items: splitAll(v)}
	case map[string]any:
		return coercePackingMap(v)
	}

	items := asSlice(raw)
	if items == nil {
		return PackingInput{Kind: PackingFlat}
	}

	var flat []string
	var groups []PackingGroup
	for _, item := range items {
		switch t := item.(type) {
		case string:
			flat = append(flat, splitItems(t)...)
		case map[string]any:
			if _, hasItems := t["items"]; hasItems {
				groups = append(groups, PackingGroup{
					Category: firstString(t, "category", "name", "title"),
					Items:    packingItems(t["items"]),
				})
				continue
			}
			if name := firstString(t, "item", "name", "title"); name != "" {
				flat = append(flat, splitItems(name)...)
			}
		}
	}
	if len(groups) == 0 {
		return PackingInput{Kind: PackingFlat, Items: flat}
	}
	if len(flat) > 0 {
		groups = append(groups, PackingGroup{Items: flat})
	}
	return PackingInput{Kind: PackingGrouped, Groups: groups}
}

func coercePackingMap(m map[string]any) PackingInput {
	if _, hasItems := m["items"]; hasItems {
		return PackingInput{Kind: PackingGrouped, Groups: []PackingGroup{{
			Category: firstString(m, "category", "name", "title"),
			Items:    packingItems(m["items"]),
		}}}
	}
	for _, key := range []string{"packing_list", "packingList", "categories"} {
		if inner, ok := m[key]; ok {
			return CoercePacking(inner)
		}
	}

	// keep category order stable: canonical categories first, then the rest sorted
	keys := lo.Keys(m)
	ordered := make([]string, 0, len(keys))
	for _, cat := range domain.PackingCategoryOrder {
		for _, k := range keys {
			if canonicalCategory(k) == cat {
				ordered = append(ordered, k)
			}
		}
	}
	rest := lo.Filter(keys, func(k string, _ int) bool { return canonicalCategory(k) == "" })
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	groups := make([]PackingGroup, 0, len(ordered))
	for _, k := range ordered {
		groups = append(groups, PackingGroup{Category: k, Items: packingItems(m[k])})
	}
	return PackingInput{Kind: PackingGrouped, Groups: groups}
}

func packingItems(v any) []string {
	if s, ok := v.(string); ok {
		return splitItems(s)
	}
	var out []string
	for _, item := range asSlice(v) {
		switch t := item.(type) {
		case string:
			out = append(out, splitItems(t)...)
		case map[string]any:
			out = append(out, splitItems(firstString(t, "item", "name", "title"))...)
		}
	}
	return out
}

func splitItems(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return lo.Filter(itemSeparators.Split(s, -1), func(p string, _ int) bool {
		return strings.TrimSpace(p) != ""
	})
}

func splitAll(items []string) []string {
	return lo.FlatMap(items, func(s string, _ int) []string { return splitItems(s) })
}

// cleanItem strips list markers and trailing punctuation. Running it twice gives
// the same result as running it once.
func cleanItem(s string) string {
	s = cleanText(s)
	for {
		next := strings.Trim(leadingMarker.ReplaceAllString(s, ""), `"' `)
		next = trailingPunct.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

func isNoise(item string) bool {
	if utf8.RuneCountInString(item) < 2 {
		return true
	}
	_, noisy := noiseItems[foldKey(item)]
	return noisy
}

func canonicalCategory(name string) string {
	return categoryAliases[foldKey(name)]
}

// ClassifyPacking maps any packing list representation onto the four fixed
// categories. A list already grouped by those four keeps its grouping and only has
// its items cleaned, so the output can be fed back in unchanged.
func ClassifyPacking(raw any, contextText string) []domain.PackingCategory {
	input := CoercePacking(raw)
	flags := DetectContext(contextText)
	buckets := make(map[string][]string, len(domain.PackingCategoryOrder))
	seen := make(map[string]struct{})

	if input.Kind == PackingGrouped && allCanonical(input.Groups) {
		local := make(map[string]map[string]struct{}, len(domain.PackingCategoryOrder))
		for _, group := range input.Groups {
			cat := canonicalCategory(group.Category)
			if local[cat] == nil {
				local[cat] = make(map[string]struct{})
			}
			for _, entry := range group.Items {
				item := cleanItem(entry)
				if isNoise(item) {
					continue
				}
				key := foldKey(item)
				if _, dup := local[cat][key]; dup {
					continue
				}
				local[cat][key] = struct{}{}
				seen[key] = struct{}{}
				buckets[cat] = append(buckets[cat], item)
			}
		}
	} else {
		for _, entry := range flattenPacking(input) {
			item := cleanItem(entry)
			if isNoise(item) {
				continue
			}
			key := foldKey(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			cat := classifyItem(item, flags)
			buckets[cat] = append(buckets[cat], item)
		}
	}

	out := make([]domain.PackingCategory, 0, len(domain.PackingCategoryOrder))
	for _, cat := range domain.PackingCategoryOrder {
		items := padCategory(buckets[cat], packingFillers(cat, flags), seen)
		if len(items) > packingMaxItems {
			items = items[:packingMaxItems]
		}
		out = append(out, domain.PackingCategory{Category: cat, Items: items})
	}
	return out
}

func allCanonical(groups []PackingGroup) bool {
	if len(groups) == 0 {
		return false
	}
	for _, g := range groups {
		if canonicalCategory(g.Category) == "" {
			return false
		}
	}
	return true
}

func flattenPacking(input PackingInput) []string {
	if input.Kind == PackingFlat {
		return input.Items
	}
	return lo.FlatMap(input.Groups, func(g PackingGroup, _ int) []string { return g.Items })
}

// padCategory tops a category up to the minimum. Fillers already present anywhere
// in the list are skipped first; if that leaves the category short, fillers only
// present in other categories are allowed.
func padCategory(items, fillers []string, seen map[string]struct{}) []string {
	if len(items) >= packingMinItems {
		return items
	}
	out := append([]string(nil), items...)
	local := make(map[string]struct{}, len(out))
	for _, item := range out {
		local[foldKey(item)] = struct{}{}
	}

	for _, global := range []bool{true, false} {
		for _, filler := range fillers {
			if len(out) >= packingMinItems {
				return out
			}
			key := foldKey(filler)
			if _, dup := local[key]; dup {
				continue
			}
			if _, dup := seen[key]; dup && global {
				continue
			}
			local[key] = struct{}{}
			seen[key] = struct{}{}
			out = append(out, filler)
		}
	}
	return out
}
