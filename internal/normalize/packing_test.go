package normalize

import (
	"reflect"
	"strings"
	"testing"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

func categoryItems(list []domain.PackingCategory, category string) []string {
	for _, c := range list {
		if c.Category == category {
			return c.Items
		}
	}
	return nil
}

func containsFold(items []string, want string) bool {
	for _, item := range items {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}

func assertPackingShape(t *testing.T, list []domain.PackingCategory) {
	t.Helper()
	if len(list) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(list))
	}
	for i, cat := range list {
		if cat.Category != domain.PackingCategoryOrder[i] {
			t.Fatalf("category %d: expected %q, got %q", i, domain.PackingCategoryOrder[i], cat.Category)
		}
		if len(cat.Items) < 3 || len(cat.Items) > 10 {
			t.Fatalf("category %q has %d items: %v", cat.Category, len(cat.Items), cat.Items)
		}
		seen := map[string]struct{}{}
		for _, item := range cat.Items {
			if strings.TrimSpace(item) == "" {
				t.Fatalf("category %q has a blank item", cat.Category)
			}
			key := strings.ToLower(item)
			if _, dup := seen[key]; dup {
				t.Fatalf("category %q has duplicate item %q", cat.Category, item)
			}
			seen[key] = struct{}{}
		}
	}
}

func TestClassifyPacking_BeachContextMovesSwimwearToClothing(t *testing.T) {
	out := ClassifyPacking("Pass, Sjampo, Lader, badetøy", "strandferie i Thailand, varmt")
	assertPackingShape(t, out)

	if !containsFold(categoryItems(out, domain.PackingClothing), "badetøy") {
		t.Fatalf("expected badetøy in Klær, got %v", out)
	}
	if containsFold(categoryItems(out, domain.PackingOther), "badetøy") {
		t.Fatalf("did not expect badetøy in Annet")
	}
	if !containsFold(categoryItems(out, domain.PackingToiletries), "Sjampo") {
		t.Fatalf("expected Sjampo in Toalettsaker, got %v", out)
	}
	if !containsFold(categoryItems(out, domain.PackingElectronics), "Lader") {
		t.Fatalf("expected Lader in Elektronikk, got %v", out)
	}
	if !containsFold(categoryItems(out, domain.PackingOther), "Pass") {
		t.Fatalf("expected Pass in Annet, got %v", out)
	}
}

func TestClassifyPacking_SwimwearWithoutBeachContextIsOther(t *testing.T) {
	out := ClassifyPacking([]string{"bikini"}, "bytur til Praha")
	if !containsFold(categoryItems(out, domain.PackingOther), "bikini") {
		t.Fatalf("expected bikini in Annet, got %v", out)
	}
}

func TestClassifyPacking_CardinalityForAnyInput(t *testing.T) {
	long := make([]string, 0, 15)
	for _, item := range []string{
		"T-skjorte", "Genser", "Jakke", "Bukse", "Shorts", "Sokker", "Undertøy", "Kjole",
		"Skjerf", "Lue", "Hansker", "Sandaler", "Støvler", "Fleece", "Pysjamas",
	} {
		long = append(long, item)
	}

	inputs := map[string]any{
		"nil":            nil,
		"empty string":   "",
		"prose":          "Sorry, I can't help with that.",
		"number":         42,
		"empty slice":    []string{},
		"json string":    `["Pass", "Tannbørste", "Kamera"]`,
		"bulleted":       "- Pass\n- Lader.\n2) Solkrem;\n• Regnjakke!",
		"keyed map":      map[string]any{"Klær": []any{"Jakke"}, "Tech": "Lader, Kabel"},
		"wrapped map":    map[string]any{"packing_list": []any{map[string]any{"category": "Klær", "items": []any{"Sokker"}}}},
		"mixed array":    []any{"Pass", map[string]any{"category": "Bad", "items": "Bikini, Solkrem"}, map[string]any{"name": "Hodelykt"}},
		"only noise":     []string{"osv", "a", "Diverse", "ting"},
		"too many items": long,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			assertPackingShape(t, ClassifyPacking(input, "fjelltur i regnvær"))
		})
	}
}

func TestClassifyPacking_CapsCategoryAtTen(t *testing.T) {
	items := []string{
		"T-skjorte", "Genser", "Jakke", "Bukse", "Shorts", "Sokker", "Undertøy", "Kjole",
		"Skjerf", "Lue", "Hansker", "Sandaler",
	}
	out := ClassifyPacking(items, "")
	clothing := categoryItems(out, domain.PackingClothing)
	if len(clothing) != 10 {
		t.Fatalf("expected 10 clothing items, got %d", len(clothing))
	}
	if clothing[0] != "T-skjorte" || clothing[9] != "Lue" {
		t.Fatalf("expected first-seen order to be kept, got %v", clothing)
	}
}

func TestClassifyPacking_DropsNoiseAndDuplicates(t *testing.T) {
	out := ClassifyPacking("Pass, pass, PASS, osv, x, diverse", "")
	other := categoryItems(out, domain.PackingOther)
	count := 0
	for _, item := range other {
		if strings.EqualFold(item, "pass") {
			count++
		}
		if strings.EqualFold(item, "osv") || strings.EqualFold(item, "diverse") || item == "x" {
			t.Fatalf("noise item %q survived", item)
		}
	}
	if count != 1 {
		t.Fatalf("expected one Pass, got %d in %v", count, other)
	}
}

func TestClassifyPacking_RainyContextPrefersRainJacket(t *testing.T) {
	out := ClassifyPacking(nil, "Regnfull uke i Bergen")
	clothing := categoryItems(out, domain.PackingClothing)
	if clothing[0] != "Regnjakke" {
		t.Fatalf("expected Regnjakke first, got %v", clothing)
	}
}

func TestClassifyPacking_Idempotent(t *testing.T) {
	inputs := []any{
		"Pass, Sjampo, Lader, badetøy, 1) Regnjakke., - Sokker",
		nil,
		map[string]any{"Klær": "Jakke, Jakke", "Annet": []any{"Billetter"}},
		[]any{map[string]any{"category": "clothes", "items": []any{"Sokker", "Lue"}}, map[string]any{"category": "toiletries", "items": "Tannbørste"}},
	}
	ctx := "strandferie i Thailand, varmt"
	for i, input := range inputs {
		first := ClassifyPacking(input, ctx)
		second := ClassifyPacking(first, ctx)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("input %d: second pass changed output\nfirst:  %v\nsecond: %v", i, first, second)
		}
	}
}

func TestClassifyPacking_CanonicalGroupsArePassedThrough(t *testing.T) {
	input := []domain.PackingCategory{
		{Category: domain.PackingClothing, Items: []string{"Bikini", "Lader", "Sokker"}},
		{Category: domain.PackingToiletries, Items: []string{"Tannbørste", "Deodorant", "Sjampo"}},
		{Category: domain.PackingElectronics, Items: []string{"Kamera", "Mobillader", "Powerbank"}},
		{Category: domain.PackingOther, Items: []string{"Pass", "Bankkort", "Reiseforsikring"}},
	}
	out := ClassifyPacking(input, "")
	if !reflect.DeepEqual(out, input) {
		t.Fatalf("expected grouping to be kept, got %v", out)
	}
}

func TestCoercePacking_Shapes(t *testing.T) {
	cases := []struct {
		name  string
		input any
		kind  PackingKind
		count int
	}{
		{"flat string", "a, b\nc", PackingFlat, 3},
		{"json array string", `["a","b"]`, PackingFlat, 2},
		{"grouped array", []any{map[string]any{"category": "Klær", "items": []any{"a"}}}, PackingGrouped, 1},
		{"keyed map", map[string]any{"Annet": "x", "Klær": []any{"y"}}, PackingGrouped, 2},
		{"nil", nil, PackingFlat, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CoercePacking(tc.input)
			if got.Kind != tc.kind {
				t.Fatalf("expected kind %v, got %v", tc.kind, got.Kind)
			}
			n := len(got.Items)
			if got.Kind == PackingGrouped {
				n = len(got.Groups)
			}
			if n != tc.count {
				t.Fatalf("expected %d entries, got %d (%+v)", tc.count, n, got)
			}
		})
	}

	keyed := CoercePacking(map[string]any{"Zzz": "x", "Annet": "y", "Klær": "z"})
	if keyed.Groups[0].Category != "Klær" || keyed.Groups[1].Category != "Annet" || keyed.Groups[2].Category != "Zzz" {
		t.Fatalf("unexpected group order: %+v", keyed.Groups)
	}
}

func TestCleanItem(t *testing.T) {
	cases := map[string]string{
		"- Pass":          "Pass",
		"1. Lader!":       "Lader",
		"(2) Solkrem.":    "Solkrem",
		"• \"Regnjakke\"": "Regnjakke",
		"  T-skjorte  ":   "T-skjorte",
	}
	for in, want := range cases {
		if got := cleanItem(in); got != want {
			t.Fatalf("cleanItem(%q) = %q, want %q", in, got, want)
		}
		if again := cleanItem(want); again != want {
			t.Fatalf("cleanItem not idempotent for %q: %q", want, again)
		}
	}
}

func TestDetectContext(t *testing.T) {
	flags := DetectContext("Hotellopphold i Oslo")
	if flags.Hot || flags.Beach {
		t.Fatalf("hotel mention should not set hot/beach flags: %+v", flags)
	}
	flags = DetectContext("Vinterferie med ski og nordlys")
	if !flags.Cold {
		t.Fatalf("expected cold flag: %+v", flags)
	}
}

func TestClassifyPacking_ShortKeywordsNeedWordTail(t *testing.T) {
	out := ClassifyPacking([]string{"Cardigan", "Leketøy til barna", "Adresseliste", "Reisepass", "Regnjakke", "Credit card"}, "")
	clothing := categoryItems(out, domain.PackingClothing)
	other := categoryItems(out, domain.PackingOther)

	if !containsFold(clothing, "Cardigan") {
		t.Fatalf("expected Cardigan in Klær, got %v", out)
	}
	for _, item := range []string{"Leketøy til barna", "Adresseliste"} {
		if containsFold(clothing, item) {
			t.Fatalf("did not expect %q in Klær: %v", item, clothing)
		}
	}
	for _, item := range []string{"Reisepass", "Credit card"} {
		if !containsFold(other, item) {
			t.Fatalf("expected %q in Annet, got %v", item, other)
		}
	}
	if !containsFold(clothing, "Regnjakke") {
		t.Fatalf("expected compound Regnjakke in Klær, got %v", clothing)
	}
}
