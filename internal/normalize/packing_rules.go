package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

// ContextFlags are coarse trip traits derived from free text.
type ContextFlags struct {
	Beach bool
	Hike  bool
	Rainy bool
	Cold  bool
	Hot   bool
}

var (
	beachPattern = regexp.MustCompile(`(?i)strand|beach|bade|snorkl|dykk|surf|kyst|riviera|karibi|bali|phuket|maldiv`)
	hikePattern  = regexp.MustCompile(`(?i)fjell|hike|hiking|fottur|topptur|trek|vandr|mountain|nasjonalpark|national park|camino`)
	rainyPattern = regexp.MustCompile(`(?i)regn|rain|monsun|monsoon|bergen|skottland|scotland|irland|ireland`)
	coldPattern  = regexp.MustCompile(`(?i)kald|cold|vinter|winter|snø|snow|\bski|arktis|arctic|nordlys|svalbard|lapland|iceland|frost`)
	hotPattern   = regexp.MustCompile(`(?i)varm|\bhot\b|tropisk|tropic|heat|hete|ørken|desert|sommer|summer|thailand|karibi|dubai|egypt|mexico`)
)

func DetectContext(text string) ContextFlags {
	return ContextFlags{
		Beach: beachPattern.MatchString(text),
		Hike:  hikePattern.MatchString(text),
		Rainy: rainyPattern.MatchString(text),
		Cold:  coldPattern.MatchString(text),
		Hot:   hotPattern.MatchString(text),
	}
}

type keywordRule struct {
	category string
	keywords []string
}

var (
	documentKeywords = []string{
		"pass", "visum", "visa", "forsikring", "insurance", "kontant", "cash", "bankkort",
		"kredittkort", "card", "lommebok", "wallet", "billett", "ticket", "førerkort",
		"id-kort", "valuta", "penger", "dokument",
	}
	electronicsKeywords = []string{
		"lader", "charger", "kabel", "kabler", "cable", "powerbank", "power bank", "mobil", "telefon",
		"phone", "kamera", "camera", "hodetelefon", "headphone", "øreplugg", "earbud",
		"laptop", "nettbrett", "tablet", "adapter", "lesebrett", "kindle", "usb", "gopro",
		"drone", "smartklokke",
	}
	toiletryKeywords = []string{
		"tannbørste", "toothbrush", "tannkrem", "toothpaste", "tanntråd", "deodorant",
		"sjampo", "shampoo", "balsam", "såpe", "soap", "solkrem", "sunscreen", "solfaktor",
		"aftersun", "medisin", "medication", "førstehjelp", "first aid", "plaster",
		"krem", "barberhøvel", "razor", "sminke", "makeup", "hårbørste", "leppepomade",
		"myggspray", "toalett", "hygiene", "tampong", "kontaktlinse", "parfyme",
		"håndsprit", "våtservietter",
	}
	swimwearKeywords = []string{
		"badetøy", "bikini", "badebukse", "badedrakt", "swimsuit", "swimwear", "swim",
	}
	clothingKeywords = []string{
		"skjorte", "shirt", "genser", "sweater", "hoodie", "jakke", "jacket", "bukse",
		"pants", "trousers", "shorts", "sko", "shoes", "sandal", "støvler", "boots",
		"undertøy", "underwear", "sokker", "socks", "kjole", "dress", "skjørt", "lue",
		"votter", "hansker", "gloves", "skjerf", "scarf", "regntøy", "sovetøy", "ulltøy", "turtøy", "klær", "clothes",
		"cardigan", "fleece", "tights", "pysjamas", "belte", "caps",
	}
	gearKeywords = []string{
		"sekk", "backpack", "vannflaske", "water bottle", "flaske", "hodelykt", "headlamp",
		"telt", "tent", "sovepose", "sleeping bag", "paraply", "umbrella", "håndkle",
		"towel", "solbriller", "sunglasses", "nakkepute", "lås", "kompass", "kart", "termos",
	}

	// checked top to bottom; swimwear is handled between toiletries and clothing
	leadingRules = []keywordRule{
		{domain.PackingOther, documentKeywords},
		{domain.PackingElectronics, electronicsKeywords},
		{domain.PackingToiletries, toiletryKeywords},
	}
	trailingRules = []keywordRule{
		{domain.PackingClothing, clothingKeywords},
		{domain.PackingOther, gearKeywords},
	}
)

func classifyItem(item string, flags ContextFlags) string {
	lower := foldKey(item)
	for _, rule := range leadingRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	if containsAny(lower, swimwearKeywords) {
		if flags.Beach || flags.Hot {
			return domain.PackingClothing
		}
		return domain.PackingOther
	}
	for _, rule := range trailingRules {
		if containsAny(lower, rule.keywords) {
			return rule.category
		}
	}
	return domain.PackingOther
}

// Keywords up to this length only match a whole word or the tail of a compound
// ("Reisepass", "Regnjakke"), never the head or middle of a longer word.
const shortKeywordRunes = 5

func containsAny(s string, keywords []string) bool {
	var words []string
	for _, kw := range keywords {
		if utf8.RuneCountInString(kw) > shortKeywordRunes {
			if strings.Contains(s, kw) {
				return true
			}
			continue
		}
		if words == nil {
			words = strings.FieldsFunc(s, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
		}
		for _, w := range words {
			if strings.HasSuffix(w, kw) {
				return true
			}
		}
	}
	return false
}

// packingFillers lists the default items for a category, most trip-specific first.
func packingFillers(category string, flags ContextFlags) []string {
	var pool []string
	add := func(cond bool, items ...string) {
		if cond {
			pool = append(pool, items...)
		}
	}

	switch category {
	case domain.PackingClothing:
		add(flags.Rainy, "Regnjakke")
		add(flags.Cold, "Varm jakke", "Lue og votter", "Ullundertøy")
		add(flags.Hike, "Tursko", "Turbukse")
		add(flags.Beach, "Badetøy", "Sandaler")
		add(flags.Hot, "Lette klær", "Solhatt")
		add(true, "Undertøy", "Sokker", "T-skjorter", "Bukser eller shorts", "Komfortable sko", "Genser", "Sovetøy")
	case domain.PackingToiletries:
		add(flags.Beach || flags.Hot, "Solkrem", "Aftersun")
		add(flags.Hike, "Gnagsårplaster", "Myggspray")
		add(flags.Cold, "Leppepomade", "Fuktighetskrem")
		add(true, "Tannbørste", "Tannkrem", "Deodorant", "Sjampo", "Reseptbelagte medisiner", "Plaster")
	case domain.PackingElectronics:
		add(flags.Beach, "Vanntett mobiletui")
		add(true, "Mobillader", "Powerbank", "Reiseadapter", "Hodetelefoner", "Ladekabler")
	default:
		add(flags.Rainy, "Paraply")
		add(flags.Hike, "Vannflaske", "Hodelykt")
		add(flags.Beach, "Strandhåndkle", "Solbriller")
		add(flags.Hot, "Solbriller")
		add(flags.Cold, "Termos")
		add(true, "Pass", "Reiseforsikring", "Bankkort", "Kontanter i lokal valuta", "Dagstursekk")
	}
	return lo.Uniq(pool)
}
