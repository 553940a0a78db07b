package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

var (
	stopNameKeys        = []string{"name", "title", "label", "place"}
	stopDescriptionKeys = []string{"description", "summary", "details", "notes"}
	coordinateKeyPairs  = [][2]string{{"lat", "lng"}, {"latitude", "longitude"}, {"lat", "lon"}}
	nestedCoordinateKey = []string{"coordinates", "geo", "coords", "location", "position"}
)

// NormalizeStop converts one raw stop into its canonical shape. position is the
// 1-based place of the stop in its source list and is used when the stop carries no
// usable order or day. ok is false when nothing about the stop can be salvaged.
func NormalizeStop(raw any, position int) (stop domain.Stop, ok bool) {
	if position < 1 {
		position = 1
	}

	raw = decodeEmbedded(raw)
	if s, isString := raw.(string); isString {
		name := cleanText(s)
		if name == "" {
			return domain.Stop{}, false
		}
		return domain.Stop{Order: position, Name: name}, true
	}

	m, isMap := asMap(raw)
	if !isMap {
		return domain.Stop{}, false
	}

	location := stopLocation(m)
	name := firstString(m, stopNameKeys...)
	description := firstString(m, stopDescriptionKeys...)
	coords := stopCoordinates(m)

	if name == "" && location == "" && description == "" && coords == nil {
		return domain.Stop{}, false
	}

	order := position
	if v, found := positiveInt(m["order"]); found {
		order = v
	} else if v, found := positiveInt(m["day"]); found {
		order = v
	}

	if name == "" {
		name = location
	}
	if name == "" {
		name = fmt.Sprintf("Stopp %d", order)
	}

	stop = domain.Stop{
		ID:          firstString(m, "id", "stop_id"),
		Order:       order,
		Name:        name,
		Description: description,
		Location:    strPtr(location),
		Coordinates: coords,
		CountryCode: countryCode(m),
		Codes:       stopCodes(m),
	}
	return stop, true
}

// NormalizeStops runs NormalizeStop over a raw list, drops what cannot be salvaged,
// sorts by order and makes orders strictly increasing and ids unique.
func NormalizeStops(raw any) []domain.Stop {
	stops, _ := normalizeIndexedStops(asSlice(raw))
	return stops
}

type indexedStop struct {
	raw  int
	stop domain.Stop
}

// normalizeIndexedStops also maps each kept raw index to its position in the
// sequenced result.
func normalizeIndexedStops(items []any) ([]domain.Stop, map[int]int) {
	entries := make([]indexedStop, 0, len(items))
	for i, item := range items {
		if stop, ok := NormalizeStop(item, i+1); ok {
			entries = append(entries, indexedStop{raw: i, stop: stop})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].stop.Order < entries[j].stop.Order
	})

	stops := make([]domain.Stop, len(entries))
	positions := make(map[int]int, len(entries))
	for i, e := range entries {
		stops[i] = e.stop
		positions[e.raw] = i
	}
	return sequenceStops(stops), positions
}

func sequenceStops(stops []domain.Stop) []domain.Stop {
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].Order < stops[j].Order
	})

	seen := make(map[string]struct{}, len(stops))
	for i := range stops {
		if i > 0 && stops[i].Order <= stops[i-1].Order {
			stops[i].Order = stops[i-1].Order + 1
		}
		id := strings.TrimSpace(stops[i].ID)
		if id == "" {
			id = fmt.Sprintf("stop-%d", stops[i].Order)
		}
		if _, dup := seen[id]; dup {
			id = fmt.Sprintf("%s-%d", id, stops[i].Order)
		}
		seen[id] = struct{}{}
		stops[i].ID = id
	}
	return stops
}

func stopLocation(m map[string]any) string {
	if loc, ok := asMap(m["location"]); ok {
		return firstString(loc, "name", "address", "city", "label")
	}
	return firstString(m, "location", "address", "city")
}

// stopCoordinates emits a pair only when both halves parse; half a pair is dropped.
func stopCoordinates(m map[string]any) *domain.Coordinates {
	if c := coordinatePair(m); c != nil {
		return c
	}
	for _, key := range nestedCoordinateKey {
		if nested, ok := asMap(m[key]); ok {
			if c := coordinatePair(nested); c != nil {
				return c
			}
		}
	}
	return nil
}

func coordinatePair(m map[string]any) *domain.Coordinates {
	for _, pair := range coordinateKeyPairs {
		lat, latOK := parseNumber(m[pair[0]])
		lng, lngOK := parseNumber(m[pair[1]])
		if !latOK || !lngOK {
			continue
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			continue
		}
		return &domain.Coordinates{Lat: lat, Lng: lng}
	}
	return nil
}

func countryCode(m map[string]any) *string {
	code := strings.ToUpper(firstString(m, "countryCode", "country_code", "cc"))
	if len(code) < 2 || len(code) > 3 {
		return nil
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return nil
		}
	}
	return &code
}

func stopCodes(m map[string]any) map[string]string {
	codes := make(map[string]string)
	if raw, ok := asMap(m["codes"]); ok {
		for k, v := range raw {
			if s := stringOf(v); s != "" && strings.TrimSpace(k) != "" {
				codes[strings.TrimSpace(k)] = strings.ToUpper(s)
			}
		}
	}
	if iata := firstString(m, "iata", "iata_code", "airport_code"); iata != "" {
		codes["iata"] = strings.ToUpper(iata)
	}
	if city := firstString(m, "city_code"); city != "" {
		codes["city"] = strings.ToUpper(city)
	}
	if len(codes) == 0 {
		return nil
	}
	return codes
}
