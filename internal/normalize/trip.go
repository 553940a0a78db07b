package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

const (
	DefaultTripTitle    = "Ny reise"
	DefaultNightlyPrice = 1200.0

	budgetPriceFactor = 0.75
)

// Options carries the caller-specific fallbacks for NormalizeTripStructure.
type Options struct {
	// FallbackTitle replaces a missing title, e.g. the episode name.
	FallbackTitle       string
	FallbackDescription string
	// NightlyBudget comes from the traveller profile when known.
	NightlyBudget       *float64
	DefaultNightlyPrice float64
	// Partial decodes without filling gaps: no title fallback, no synthesized hotels
	// or experiences, and an absent packing list stays empty. Used for user input
	// that is merged with a canonical trip before the final pass.
	Partial bool
}

func (o Options) nightlyBase() float64 {
	if o.NightlyBudget != nil && *o.NightlyBudget > 0 {
		return *o.NightlyBudget
	}
	if o.DefaultNightlyPrice > 0 {
		return o.DefaultNightlyPrice
	}
	return DefaultNightlyPrice
}

type stopRef struct {
	order    int
	location string
}

// NormalizeTripStructure turns one raw trip payload into the canonical trip shape.
// raw may be model text, JSON bytes or a decoded object, optionally nested under a
// "trip" key. Malformed input yields a minimal trip instead of an error. Provenance
// fields and ids are left for the caller to set.
func NormalizeTripStructure(raw any, opts Options) domain.Trip {
	payload, ok := decodePayload(raw)
	if !ok {
		payload = map[string]any{}
	}

	title := firstString(payload, "title", "name")
	if title == "" {
		title = cleanText(opts.FallbackTitle)
	}
	if title == "" && !opts.Partial {
		title = DefaultTripTitle
	}
	description := firstString(payload, "description", "summary")
	if description == "" {
		description = cleanText(opts.FallbackDescription)
	}

	rawStops := asSlice(payload["stops"])
	if rawStops == nil {
		rawStops = asSlice(payload["itinerary"])
	}
	stops, positions := normalizeIndexedStops(rawStops)

	hotels := make([]domain.Hotel, 0)
	experiences := make([]domain.Experience, 0)
	hotels = appendHotels(hotels, payload["hotels"], stopRef{})
	experiences = appendExperiences(experiences, firstPresent(payload, "experiences", "activities"), stopRef{})
	for i, entry := range rawStops {
		m, isMap := asMap(entry)
		if !isMap {
			continue
		}
		ref := stopRef{}
		if pos, kept := positions[i]; kept {
			ref = stopRef{order: stops[pos].Order, location: stopPlace(stops[pos])}
		}
		hotels = appendHotels(hotels, firstPresent(m, "hotels", "hotel"), ref)
		experiences = appendExperiences(experiences, firstPresent(m, "experiences", "activities"), ref)
	}
	hotels = dedupeHotels(hotels)
	experiences = dedupeExperiences(experiences)

	if len(stops) > 0 && !opts.Partial {
		if len(hotels) == 0 {
			hotels = fallbackHotels(stops[0], opts.nightlyBase())
		}
		if len(experiences) == 0 {
			experiences = fallbackExperiences(stops[0])
		}
	}

	trip := domain.Trip{
		Title:       title,
		Description: strPtr(description),
		Stops:       stops,
		Hotels:      hotels,
		Experiences: experiences,
		Gallery:     normalizeGallery(firstPresent(payload, "gallery", "images")),
	}
	rawPacking := firstPresent(payload, "packing_list", "packingList", "packing")
	if rawPacking == nil && opts.Partial {
		trip.PackingList = domain.TripPackingList{}
		return trip
	}
	trip.PackingList = ClassifyPacking(rawPacking, ContextText(trip))
	return trip
}

// NormalizeTrip runs a typed trip back through NormalizeTripStructure, keeping its
// identity, ownership and provenance. Stored trips pass through unchanged apart
// from sanitizing.
func NormalizeTrip(trip domain.Trip, opts Options) domain.Trip {
	data, err := json.Marshal(trip)
	if err != nil {
		return trip
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return trip
	}
	out := NormalizeTripStructure(payload, opts)
	out.ID = trip.ID
	out.UserID = trip.UserID
	out.SourceType = trip.SourceType
	out.SourceEpisodeID = trip.SourceEpisodeID
	out.EpisodeURL = trip.EpisodeURL
	out.CreatedAt = trip.CreatedAt
	out.UpdatedAt = trip.UpdatedAt
	return out
}

// ContextText is the free text packing heuristics look at.
func ContextText(trip domain.Trip) string {
	parts := []string{trip.Title}
	if trip.Description != nil {
		parts = append(parts, *trip.Description)
	}
	for _, stop := range trip.Stops {
		parts = append(parts, stop.Name, stop.Description)
		if stop.Location != nil {
			parts = append(parts, *stop.Location)
		}
	}
	return joinNonEmpty(parts...)
}

// ResolveHotelLinks re-resolves every hotel URL, for records read back from storage.
func ResolveHotelLinks(hotels []domain.Hotel) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(hotels))
	for _, h := range hotels {
		link, ok := ResolveHotelURL(LinkSource{Name: h.Name, Location: h.Location, Candidates: []string{h.URL}})
		if !ok {
			continue
		}
		h.URL = link
		out = append(out, h)
	}
	return out
}

func ResolveExperienceLinks(experiences []domain.Experience) []domain.Experience {
	out := make([]domain.Experience, 0, len(experiences))
	for _, e := range experiences {
		link, ok := ResolveExperienceURL(LinkSource{Name: e.Name, Location: e.Location, Candidates: []string{e.URL}})
		if !ok {
			continue
		}
		e.URL = link
		out = append(out, e)
	}
	return out
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stopPlace(stop domain.Stop) string {
	if stop.Location != nil && *stop.Location != "" {
		return *stop.Location
	}
	return stop.Name
}

// listOrSingle accepts an array of records or a single record.
func listOrSingle(v any) []any {
	if items := asSlice(v); items != nil {
		return items
	}
	if m, ok := asMap(v); ok {
		return []any{m}
	}
	return nil
}

func appendHotels(dst []domain.Hotel, raw any, ref stopRef) []domain.Hotel {
	for _, entry := range listOrSingle(raw) {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		name := firstString(m, "name", "title", "hotel_name")
		if name == "" {
			continue
		}
		location := firstString(m, "location", "address", "city", "area")
		if location == "" {
			location = ref.location
		}
		link, _ := ResolveHotelURL(linkSourceFromRaw(m, name, location))
		dst = append(dst, domain.Hotel{
			Name:          name,
			Location:      location,
			Description:   firstString(m, "description", "summary"),
			PricePerNight: positiveFloat(firstPresent(m, "price_per_night", "pricePerNight", "nightly_price", "price")),
			Currency:      currencyOf(m),
			URL:           link,
		})
	}
	return dst
}

func appendExperiences(dst []domain.Experience, raw any, ref stopRef) []domain.Experience {
	for _, entry := range listOrSingle(raw) {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		name := firstString(m, "name", "title", "activity")
		if name == "" {
			continue
		}
		location := firstString(m, "location", "address", "city", "venue")
		if location == "" {
			location = ref.location
		}
		var day *int
		if d, found := positiveInt(firstPresent(m, "day", "order")); found {
			day = &d
		} else if ref.order > 0 {
			d := ref.order
			day = &d
		}
		link, _ := ResolveExperienceURL(linkSourceFromRaw(m, name, location))
		dst = append(dst, domain.Experience{
			Name:           name,
			Location:       location,
			Description:    firstString(m, "description", "summary"),
			URL:            link,
			Day:            day,
			PricePerPerson: positiveFloat(firstPresent(m, "price_per_person", "pricePerPerson", "price")),
			Currency:       currencyOf(m),
		})
	}
	return dst
}

func currencyOf(m map[string]any) string {
	c := strings.ToUpper(firstString(m, "currency"))
	if len(c) != 3 {
		return domain.DefaultCurrency
	}
	return c
}

func dedupeHotels(hotels []domain.Hotel) []domain.Hotel {
	seen := make(map[string]struct{}, len(hotels))
	out := hotels[:0]
	for _, h := range hotels {
		key := foldKey(h.Name) + "|" + foldKey(h.Location)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// dedupeExperiences keys on (name, location, day), case-insensitively.
func dedupeExperiences(experiences []domain.Experience) []domain.Experience {
	seen := make(map[string]struct{}, len(experiences))
	out := experiences[:0]
	for _, e := range experiences {
		day := 0
		if e.Day != nil {
			day = *e.Day
		}
		key := foldKey(e.Name) + "|" + foldKey(e.Location) + "|" + stringOf(day)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func fallbackHotels(first domain.Stop, base float64) []domain.Hotel {
	place := stopPlace(first)
	budget := math.Round(base * budgetPriceFactor)
	central := math.Round(base)
	candidates := []domain.Hotel{
		{
			Name:          "Budsjetthotell i " + place,
			Location:      place,
			Description:   "Rimelig overnatting med enkel standard.",
			PricePerNight: &budget,
		},
		{
			Name:          "Sentralt hotell i " + place,
			Location:      place,
			Description:   "Hotell i gangavstand til sentrum.",
			PricePerNight: &central,
		},
	}
	for i := range candidates {
		candidates[i].Currency = domain.DefaultCurrency
		candidates[i].URL, _ = ResolveHotelURL(LinkSource{Name: candidates[i].Name, Location: place})
	}
	return candidates
}

func fallbackExperiences(first domain.Stop) []domain.Experience {
	place := stopPlace(first)
	candidates := []domain.Experience{
		{Name: "Guidet byvandring i " + place, Description: "Bli kjent med byen sammen med en lokal guide."},
		{Name: "Museumsbesøk i " + place, Description: "Utforsk historien og kulturen på et lokalt museum."},
	}
	for i := range candidates {
		day := first.Order
		candidates[i].Location = place
		candidates[i].Day = &day
		candidates[i].Currency = domain.DefaultCurrency
		candidates[i].URL, _ = ResolveExperienceURL(LinkSource{Name: candidates[i].Name, Location: place})
	}
	return candidates
}

func normalizeGallery(raw any) []domain.GalleryImage {
	out := make([]domain.GalleryImage, 0)
	seen := make(map[string]struct{})
	for _, entry := range listOrSingle(raw) {
		var img domain.GalleryImage
		switch t := entry.(type) {
		case string:
			img.URL = t
		case map[string]any:
			img = domain.GalleryImage{
				URL:     firstString(t, "url", "image_url", "src"),
				Caption: strPtr(firstString(t, "caption", "alt", "title")),
				Credit:  strPtr(firstString(t, "credit", "photographer")),
			}
		default:
			continue
		}
		link, ok := SanitizeURL(img.URL)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		img.URL = link
		out = append(out, img)
	}
	return out
}
