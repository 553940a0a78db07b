package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TripSourceType string

const (
	TripSourceEpisode     TripSourceType = "grenselos_episode"
	TripSourceUserEpisode TripSourceType = "user_episode_trip"
	TripSourceTemplate    TripSourceType = "template"
)

// Packing categories, in the order they are always emitted.
const (
	PackingClothing    = "Klær"
	PackingToiletries  = "Toalettsaker"
	PackingElectronics = "Elektronikk"
	PackingOther       = "Annet"
)

var PackingCategoryOrder = []string{PackingClothing, PackingToiletries, PackingElectronics, PackingOther}

const DefaultCurrency = "NOK"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Stop struct {
	ID          string            `json:"id"`
	Order       int               `json:"order"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Location    *string           `json:"location,omitempty"`
	Coordinates *Coordinates      `json:"coordinates,omitempty"`
	CountryCode *string           `json:"countryCode,omitempty"`
	Codes       map[string]string `json:"codes,omitempty"`
}

func (s Stop) HasCoordinates() bool {
	return s.Coordinates != nil
}

type PackingCategory struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type Hotel struct {
	Name          string   `json:"name"`
	Location      string   `json:"location,omitempty"`
	Description   string   `json:"description,omitempty"`
	PricePerNight *float64 `json:"price_per_night,omitempty"`
	Currency      string   `json:"currency"`
	URL           string   `json:"url"`
}

type Experience struct {
	Name           string   `json:"name"`
	Location       string   `json:"location,omitempty"`
	Description    string   `json:"description,omitempty"`
	URL            string   `json:"url"`
	Day            *int     `json:"day,omitempty"`
	PricePerPerson *float64 `json:"price_per_person,omitempty"`
	Currency       string   `json:"currency"`
}

type GalleryImage struct {
	URL     string  `json:"url"`
	Caption *string `json:"caption,omitempty"`
	Credit  *string `json:"credit,omitempty"`
}

type (
	TripStops       []Stop
	TripPackingList []PackingCategory
	TripHotels      []Hotel
	TripExperiences []Experience
	TripGallery     []GalleryImage
)

type Trip struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	Title           string          `db:"title" json:"title"`
	Description     *string         `db:"description" json:"description"`
	Stops           TripStops       `db:"stops" json:"stops"`
	PackingList     TripPackingList `db:"packing_list" json:"packing_list"`
	Hotels          TripHotels      `db:"hotels" json:"hotels"`
	Experiences     TripExperiences `db:"experiences" json:"experiences"`
	Gallery         TripGallery     `db:"gallery" json:"gallery"`
	SourceType      *TripSourceType `db:"source_type" json:"source_type"`
	SourceEpisodeID *string         `db:"source_episode_id" json:"source_episode_id"`
	EpisodeURL      *string         `db:"episode_url" json:"episode_url"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

func (t Trip) IsCanonical() bool {
	return t.SourceType != nil && *t.SourceType == TripSourceEpisode
}

func (t Trip) IsEpisodeCopy() bool {
	return t.SourceType != nil && *t.SourceType == TripSourceUserEpisode && t.SourceEpisodeID != nil
}

// PackingItemCount is the total number of items across all categories.
func (t Trip) PackingItemCount() int {
	total := 0
	for _, cat := range t.PackingList {
		total += len(cat.Items)
	}
	return total
}

type TripListFilter struct {
	SourceTypes []TripSourceType
	Limit       int
	Offset      int
}

func (s TripStops) Value() (driver.Value, error)       { return jsonValue(s, s == nil) }
func (p TripPackingList) Value() (driver.Value, error) { return jsonValue(p, p == nil) }
func (h TripHotels) Value() (driver.Value, error)      { return jsonValue(h, h == nil) }
func (e TripExperiences) Value() (driver.Value, error) { return jsonValue(e, e == nil) }
func (g TripGallery) Value() (driver.Value, error)     { return jsonValue(g, g == nil) }

func (s *TripStops) Scan(value any) error {
	*s = nil
	return jsonScan(value, s, "stops")
}

func (p *TripPackingList) Scan(value any) error {
	*p = nil
	return jsonScan(value, p, "packing_list")
}

func (h *TripHotels) Scan(value any) error {
	*h = nil
	return jsonScan(value, h, "hotels")
}

func (e *TripExperiences) Scan(value any) error {
	*e = nil
	return jsonScan(value, e, "experiences")
}

func (g *TripGallery) Scan(value any) error {
	*g = nil
	return jsonScan(value, g, "gallery")
}

func jsonValue(v any, isNil bool) (driver.Value, error) {
	if isNil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func jsonScan(value any, dst any, column string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("expected []byte for %s, got %T", column, value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
