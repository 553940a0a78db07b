package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

const (
	previewHotelLimit      = 3
	previewExperienceLimit = 3
	previewPackingLimit    = 6
)

type HotelView struct {
	Name          string   `json:"name"`
	Location      string   `json:"location,omitempty"`
	Description   string   `json:"description,omitempty"`
	PricePerNight *float64 `json:"price_per_night,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	URL           string   `json:"url,omitempty"`
}

type ExperienceView struct {
	Name           string   `json:"name"`
	Location       string   `json:"location,omitempty"`
	Description    string   `json:"description,omitempty"`
	URL            string   `json:"url,omitempty"`
	Day            *int     `json:"day,omitempty"`
	PricePerPerson *float64 `json:"price_per_person,omitempty"`
	Currency       string   `json:"currency,omitempty"`
}

type LockedSections struct {
	Hotels      bool `json:"hotels"`
	Experiences bool `json:"experiences"`
	PackingList bool `json:"packing_list"`
}

type EntitlementInfo struct {
	IsPro  bool           `json:"isPro"`
	Locked LockedSections `json:"locked"`
}

// TripCounts are the unredacted totals, so clients can show what is locked.
type TripCounts struct {
	Hotels      int `json:"hotels"`
	Experiences int `json:"experiences"`
	PackingList int `json:"packing_list"`
}

// ViewTrip is a trip as one viewer is allowed to see it.
type ViewTrip struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	Title           string                   `json:"title"`
	Description     *string                  `json:"description"`
	Stops           []domain.Stop            `json:"stops"`
	PackingList     []domain.PackingCategory `json:"packing_list"`
	Hotels          []HotelView              `json:"hotels"`
	Experiences     []ExperienceView         `json:"experiences"`
	Gallery         []domain.GalleryImage    `json:"gallery"`
	SourceType      *domain.TripSourceType   `json:"source_type"`
	SourceEpisodeID *string                  `json:"source_episode_id"`
	EpisodeURL      *string                  `json:"episode_url"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Entitlements    EntitlementInfo          `json:"entitlements"`
	Counts          TripCounts               `json:"counts"`
}

// ProjectForViewer builds the view of trip for the given entitlements. Viewers
// without pro access get the first hotels and experiences without links or prices
// and a short packing preview. The stored trip is not modified.
func ProjectForViewer(trip domain.Trip, ent domain.Entitlements) ViewTrip {
	isPro := ent.IsPro()
	view := ViewTrip{
		ID:              trip.ID,
		UserID:          trip.UserID,
		Title:           trip.Title,
		Description:     trip.Description,
		Stops:           nonNil(trip.Stops),
		Gallery:         nonNil(trip.Gallery),
		SourceType:      trip.SourceType,
		SourceEpisodeID: trip.SourceEpisodeID,
		EpisodeURL:      trip.EpisodeURL,
		CreatedAt:       trip.CreatedAt,
		UpdatedAt:       trip.UpdatedAt,
		Entitlements: EntitlementInfo{
			IsPro: isPro,
			Locked: LockedSections{
				Hotels:      !isPro,
				Experiences: !isPro,
				PackingList: !isPro,
			},
		},
		Counts: TripCounts{
			Hotels:      len(trip.Hotels),
			Experiences: len(trip.Experiences),
			PackingList: trip.PackingItemCount(),
		},
	}

	if isPro {
		view.Hotels = lo.Map(trip.Hotels, func(h domain.Hotel, _ int) HotelView {
			return HotelView{
				Name:          h.Name,
				Location:      h.Location,
				Description:   h.Description,
				PricePerNight: h.PricePerNight,
				Currency:      h.Currency,
				URL:           h.URL,
			}
		})
		view.Experiences = lo.Map(trip.Experiences, func(e domain.Experience, _ int) ExperienceView {
			return ExperienceView{
				Name:           e.Name,
				Location:       e.Location,
				Description:    e.Description,
				URL:            e.URL,
				Day:            e.Day,
				PricePerPerson: e.PricePerPerson,
				Currency:       e.Currency,
			}
		})
		view.PackingList = nonNil(trip.PackingList)
		return view
	}

	view.Hotels = lo.Map(lo.Slice(trip.Hotels, 0, previewHotelLimit), func(h domain.Hotel, _ int) HotelView {
		return HotelView{Name: h.Name, Location: h.Location}
	})
	view.Experiences = lo.Map(lo.Slice(trip.Experiences, 0, previewExperienceLimit), func(e domain.Experience, _ int) ExperienceView {
		return ExperienceView{Name: e.Name, Location: e.Location, Description: e.Description}
	})
	view.PackingList = packingPreview(trip.PackingList, previewPackingLimit)
	return view
}

// packingPreview keeps the first limit items across categories in category order.
// Categories left empty are dropped.
func packingPreview(list []domain.PackingCategory, limit int) []domain.PackingCategory {
	out := make([]domain.PackingCategory, 0, len(list))
	remaining := limit
	for _, cat := range list {
		if remaining <= 0 {
			break
		}
		if len(cat.Items) == 0 {
			continue
		}
		items := lo.Slice(cat.Items, 0, remaining)
		out = append(out, domain.PackingCategory{Category: cat.Category, Items: append([]string(nil), items...)})
		remaining -= len(items)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
