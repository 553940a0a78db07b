package normalize

import (
	"strings"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
)

// MergeWithCanonical fills the gaps of a user's copy of an episode trip from the
// episode's canonical trip.
//
//	title, description            user if not blank
//	stops                         user if non-empty and every stop has coordinates,
//	                              else canonical when it has stops, else user
//	packing_list                  user if it holds at least one item
//	hotels, experiences, gallery  user if non-empty
//	id, owner, provenance         always user
func MergeWithCanonical(user, canonical domain.Trip) domain.Trip {
	merged := user

	if strings.TrimSpace(user.Title) == "" {
		merged.Title = canonical.Title
	}
	if user.Description == nil || strings.TrimSpace(*user.Description) == "" {
		merged.Description = canonical.Description
	}
	if !stopsUsable(user.Stops) && len(canonical.Stops) > 0 {
		merged.Stops = canonical.Stops
	}
	if user.PackingItemCount() == 0 {
		merged.PackingList = canonical.PackingList
	}
	if len(user.Hotels) == 0 {
		merged.Hotels = canonical.Hotels
	}
	if len(user.Experiences) == 0 {
		merged.Experiences = canonical.Experiences
	}
	if len(user.Gallery) == 0 {
		merged.Gallery = canonical.Gallery
	}
	return merged
}

func stopsUsable(stops []domain.Stop) bool {
	if len(stops) == 0 {
		return false
	}
	for _, s := range stops {
		if !s.HasCoordinates() {
			return false
		}
	}
	return true
}
