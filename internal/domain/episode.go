package domain

import "github.com/google/uuid"

// Episode is a podcast episode used as the seed for a canonical trip.
type Episode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
}

type Entitlements struct {
	IsAdmin   bool `json:"is_admin"`
	IsPremium bool `json:"is_premium"`
}

func (e Entitlements) IsPro() bool {
	return e.IsAdmin || e.IsPremium
}

// Viewer identifies the caller a trip is projected for.
type Viewer struct {
	UserID       uuid.UUID
	Entitlements Entitlements
}
