package service

import "errors"

var (
	ErrTripNotFound     = errors.New("trip not found")
	ErrForbidden        = errors.New("not allowed to access this trip")
	ErrEpisodeRequired  = errors.New("episode id is required")
	ErrInvalidTripInput = errors.New("invalid trip input")
	// ErrEpisodeTripNoStops rejects episode trips that would be stored without stops.
	ErrEpisodeTripNoStops = errors.New("episode trip has no stops")
	// ErrTripGeneration wraps failures of the AI provider.
	ErrTripGeneration = errors.New("trip generation failed")
)
