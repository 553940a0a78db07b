package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/logging"
	"github.com/smlier739/copytrip-backend-sub000/internal/service"
	"github.com/smlier739/copytrip-backend-sub000/internal/util"
)

const genericErrorMessage = "Noe gikk galt. Prøv igjen senere."

type TripHandler struct {
	trips *service.TripService
	log   *logging.Logger
}

func RegisterTrips(e *echo.Echo, tokens TokenParser, trips *service.TripService, log *logging.Logger) {
	if log == nil {
		log = logging.NewNop()
	}
	handler := &TripHandler{trips: trips, log: log}

	api := e.Group("/api/v1", RequireAuth(tokens))
	api.POST("/episodes/:episodeId/trip", handler.openEpisodeTrip)
	api.POST("/trips", handler.createTrip)
	api.POST("/trips/normalize", handler.normalizeTrip)
	api.GET("/trips", handler.listTrips)
	api.GET("/trips/:id", handler.getTrip)
	api.DELETE("/trips/:id", handler.deleteTrip)
}

type episodeRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
}

func (r episodeRequest) toDomain() domain.Episode {
	return domain.Episode{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		ExternalURL: strings.TrimSpace(r.ExternalURL),
	}
}

func (h *TripHandler) openEpisodeTrip(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req episodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	episode := req.toDomain()
	episode.ID = strings.TrimSpace(c.Param("episodeId"))

	result, err := h.trips.OpenEpisodeTrip(c.Request().Context(), episode, *viewer)
	if err != nil {
		return h.writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"trip_id":      result.TripID,
		"trip":         result.Trip,
		"entitlements": result.Trip.Entitlements,
		"counts":       result.Trip.Counts,
	})
}

func (h *TripHandler) createTrip(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req struct {
		Trip          any             `json:"trip"`
		SourceType    *string         `json:"source_type"`
		Episode       *episodeRequest `json:"episode"`
		NightlyBudget *float64        `json:"nightly_budget"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	input := service.CreateTripInput{Trip: req.Trip, NightlyBudget: req.NightlyBudget}
	if req.SourceType != nil && strings.TrimSpace(*req.SourceType) != "" {
		st, err := parseSourceType(*req.SourceType)
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		input.SourceType = &st
	}
	if req.Episode != nil {
		episode := req.Episode.toDomain()
		input.Episode = &episode
	}

	trip, err := h.trips.CreateUserTrip(c.Request().Context(), viewer.UserID, input)
	if err != nil {
		return h.writeTripError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("trip", service.ProjectForViewer(*trip, viewer.Entitlements)))
}

func (h *TripHandler) normalizeTrip(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req struct {
		Trip          any      `json:"trip"`
		NightlyBudget *float64 `json:"nightly_budget"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if req.Trip == nil {
		return c.JSON(http.StatusBadRequest, util.Error("trip is required"))
	}
	trip := h.trips.NormalizePreview(req.Trip, req.NightlyBudget)
	return c.JSON(http.StatusOK, util.Data("trip", service.ProjectForViewer(trip, viewer.Entitlements)))
}

func (h *TripHandler) listTrips(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	input, err := parseTripListInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	trips, err := h.trips.ListTrips(c.Request().Context(), *viewer, input)
	if err != nil {
		return h.writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"trips": trips,
		"meta": echo.Map{
			"count":  len(trips),
			"limit":  input.Limit,
			"offset": input.Offset,
		},
	})
}

func (h *TripHandler) getTrip(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid trip id"))
	}

	view, err := h.trips.GetTripForViewer(c.Request().Context(), id, *viewer)
	if err != nil {
		return h.writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("trip", view))
}

func (h *TripHandler) deleteTrip(c echo.Context) error {
	viewer, ok := CurrentViewer(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid trip id"))
	}

	if err := h.trips.DeleteTrip(c.Request().Context(), id, *viewer); err != nil {
		return h.writeTripError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TripHandler) writeTripError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrTripNotFound):
		return c.JSON(http.StatusNotFound, util.Error("trip not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Error("forbidden"))
	case errors.Is(err, service.ErrEpisodeRequired), errors.Is(err, service.ErrInvalidTripInput):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrEpisodeTripNoStops):
		return c.JSON(http.StatusUnprocessableEntity, util.Error("Fant ingen stopp for denne episoden."))
	case errors.Is(err, service.ErrTripGeneration):
		h.log.Error("trip generation failed", "uri", c.Request().RequestURI, "error", err)
		return c.JSON(http.StatusBadGateway, util.Error(genericErrorMessage))
	default:
		h.log.Error("trip request failed", "uri", c.Request().RequestURI, "error", err)
		return c.JSON(http.StatusInternalServerError, util.Error(genericErrorMessage))
	}
}

func parseSourceType(raw string) (domain.TripSourceType, error) {
	switch st := domain.TripSourceType(strings.ToLower(strings.TrimSpace(raw))); st {
	case domain.TripSourceEpisode, domain.TripSourceUserEpisode, domain.TripSourceTemplate:
		return st, nil
	default:
		return "", errors.New("invalid source_type")
	}
}

func parseTripListInput(c echo.Context) (service.TripListInput, error) {
	var input service.TripListInput

	for _, raw := range c.QueryParams()["source_type"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, err := parseSourceType(part)
			if err != nil {
				return input, err
			}
			input.SourceTypes = append(input.SourceTypes, st)
		}
	}

	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return input, errors.New("invalid limit")
		}
		input.Limit = limit
	}
	if v := strings.TrimSpace(c.QueryParam("offset")); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return input, errors.New("invalid offset")
		}
		input.Offset = offset
	}
	return input, nil
}
