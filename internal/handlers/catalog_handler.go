package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/railconnect/booking-ledger/pkg/validator"
)

// CatalogQueries serves station and train reads
type CatalogQueries interface {
	SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error)
	GetStation(ctx context.Context, code string) (*models.Station, error)
	ListTrains(ctx context.Context) ([]models.Train, error)
	GetTrainDetails(ctx context.Context, trainID int64) (*models.TrainDetails, error)
	SearchTrains(ctx context.Context, from, to, journeyDate string) ([]models.TrainSearchResult, error)
	GetAvailability(ctx context.Context, trainID int64, journeyDate string) ([]models.ClassAvailability, error)
}

// FareQuoter prices a segment of a train's route
type FareQuoter interface {
	Quote(ctx context.Context, trainID int64, from, to, coachClass string) (*models.FareQuote, error)
}

// CatalogHandler serves the public catalog endpoints
type CatalogHandler struct {
	catalog CatalogQueries
	fares   FareQuoter
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog CatalogQueries, fares FareQuoter) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, fares: fares}
}

// SearchStations
// @Summary Station autocomplete
// @Tags Catalog
// @Produce json
// @Param q query string false "Code prefix, name or city"
// @Param limit query int false "Max results (default 20, max 100)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/stations [get]
func (h *CatalogHandler) SearchStations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	stations, err := h.catalog.SearchStations(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err, "Failed to search stations", nil)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}

	c.JSON(http.StatusOK, gin.H{"stations": stations})
}

// GetStation
// @Summary Station by code
// @Tags Catalog
// @Produce json
// @Param code path string true "Station code"
// @Success 200 {object} models.Station
// @Failure 404 {object} map[string]interface{} "Station not found"
// @Router /api/v1/stations/{code} [get]
func (h *CatalogHandler) GetStation(c *gin.Context) {
	code, err := validator.NormalizeStationCode(c.Param("code"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	station, err := h.catalog.GetStation(c.Request.Context(), code)
	if err != nil {
		respondError(c, err, "Failed to fetch station", nil)
		return
	}

	c.JSON(http.StatusOK, station)
}

// SearchTrains
// @Summary Trains between two stations
// @Description With a date, only trains running that day are returned, each with per-class availability
// @Tags Catalog
// @Produce json
// @Param from query string true "Boarding station code"
// @Param to query string true "Destination station code"
// @Param date query string false "Journey date YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid query"
// @Router /api/v1/trains/search [get]
func (h *CatalogHandler) SearchTrains(c *gin.Context) {
	from, err := validator.NormalizeStationCode(c.Query("from"))
	if err != nil {
		badRequest(c, "from: "+err.Error())
		return
	}
	to, err := validator.NormalizeStationCode(c.Query("to"))
	if err != nil {
		badRequest(c, "to: "+err.Error())
		return
	}

	date := c.Query("date")
	if date != "" {
		if _, err := validator.ParseDate(date); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	trains, err := h.catalog.SearchTrains(c.Request.Context(), from, to, date)
	if err != nil {
		respondError(c, err, "Failed to search trains", nil)
		return
	}
	if trains == nil {
		trains = []models.TrainSearchResult{}
	}

	c.JSON(http.StatusOK, gin.H{
		"trains": trains,
		"count":  len(trains),
	})
}

// ListTrains
// @Summary All trains
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/trains [get]
func (h *CatalogHandler) ListTrains(c *gin.Context) {
	trains, err := h.catalog.ListTrains(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list trains", nil)
		return
	}
	if trains == nil {
		trains = []models.Train{}
	}

	c.JSON(http.StatusOK, gin.H{
		"trains": trains,
		"count":  len(trains),
	})
}

// GetTrain
// @Summary Train details
// @Tags Catalog
// @Produce json
// @Param id path int true "Train ID"
// @Success 200 {object} models.TrainDetails
// @Failure 404 {object} map[string]interface{} "Train not found"
// @Router /api/v1/trains/{id} [get]
func (h *CatalogHandler) GetTrain(c *gin.Context) {
	trainID, ok := trainIDParam(c)
	if !ok {
		return
	}

	details, err := h.catalog.GetTrainDetails(c.Request.Context(), trainID)
	if err != nil {
		respondError(c, err, "Failed to fetch train", nil)
		return
	}

	c.JSON(http.StatusOK, details)
}

// GetAvailability
// @Summary Seat availability
// @Description Per-class seats for a date; classes never booked report their full coach capacity
// @Tags Catalog
// @Produce json
// @Param id path int true "Train ID"
// @Param date query string true "Journey date YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/trains/{id}/availability [get]
func (h *CatalogHandler) GetAvailability(c *gin.Context) {
	trainID, ok := trainIDParam(c)
	if !ok {
		return
	}

	date := c.Query("date")
	if _, err := validator.ParseDate(date); err != nil {
		badRequest(c, err.Error())
		return
	}

	classes, err := h.catalog.GetAvailability(c.Request.Context(), trainID, date)
	if err != nil {
		respondError(c, err, "Failed to fetch availability", nil)
		return
	}
	if classes == nil {
		classes = []models.ClassAvailability{}
	}

	c.JSON(http.StatusOK, gin.H{
		"train_id":     trainID,
		"journey_date": date,
		"classes":      classes,
	})
}

// GetFare
// @Summary Fare quote
// @Description Distance-prorated fare for one passenger between two stops
// @Tags Catalog
// @Produce json
// @Param id path int true "Train ID"
// @Param from query string true "Boarding station code"
// @Param to query string true "Destination station code"
// @Param class query string false "Coach class (default 3AC)"
// @Success 200 {object} models.FareQuote
// @Failure 404 {object} map[string]interface{} "Route or class not found"
// @Router /api/v1/trains/{id}/fare [get]
func (h *CatalogHandler) GetFare(c *gin.Context) {
	trainID, ok := trainIDParam(c)
	if !ok {
		return
	}

	quote, err := h.fares.Quote(c.Request.Context(), trainID, c.Query("from"), c.Query("to"), c.Query("class"))
	if err != nil {
		respondError(c, err, "Failed to quote fare", nil)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func trainIDParam(c *gin.Context) (int64, bool) {
	trainID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || trainID <= 0 {
		badRequest(c, "Invalid train ID")
		return 0, false
	}
	return trainID, true
}
