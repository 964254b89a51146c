// Package httpapi exposes a cty.Database over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andreiashu/cty"
	"github.com/labstack/echo/v4"
)

// Handler serves lookups from db and reloads it from source.
type Handler struct {
	db     *cty.Database
	source cty.Source
}

func New(db *cty.Database, source cty.Source) *Handler {
	return &Handler{db: db, source: source}
}

// RegisterRoutes mounts the v1 API on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api_v1 := e.Group("/v1")
	api_v1.GET("/health", h.HealthHandler)
	api_v1.GET("/lookup", h.LookupHandler)
	api_v1.GET("/lookup/:callsign", h.LookupHandler)
	api_v1.GET("/entities", h.GetAllEntitiesHandler)
	api_v1.GET("/entities/:entity_id", h.GetEntityHandler)
	api_v1.GET("/distance", h.DistanceHandler)
	api_v1.POST("/reload", h.ReloadHandler)
}

type LookupResponse struct {
	Callsign string `json:"callsign"`
	cty.Result
	Geohash string `json:"geohash"`
}

type EntityResponse struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	WAEOnly       bool          `json:"wae_only"`
	CQZone        int           `json:"cq_zone"`
	ITUZone       int           `json:"itu_zone"`
	Continent     cty.Continent `json:"continent"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	UTCOffset     int           `json:"utc_offset"`
	PrimaryPrefix string        `json:"primary_prefix"`
}

type DistanceResponse struct {
	From LookupResponse `json:"from"`
	To   LookupResponse `json:"to"`
	Km   float64        `json:"km"`
}

type ReloadResponse struct {
	Entities int `json:"entities"`
	Prefixes int `json:"prefixes"`
}

func toEntityResponse(e cty.Entity) EntityResponse {
	return EntityResponse{
		ID:            e.ID,
		Name:          e.Name,
		WAEOnly:       e.WAEOnly,
		CQZone:        e.CQZone,
		ITUZone:       e.ITUZone,
		Continent:     e.Continent,
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		UTCOffset:     e.UTCOffset,
		PrimaryPrefix: e.PrimaryPrefix,
	}
}

func (h *Handler) HealthHandler(c echo.Context) error {
	if !h.db.Ready() {
		return &echo.HTTPError{
			Code:    http.StatusServiceUnavailable,
			Message: "cty.dat not loaded",
		}
	}
	return c.JSON(http.StatusOK, ReloadResponse{
		Entities: h.db.EntityCount(),
		Prefixes: h.db.PrefixCount(),
	})
}

// lookup resolves call, mapping no-match and override errors to HTTP errors.
func (h *Handler) lookup(c echo.Context, call string) (LookupResponse, error) {
	r, ok, err := h.db.Lookup(call)
	if err != nil {
		c.Logger().Errorf("Lookup(%q) failed: %v", call, err)
		return LookupResponse{}, &echo.HTTPError{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		}
	}
	if !ok {
		return LookupResponse{}, &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "No entity for callsign " + strings.ToUpper(strings.TrimSpace(call)),
		}
	}
	return LookupResponse{
		Callsign: strings.ToUpper(strings.TrimSpace(call)),
		Result:   r,
		Geohash:  r.Geohash(),
	}, nil
}

// LookupHandler resolves the :callsign path parameter, or ?call= for
// portable calls containing '/'.
func (h *Handler) LookupHandler(c echo.Context) error {
	call := c.Param("callsign")
	if call == "" {
		call = c.QueryParam("call")
	}
	if strings.TrimSpace(call) == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "callsign is required",
		}
	}
	resp, err := h.lookup(c, call)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAllEntitiesHandler lists entities. ?name= filters by name, with ?fuzzy=n
// allowing up to n edits.
func (h *Handler) GetAllEntitiesHandler(c echo.Context) error {
	var entities []cty.Entity
	if name := c.QueryParam("name"); name != "" {
		fuzzy := 0
		if v := c.QueryParam("fuzzy"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return &echo.HTTPError{
					Code:    http.StatusBadRequest,
					Message: "fuzzy must be a non-negative integer",
				}
			}
			fuzzy = n
		}
		entities = h.db.FindEntities(name, fuzzy)
	} else {
		entities = h.db.Entities()
	}

	out := make([]EntityResponse, len(entities))
	for i, e := range entities {
		out[i] = toEntityResponse(e)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetEntityHandler(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("entity_id"))
	if err != nil {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid entity ID",
		}
	}
	e, ok := h.db.Entity(id)
	if !ok {
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "Entity not found",
		}
	}
	return c.JSON(http.StatusOK, toEntityResponse(e))
}

func (h *Handler) DistanceHandler(c echo.Context) error {
	fromCall, toCall := c.QueryParam("from"), c.QueryParam("to")
	if fromCall == "" || toCall == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "from and to are required",
		}
	}

	from, err := h.lookup(c, fromCall)
	if err != nil {
		return err
	}
	to, err := h.lookup(c, toCall)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DistanceResponse{
		From: from,
		To:   to,
		Km:   cty.Distance(from.Result, to.Result),
	})
}

// ReloadHandler re-reads the configured source. The previous tables keep
// serving when the reload fails.
func (h *Handler) ReloadHandler(c echo.Context) error {
	logger := c.Logger()

	if err := h.db.Reload(c.Request().Context(), h.source); err != nil {
		logger.Error("Failed to reload cty.dat: ", err)
		code := http.StatusUnprocessableEntity
		if errors.Is(err, cty.ErrSourceUnavailable) {
			code = http.StatusBadGateway
		}
		return &echo.HTTPError{
			Code:    code,
			Message: err.Error(),
		}
	}

	logger.Infof("Reloaded cty.dat: %d entities, %d prefixes", h.db.EntityCount(), h.db.PrefixCount())
	return c.JSON(http.StatusOK, ReloadResponse{
		Entities: h.db.EntityCount(),
		Prefixes: h.db.PrefixCount(),
	})
}
