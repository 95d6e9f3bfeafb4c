package webservices

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/viewer"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/paulmach/osm"
)

// FocusService moves the point the working set is built around
type FocusService struct {
	logger     *logpkg.Logger
	session    *viewer.Session
	projection *funmap.Projection
	chi.Router
}

func NewFocusService(logger *logpkg.Logger, session *viewer.Session, projection *funmap.Projection) *FocusService {
	router := chi.NewRouter()
	service := &FocusService{logger, session, projection, router}

	router.Get("/", service.handleGet)
	router.Put("/", service.handlePut)
	return service
}

type focusType struct {
	geoPointType
	// ChunkID is the working set chunk under the focus. Empty until the session has created it.
	ChunkID string `json:"chunkId,omitempty"`
}

func (s *FocusService) currentFocus() focusType {
	lon, lat := s.projection.ToGeo(s.session.Focus())
	focus := focusType{geoPointType: geoPointType{lon, lat}}

	c, ok := s.session.WorkingSet().ChunkContaining(lon, lat)
	if ok {
		focus.ChunkID = c.ID()
	}
	return focus
}

func (s *FocusService) handleGet(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.currentFocus())
}

// handlePut takes either a "bounds" parameter, focusing on its centre, or "lon" and "lat" parameters
func (s *FocusService) handlePut(w http.ResponseWriter, r *http.Request) {
	lon, lat, err := focusFromQuery(r)
	if err != nil {
		errorsx.HTTPError(w, s.logger, err, http.StatusBadRequest)
		return
	}

	s.session.SetFocus(s.projection.ToPlanar(lon, lat))
	s.logger.Info("focus service: focus moved to (%f, %f)", lon, lat)

	render.JSON(w, r, s.currentFocus())
}

func focusFromQuery(r *http.Request) (lon, lat float64, err errorsx.Error) {
	query := r.URL.Query()

	boundsString := query.Get("bounds")
	if boundsString != "" {
		bounds, err := parseBoundsString(boundsString)
		if err != nil {
			return 0, 0, err
		}

		return (bounds.MinLon + bounds.MaxLon) / 2, (bounds.MinLat + bounds.MaxLat) / 2, nil
	}

	lon, parseErr := strconv.ParseFloat(query.Get("lon"), 64)
	if parseErr != nil {
		return 0, 0, errorsx.Wrap(parseErr, "parameter", "lon")
	}

	lat, parseErr = strconv.ParseFloat(query.Get("lat"), 64)
	if parseErr != nil {
		return 0, 0, errorsx.Wrap(parseErr, "parameter", "lat")
	}

	if !funmap.IsValidPoint(lon, lat) {
		return 0, 0, errorsx.Errorf("point (%f, %f) is outside of the world", lon, lat)
	}

	return lon, lat, nil
}

// (S,W,N,E)
// (48.61416,2.25797,48.61511,2.26037)
func parseBoundsString(boundsString string) (*osm.Bounds, errorsx.Error) {
	bounds := &osm.Bounds{}

	withoutBrackets := strings.TrimPrefix(strings.TrimSuffix(boundsString, ")"), "(")
	fragments := strings.Split(withoutBrackets, ",")
	if len(fragments) != 4 {
		return nil, errorsx.Errorf("expected 4 bounds, but got %d. A bounds URL parameter should be in the format 'bounds=(S,W,N,E)'", len(fragments))
	}

	for index, fragment := range fragments {
		trimmedFragment := strings.TrimSpace(fragment)
		coordinate, err := strconv.ParseFloat(trimmedFragment, 64)
		if err != nil {
			return nil, errorsx.Wrap(err)
		}

		switch index {
		case 0:
			bounds.MinLat = coordinate
		case 1:
			bounds.MinLon = coordinate
		case 2:
			bounds.MaxLat = coordinate
		case 3:
			bounds.MaxLon = coordinate
		}
	}

	if bounds.MinLat > bounds.MaxLat || bounds.MinLon > bounds.MaxLon {
		return nil, errorsx.Errorf("bounds are inverted: %q", boundsString)
	}

	return bounds, nil
}
