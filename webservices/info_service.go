package webservices

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/viewer"
	"github.com/jamesrr39/goutil/logpkg"
)

func NewInfoService(logger *logpkg.Logger, session *viewer.Session, projection *funmap.Projection) *InfoService {
	ws := &InfoService{logger, session, projection, chi.NewRouter()}
	ws.Get("/", ws.handleGet)

	return ws
}

type InfoService struct {
	logger     *logpkg.Logger
	session    *viewer.Session
	projection *funmap.Projection
	chi.Router
}

type geoPointType struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type infoType struct {
	Reference    geoPointType   `json:"reference"`
	Focus        geoPointType   `json:"focus"`
	Stats        viewer.Stats   `json:"stats"`
	ChunkCount   int            `json:"chunkCount"`
	StatusCounts map[string]int `json:"statusCounts"`
}

func (ws *InfoService) handleGet(w http.ResponseWriter, r *http.Request) {
	refLon, refLat := ws.projection.Reference()
	focusLon, focusLat := ws.projection.ToGeo(ws.session.Focus())

	statusCounts := map[string]int{
		chunk.StatusPending.String():    0,
		chunk.StatusGenerating.String(): 0,
		chunk.StatusGenerated.String():  0,
		chunk.StatusInvalid.String():    0,
	}

	chunks := ws.session.WorkingSet().Chunks()
	for _, c := range chunks {
		statusCounts[c.Status().String()]++
	}

	render.JSON(w, r, infoType{
		Reference:    geoPointType{refLon, refLat},
		Focus:        geoPointType{focusLon, focusLat},
		Stats:        ws.session.Stats(),
		ChunkCount:   len(chunks),
		StatusCounts: statusCounts,
	})
}
