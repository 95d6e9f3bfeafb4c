package webservices

import (
	"image"
	"image/png"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/funmaprenderer"
	"github.com/hocman2/funmap/triangulator"
	"github.com/hocman2/funmap/viewer"
	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/semaphore"
	"github.com/pkg/profile"
)

const (
	defaultPreviewSize = 256
	maxPreviewSize     = 2048

	// previews rendered at the same time
	maxConcurrentRenders = 4
)

type ChunkService struct {
	logger        *logpkg.Logger
	session       *viewer.Session
	renderer      funmaprenderer.ChunkRenderer
	sema          *semaphore.Semaphore
	shouldProfile bool
	chi.Router
}

func NewChunkService(logger *logpkg.Logger, session *viewer.Session, renderer funmaprenderer.ChunkRenderer, shouldProfile bool) *ChunkService {
	cs := &ChunkService{logger, session, renderer, semaphore.NewSemaphore(maxConcurrentRenders), shouldProfile, chi.NewRouter()}

	cs.Get("/", cs.handleList)
	cs.Post("/retry", cs.handleRetry)
	cs.Get("/{chunkID}", cs.handleGet)
	cs.Post("/{chunkID}/rebuild", cs.handleRebuild)
	cs.Get("/{chunkID}/geometry", cs.handleGetGeometry)
	cs.Get("/{chunkID}/preview.png", cs.handleGetPreview)

	return cs
}

type boundsType struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

type chunkType struct {
	ID        string     `json:"id"`
	Bounds    boundsType `json:"bounds"`
	Status    string     `json:"status"`
	MeshCount int        `json:"meshCount"`
	RoadCount int        `json:"roadCount"`
}

func newChunkType(c *chunk.Chunk) chunkType {
	bounds := c.GeoBounds()
	meshCount, roadCount := c.Counts()

	return chunkType{
		ID:        c.ID(),
		Bounds:    boundsType{bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat},
		Status:    c.Status().String(),
		MeshCount: meshCount,
		RoadCount: roadCount,
	}
}

type meshType struct {
	WayID       uint64     `json:"wayId"`
	WorldOffset [2]float64 `json:"worldOffset"`
	WallCount   int        `json:"wallCount"`
	Vertices    []float32  `json:"vertices"`
	Normals     []float32  `json:"normals"`
}

type roadType struct {
	WayID  uint64       `json:"wayId"`
	Points [][2]float64 `json:"points"`
}

type geometryType struct {
	ChunkID string     `json:"chunkId"`
	Meshes  []meshType `json:"meshes"`
	Roads   []roadType `json:"roads"`
}

func (cs *ChunkService) getChunk(w http.ResponseWriter, r *http.Request) (*chunk.Chunk, bool) {
	chunkID := chi.URLParam(r, "chunkID")
	c, ok := cs.session.WorkingSet().Get(chunkID)
	if !ok {
		errorsx.HTTPError(w, cs.logger, errorsx.Errorf("chunk %q is not in the working set", chunkID), http.StatusNotFound)
		return nil, false
	}

	return c, true
}

// handleList lists the working set. An optional "bounds=(S,W,N,E)" parameter keeps only the chunks overlapping those bounds.
func (cs *ChunkService) handleList(w http.ResponseWriter, r *http.Request) {
	chunks := cs.session.WorkingSet().Chunks()

	boundsString := r.URL.Query().Get("bounds")
	if boundsString != "" {
		bounds, err := parseBoundsString(boundsString)
		if err != nil {
			errorsx.HTTPError(w, cs.logger, err, http.StatusBadRequest)
			return
		}
		chunks = cs.session.WorkingSet().Overlapping(*bounds)
	}

	chunkTypes := make([]chunkType, 0, len(chunks))
	for _, c := range chunks {
		chunkTypes = append(chunkTypes, newChunkType(c))
	}

	render.JSON(w, r, chunkTypes)
}

func (cs *ChunkService) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := cs.getChunk(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, newChunkType(c))
}

func (cs *ChunkService) handleRetry(w http.ResponseWriter, r *http.Request) {
	count := cs.session.Retry()
	cs.logger.Info("chunk service: %d invalid chunks reset to pending", count)

	render.JSON(w, r, map[string]int{"reset": count})
}

// handleRebuild drops the chunk data, the session builds it again on its next frame
func (cs *ChunkService) handleRebuild(w http.ResponseWriter, r *http.Request) {
	c, ok := cs.getChunk(w, r)
	if !ok {
		return
	}

	if c.UnloadUnlessGenerating() == chunk.StatusGenerating {
		errorsx.HTTPError(w, cs.logger, errorsx.Errorf("chunk %q is already being built", c.ID()), http.StatusConflict)
		return
	}

	cs.logger.Info("chunk service: %s queued for a rebuild", c.ID())

	render.JSON(w, r, newChunkType(c))
}

func (cs *ChunkService) handleGetGeometry(w http.ResponseWriter, r *http.Request) {
	c, ok := cs.getChunk(w, r)
	if !ok {
		return
	}

	geometry := geometryType{
		ChunkID: c.ID(),
		Meshes:  []meshType{},
		Roads:   []roadType{},
	}
	status := c.WithGeneratedData(func(meshes []*triangulator.BuiltMesh, roads []*funmap.Way) {
		for _, mesh := range meshes {
			geometry.Meshes = append(geometry.Meshes, meshType{
				WayID:       mesh.WayID,
				WorldOffset: [2]float64{mesh.WorldOffset.X(), mesh.WorldOffset.Y()},
				WallCount:   mesh.WallCount,
				Vertices:    mesh.Vertices(),
				Normals:     mesh.Normals(),
			})
		}

		for _, road := range roads {
			line := funmap.RoadPolyline(road, c.Projection())
			points := make([][2]float64, 0, len(line))
			for _, point := range line {
				points = append(points, [2]float64{point.X(), point.Y()})
			}
			geometry.Roads = append(geometry.Roads, roadType{road.ID, points})
		}
	})
	if status != chunk.StatusGenerated {
		errorsx.HTTPError(w, cs.logger, errorsx.Errorf("chunk %q has no geometry (status: %s)", c.ID(), status), http.StatusConflict)
		return
	}

	render.JSON(w, r, geometry)
}

func (cs *ChunkService) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	if cs.shouldProfile {
		defer profile.Start().Stop()
	}

	size, err := previewSizeFromQuery(r.URL.Query().Get("size"))
	if err != nil {
		errorsx.HTTPError(w, cs.logger, err, http.StatusBadRequest)
		return
	}

	c, ok := cs.getChunk(w, r)
	if !ok {
		return
	}

	cs.sema.Add()
	defer cs.sema.Done()

	ctx := r.Context()
	renderSpan := tracing.StartSpan(ctx, "render chunk preview")
	img, err := cs.renderer.RenderChunk(c, size)
	renderSpan.End(ctx)
	if err != nil {
		errorsx.HTTPError(w, cs.logger, errorsx.Wrap(err, "chunkID", c.ID()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")

	encodeSpan := tracing.StartSpan(ctx, "encode png")
	defer encodeSpan.End(ctx)

	encodeErr := png.Encode(w, img)
	if encodeErr != nil {
		switch encodeErr.(type) {
		case *net.OpError:
			// broken pipe (request cancelled). Do nothing
		default:
			errorsx.HTTPError(w, cs.logger, errorsx.Wrap(encodeErr), http.StatusInternalServerError)
		}
		return
	}
}

func previewSizeFromQuery(sizeStr string) (image.Rectangle, errorsx.Error) {
	if sizeStr == "" {
		return image.Rect(0, 0, defaultPreviewSize, defaultPreviewSize), nil
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return image.Rectangle{}, errorsx.Wrap(err)
	}

	if size <= 0 || size > maxPreviewSize {
		return image.Rectangle{}, errorsx.Errorf("preview size must be between 1 and %d, but got %d", maxPreviewSize, size)
	}

	return image.Rect(0, 0, size, size), nil
}
