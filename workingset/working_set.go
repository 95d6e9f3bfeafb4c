package workingset

import (
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// rects are shrunk by this share of a chunk size, so chunks sharing an edge never intersect in the index
const insetRatio = 0.01

type cell struct {
	column int
	row    int
}

type entry struct {
	cell  cell
	chunk *chunk.Chunk
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// WorkingSet is the grid of chunks kept around a focus point.
// All chunks are whole chunk-size offsets from the origin chunk.
type WorkingSet struct {
	logger *logpkg.Logger
	origin *chunk.Chunk
	radius int

	// size and position of the origin chunk, in planar coordinates
	originX, originY float64
	deltaX, deltaY   float64

	mu      *sync.Mutex
	tree    *rtreego.Rtree
	entries map[cell]*entry
	focus   cell
}

// New creates a working set around origin. radius is how many rings of chunks are kept around the focused chunk.
func New(logger *logpkg.Logger, origin *chunk.Chunk, radius int) *WorkingSet {
	southWest, northEast := origin.WorldCorners()

	ws := &WorkingSet{
		logger:  logger,
		origin:  origin,
		radius:  radius,
		originX: southWest.X(),
		originY: southWest.Y(),
		deltaX:  northEast.X() - southWest.X(),
		deltaY:  northEast.Y() - southWest.Y(),
		mu:      new(sync.Mutex),
		tree:    rtreego.NewTree(2, 25, 50),
		entries: make(map[cell]*entry),
	}

	ws.insert(cell{0, 0}, origin)

	return ws
}

func (ws *WorkingSet) rectForCell(c cell) rtreego.Rect {
	minX := ws.originX + float64(c.column)*ws.deltaX
	// deltaY is negative, north is towards negative Y
	maxY := ws.originY + float64(c.row)*ws.deltaY
	minY := maxY + ws.deltaY

	return ws.rectFor(minX, minY, math.Abs(ws.deltaX), math.Abs(ws.deltaY))
}

func (ws *WorkingSet) rectFor(minX, minY, width, height float64) rtreego.Rect {
	insetX := math.Abs(ws.deltaX) * insetRatio
	insetY := math.Abs(ws.deltaY) * insetRatio

	rect, err := rtreego.NewRect(
		rtreego.Point{minX + insetX, minY + insetY},
		[]float64{width - 2*insetX, height - 2*insetY},
	)
	if err != nil {
		// only happens with an empty chunk, which can't be built
		panic(err)
	}
	return rect
}

func (ws *WorkingSet) insert(c cell, ch *chunk.Chunk) *entry {
	e := &entry{
		cell:  c,
		chunk: ch,
		rect:  ws.rectForCell(c),
	}
	ws.entries[c] = e
	ws.tree.Insert(e)
	return e
}

func (ws *WorkingSet) cellAt(point orb.Point) cell {
	return cell{
		column: int(math.Floor((point.X() - ws.originX) / ws.deltaX)),
		row:    int(math.Floor((point.Y() - ws.originY) / ws.deltaY)),
	}
}

// rectAround covers the cells at most radius cells away from center
func (ws *WorkingSet) rectAround(center cell, radius int) rtreego.Rect {
	minX := ws.originX + float64(center.column-radius)*ws.deltaX
	maxY := ws.originY + float64(center.row-radius)*ws.deltaY
	size := float64(2*radius + 1)

	return ws.rectFor(minX, maxY+size*ws.deltaY, size*math.Abs(ws.deltaX), size*math.Abs(ws.deltaY))
}

// Focus moves the working set around a planar point.
// Missing chunks within the radius are created. toBuild are the pending chunks within the radius, nearest first.
// Chunks further than radius+1 from the focus are unloaded and dropped, unless they are being generated.
func (ws *WorkingSet) Focus(point orb.Point) (toBuild []*chunk.Chunk, evicted []*chunk.Chunk) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	center := ws.cellAt(point)
	if center != ws.focus {
		ws.logger.Debug("working set: focus moved to column %d, row %d", center.column, center.row)
	}
	ws.focus = center

	for column := center.column - ws.radius; column <= center.column+ws.radius; column++ {
		for row := center.row - ws.radius; row <= center.row+ws.radius; row++ {
			c := cell{column, row}
			if _, ok := ws.entries[c]; ok {
				continue
			}
			ws.insert(c, ws.origin.Offset(column, row))
		}
	}

	kept := make(map[*entry]bool)
	for _, spatial := range ws.tree.SearchIntersect(ws.rectAround(center, ws.radius+1)) {
		if e, ok := spatial.(*entry); ok {
			kept[e] = true
		}
	}

	for c, e := range ws.entries {
		if kept[e] {
			continue
		}
		if e.chunk.UnloadUnlessGenerating() == chunk.StatusGenerating {
			continue
		}
		ws.tree.Delete(e)
		delete(ws.entries, c)
		evicted = append(evicted, e.chunk)
	}

	sortByID(evicted)

	inRadius := ws.tree.SearchIntersect(ws.rectAround(center, ws.radius))
	nearest := ws.tree.NearestNeighbors(len(ws.entries), rtreego.Point{point.X(), point.Y()})
	inRadiusSet := make(map[*entry]bool, len(inRadius))
	for _, spatial := range inRadius {
		if e, ok := spatial.(*entry); ok {
			inRadiusSet[e] = true
		}
	}
	for _, spatial := range nearest {
		e, ok := spatial.(*entry)
		if !ok || !inRadiusSet[e] {
			continue
		}
		if e.chunk.Status() == chunk.StatusPending {
			toBuild = append(toBuild, e.chunk)
		}
	}

	if len(evicted) > 0 {
		ws.logger.Info("working set: %d chunks evicted, %d chunks kept", len(evicted), len(ws.entries))
	}

	return toBuild, evicted
}

// ChunkAt gives the chunk of the working set covering the planar point, if any
func (ws *WorkingSet) ChunkAt(point orb.Point) (*chunk.Chunk, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	e, ok := ws.entries[ws.cellAt(point)]
	if !ok {
		return nil, false
	}
	return e.chunk, true
}

// Get finds a chunk of the working set by its ID
func (ws *WorkingSet) Get(id string) (*chunk.Chunk, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for _, e := range ws.entries {
		if e.chunk.ID() == id {
			return e.chunk, true
		}
	}
	return nil, false
}

// ChunkContaining gives the chunk of the working set whose geographic bounds contain the point, if any
func (ws *WorkingSet) ChunkContaining(lon, lat float64) (*chunk.Chunk, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for _, e := range ws.entries {
		if funmap.ContainsPoint(e.chunk.GeoBounds(), lon, lat) {
			return e.chunk, true
		}
	}
	return nil, false
}

// Overlapping lists the chunks of the working set sharing some area with the bounds, sorted by ID
func (ws *WorkingSet) Overlapping(bounds osm.Bounds) []*chunk.Chunk {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	var chunks []*chunk.Chunk
	for _, e := range ws.entries {
		if funmap.Overlaps(e.chunk.GeoBounds(), bounds) {
			chunks = append(chunks, e.chunk)
		}
	}
	sortByID(chunks)
	return chunks
}

// Chunks lists the chunks of the working set, sorted by ID
func (ws *WorkingSet) Chunks() []*chunk.Chunk {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	chunks := make([]*chunk.Chunk, 0, len(ws.entries))
	for _, e := range ws.entries {
		chunks = append(chunks, e.chunk)
	}
	sortByID(chunks)
	return chunks
}

func (ws *WorkingSet) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	return ws.tree.Size()
}

func sortByID(chunks []*chunk.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID() < chunks[j].ID()
	})
}
