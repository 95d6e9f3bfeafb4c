package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/mapbuild"
	"github.com/hocman2/funmap/workingset"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/paulmach/orb"
)

// Builder is the part of the map build pipeline the session drives
type Builder interface {
	Start(chunks []*chunk.Chunk) bool
	TakeResults() []mapbuild.Result
	InFlight() bool
}

type EventType string

const (
	EventTypeBatchStarted   EventType = "batch_started"
	EventTypeChunkGenerated EventType = "chunk_generated"
	EventTypeChunkFailed    EventType = "chunk_failed"
	EventTypeChunksEvicted  EventType = "chunks_evicted"
	// EventTypeSnapshot lists the whole working set, for consumers joining late
	EventTypeSnapshot EventType = "snapshot"
)

type Event struct {
	Type     EventType `json:"type"`
	ChunkIDs []string  `json:"chunkIds"`
	Status   string    `json:"status,omitempty"`
	// MeshCount and RoadCount are only set for generated chunks
	MeshCount     int       `json:"meshCount,omitempty"`
	RoadCount     int       `json:"roadCount,omitempty"`
	SkippedWayIDs []uint64  `json:"skippedWayIds,omitempty"`
	Error         string    `json:"error,omitempty"`
	Time          time.Time `json:"time"`
}

type Listener func(event Event)

type Stats struct {
	Batches   int `json:"batches"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Evicted   int `json:"evicted"`
}

// Session is the consumer side of the map build: on every frame it collects finished chunks,
// keeps the working set around the focus point and starts a batch for the chunks still missing.
type Session struct {
	logger        *logpkg.Logger
	builder       Builder
	workingSet    *workingset.WorkingSet
	frameInterval time.Duration
	nowFunc       func() time.Time

	mu             *sync.Mutex
	focus          orb.Point
	listeners      map[int]Listener
	nextListenerID int
	stats          Stats
}

func NewSession(logger *logpkg.Logger, builder Builder, workingSet *workingset.WorkingSet, focus orb.Point, frameInterval time.Duration) *Session {
	return &Session{
		logger:        logger,
		builder:       builder,
		workingSet:    workingSet,
		frameInterval: frameInterval,
		nowFunc:       time.Now,
		mu:            new(sync.Mutex),
		focus:         focus,
		listeners:     make(map[int]Listener),
	}
}

func (s *Session) WorkingSet() *workingset.WorkingSet {
	return s.workingSet
}

func (s *Session) SetFocus(point orb.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.focus = point
}

func (s *Session) Focus() orb.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.focus
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Subscribe registers a listener for the session events. Listeners are called from the frame loop and must not block.
func (s *Session) Subscribe(listener Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.listeners, id)
	}
}

func (s *Session) emit(event Event) {
	event.Time = s.nowFunc()

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Retry puts the invalid chunks of the working set back to pending, so the next frame builds them again.
// It returns how many chunks were reset.
func (s *Session) Retry() int {
	count := 0
	for _, c := range s.workingSet.Chunks() {
		if c.Status() == chunk.StatusInvalid {
			c.SetStatus(chunk.StatusPending)
			count++
		}
	}
	return count
}

// Tick runs one frame. It never waits for the network.
func (s *Session) Tick() {
	for _, result := range s.builder.TakeResults() {
		s.handleResult(result)
	}

	toBuild, evicted := s.workingSet.Focus(s.Focus())
	if len(evicted) > 0 {
		s.mu.Lock()
		s.stats.Evicted += len(evicted)
		s.mu.Unlock()

		s.emit(Event{
			Type:     EventTypeChunksEvicted,
			ChunkIDs: chunkIDs(evicted),
		})
	}

	if len(toBuild) == 0 || s.builder.InFlight() {
		return
	}

	if !s.builder.Start(toBuild) {
		return
	}

	s.mu.Lock()
	s.stats.Batches++
	s.mu.Unlock()

	s.logger.Info("session: batch of %d chunks started", len(toBuild))
	s.emit(Event{
		Type:     EventTypeBatchStarted,
		ChunkIDs: chunkIDs(toBuild),
	})
}

func (s *Session) handleResult(result mapbuild.Result) {
	if result.Err != nil {
		var ids []string
		if result.Target != nil {
			ids = append(ids, result.Target.ID())
		}
		if transportErr, ok := result.Err.(*mapbuild.TransportError); ok {
			ids = append(ids, chunkIDs(transportErr.Aborted)...)
		}

		s.mu.Lock()
		s.stats.Failed += len(ids)
		s.mu.Unlock()

		s.emit(Event{
			Type:     EventTypeChunkFailed,
			ChunkIDs: ids,
			Status:   chunk.StatusInvalid.String(),
			Error:    result.Err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.stats.Generated++
	s.mu.Unlock()

	s.emit(Event{
		Type:          EventTypeChunkGenerated,
		ChunkIDs:      []string{result.Target.ID()},
		Status:        result.Target.Status().String(),
		MeshCount:     result.MeshCount,
		RoadCount:     result.RoadCount,
		SkippedWayIDs: result.SkippedWayIDs,
	})
}

// Run ticks at the frame interval until the context is done
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session: stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

func chunkIDs(chunks []*chunk.Chunk) []string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID())
	}
	return ids
}
