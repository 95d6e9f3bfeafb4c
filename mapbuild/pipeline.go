package mapbuild

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/destel/rill"
	"github.com/dustin/go-humanize"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/funmapdal"
	"github.com/hocman2/funmap/triangulator"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
)

type State int

const (
	StateIdle State = iota
	// StateDispatching means a batch was accepted but the background goroutine has not picked it up yet
	StateDispatching
	StateWorking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateWorking:
		return "working"
	default:
		return fmt.Sprintf("unknown state (%d)", int(s))
	}
}

type Options struct {
	MaxConcurrentRequests int
	Triangulation         triangulator.Options
}

func DefaultOptions() Options {
	return Options{
		MaxConcurrentRequests: funmapdal.DefaultMaxConcurrentRequests,
		Triangulation:         triangulator.DefaultOptions(),
	}
}

// Result is the outcome for one chunk. Err is nil, or one of *TransportError, *RequestError, *HTTPError, *InternalError.
type Result struct {
	Target    *chunk.Chunk
	Err       error
	MeshCount int
	RoadCount int
	// SkippedWayIDs are buildings that could not be triangulated. They do not fail the chunk.
	SkippedWayIDs   []uint64
	MissingNodeRefs int
	BodySize        int
}

// Pipeline fetches and builds batches of chunks on a background goroutine.
// Only one batch runs at a time. Results are queued until the consumer takes them.
type Pipeline struct {
	logger     *logpkg.Logger
	fetcher    funmapdal.MapDataFetcher
	tagPool    *funmap.TagPool
	projection *funmap.Projection
	options    Options

	jobs      chan []*chunk.Chunk
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce *sync.Once

	mu      *sync.Mutex
	state   State
	closed  bool
	results []Result
}

func NewPipeline(logger *logpkg.Logger, fetcher funmapdal.MapDataFetcher, tagPool *funmap.TagPool, projection *funmap.Projection, options Options) *Pipeline {
	if options.MaxConcurrentRequests < 1 {
		options.MaxConcurrentRequests = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		logger:     logger,
		fetcher:    fetcher,
		tagPool:    tagPool,
		projection: projection,
		options:    options,
		jobs:       make(chan []*chunk.Chunk, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		closeOnce:  new(sync.Once),
		mu:         new(sync.Mutex),
		state:      StateIdle,
	}

	go p.run()
	p.logger.Info("map build: started, waiting for a batch")

	return p
}

// Start hands a batch to the background goroutine and marks its chunks as generating.
// It returns false, and does nothing, if a batch is already in flight or the pipeline is closed.
func (p *Pipeline) Start(chunks []*chunk.Chunk) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("map build: batch of %d chunks ignored, the pipeline is closed", len(chunks))
		return false
	}

	if p.state != StateIdle {
		p.logger.Warn("map build: batch of %d chunks ignored, there is already one running", len(chunks))
		return false
	}

	for _, c := range chunks {
		c.SetStatus(chunk.StatusGenerating)
	}

	p.state = StateDispatching
	// the slot is always empty when idle
	p.jobs <- chunks

	return true
}

// TakeResults empties the result queue. It never blocks on a running batch.
func (p *Pipeline) TakeResults() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := p.results
	p.results = nil
	return results
}

func (p *Pipeline) InFlight() bool {
	return p.State() != StateIdle
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Close stops the background goroutine, cancelling the requests of a running batch, and waits for it to exit
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.cancel()
		<-p.done
		p.logger.Info("map build: exited")
	})
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = state
}

func (p *Pipeline) pushResult(result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.results = append(p.results, result)
}

func (p *Pipeline) run() {
	defer close(p.done)

	for {
		select {
		case <-p.ctx.Done():
			// a batch accepted just before closing never gets fetched
			select {
			case chunks := <-p.jobs:
				for _, c := range chunks {
					c.SetStatus(chunk.StatusPending)
				}
			default:
			}
			p.setState(StateIdle)
			return
		case chunks := <-p.jobs:
			p.setState(StateWorking)
			p.runBatch(chunks)
			p.setState(StateIdle)
		}
	}
}

type fetchedChunk struct {
	target   *chunk.Chunk
	response *funmapdal.MapDataResponse
	// fetchErr is set when this request failed on its own
	fetchErr errorsx.Error
}

type fetchFailure struct {
	target *chunk.Chunk
	cause  errorsx.Error
}

func (f *fetchFailure) Error() string {
	return f.cause.Error()
}

func (p *Pipeline) runBatch(chunks []*chunk.Chunk) {
	if len(chunks) == 0 {
		p.logger.Info("map build: empty batch, nothing to do")
		return
	}

	p.logger.Info("map build: batch of %d chunks started", len(chunks))
	startTime := time.Now()

	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	outstanding := make(map[*chunk.Chunk]bool, len(chunks))
	for _, c := range chunks {
		outstanding[c] = true
	}

	responses := rill.Map(rill.FromSlice(chunks, nil), p.options.MaxConcurrentRequests, func(target *chunk.Chunk) (fetchedChunk, error) {
		if ctx.Err() != nil {
			return fetchedChunk{}, &fetchFailure{target, errorsx.Wrap(ctx.Err())}
		}

		p.logger.Debug("map build: fetching %s", target.ID())
		response, err := p.fetcher.FetchMapData(ctx, target.GeoBounds())
		if err != nil {
			if ctx.Err() != nil {
				return fetchedChunk{}, &fetchFailure{target, err}
			}
			return fetchedChunk{target: target, fetchErr: err}, nil
		}

		return fetchedChunk{target: target, response: response}, nil
	})

	var totalBytes int
	for item := range responses {
		if item.Error != nil {
			cancel()
			rill.DrainNB(responses)

			failure := item.Error.(*fetchFailure)
			p.abortBatch(failure, chunks, outstanding)
			return
		}

		delete(outstanding, item.Value.target)

		if item.Value.fetchErr != nil {
			p.pushResult(p.failRequest(item.Value.target, item.Value.fetchErr))
			continue
		}

		totalBytes += len(item.Value.response.Body)

		result := p.buildChunk(ctx, item.Value.target, item.Value.response)
		p.pushResult(result)
	}

	p.logger.Info(
		"map build: batch of %d chunks finished in %s, %s downloaded",
		len(chunks),
		time.Since(startTime),
		humanize.Bytes(uint64(totalBytes)),
	)
}

func (p *Pipeline) abortBatch(failure *fetchFailure, chunks []*chunk.Chunk, outstanding map[*chunk.Chunk]bool) {
	var aborted []*chunk.Chunk
	// keep the batch order
	for _, c := range chunks {
		if !outstanding[c] {
			continue
		}
		c.SetStatus(chunk.StatusInvalid)
		if c != failure.target {
			aborted = append(aborted, c)
		}
	}

	if p.ctx.Err() != nil {
		p.logger.Info("map build: batch cancelled, %d chunks invalidated", len(aborted)+1)
	} else {
		p.logger.Error("map build: batch failed while fetching %s: %s. %d other chunks aborted", failure.target.ID(), failure.cause.Error(), len(aborted))
	}

	p.pushResult(Result{
		Target: failure.target,
		Err: &TransportError{
			Cause:   failure.cause,
			Aborted: aborted,
		},
	})
}

func (p *Pipeline) failRequest(target *chunk.Chunk, cause errorsx.Error) Result {
	target.SetStatus(chunk.StatusInvalid)
	p.logger.Warn("map build: %s failed, no answer from the map API: %s", target.ID(), cause.Error())

	return Result{
		Target: target,
		Err:    &RequestError{Cause: cause},
	}
}

func (p *Pipeline) buildChunk(ctx context.Context, target *chunk.Chunk, response *funmapdal.MapDataResponse) Result {
	if response.StatusCode >= 400 {
		target.SetStatus(chunk.StatusInvalid)
		httpErr := &HTTPError{
			StatusCode: response.StatusCode,
			Body:       response.Body,
		}
		p.logger.Warn("map build: %s failed: %s", target.ID(), httpErr.Error())
		return Result{
			Target:   target,
			Err:      httpErr,
			BodySize: len(response.Body),
		}
	}

	p.logger.Debug("map build: parsing %s (%s)", target.ID(), humanize.Bytes(uint64(len(response.Body))))
	mapData, err := funmapdal.ParseMapData(ctx, bytes.NewReader(response.Body), p.tagPool)
	if err != nil {
		target.SetStatus(chunk.StatusInvalid)
		p.logger.Error("map build: %s failed to parse: %s", target.ID(), err.Error())
		return Result{
			Target:   target,
			Err:      &InternalError{Cause: err},
			BodySize: len(response.Body),
		}
	}

	if mapData.MissingNodeRefs > 0 {
		p.logger.Warn("map build: %s has %d references to unknown nodes, they were dropped", target.ID(), mapData.MissingNodeRefs)
	}

	p.logger.Debug("map build: building %s", target.ID())
	meshes, skipped := triangulator.TriangulateAll(mapData.Buildings(), p.projection, p.options.Triangulation)

	var skippedWayIDs []uint64
	for _, skippedWay := range skipped {
		p.logger.Warn("map build: %s: building way %d skipped: %s", target.ID(), skippedWay.WayID, skippedWay.Err.Error())
		skippedWayIDs = append(skippedWayIDs, skippedWay.WayID)
	}

	roads := mapData.Highways()
	target.Upload(meshes, roads)

	p.logger.Debug("map build: %s delivered, %d meshes and %d roads", target.ID(), len(meshes), len(roads))

	return Result{
		Target:          target,
		MeshCount:       len(meshes),
		RoadCount:       len(roads),
		SkippedWayIDs:   skippedWayIDs,
		MissingNodeRefs: mapData.MissingNodeRefs,
		BodySize:        len(response.Body),
	}
}
