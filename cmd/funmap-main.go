package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/middleware"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/fonts"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/funmapdal"
	"github.com/hocman2/funmap/funmaprenderer"
	"github.com/hocman2/funmap/mapbuild"
	"github.com/hocman2/funmap/triangulator"
	"github.com/hocman2/funmap/viewer"
	"github.com/hocman2/funmap/webservices"
	"github.com/hocman2/funmap/workingset"
	tracing "github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/pkg/profile"
	"gopkg.in/alecthomas/kingpin.v2"
	pb "gopkg.in/cheggaaa/pb.v1"
)

const (
	DEFAULT_PORT = 9000
	// zoom level used by --at when none is given. Tiles are around 300m wide at mid latitudes.
	DEFAULT_AT_ZOOM_LEVEL = 17
)

var verbose *bool

func main() {
	verbose = kingpin.Flag("v", "verbose logging").Bool()

	setupServe()
	setupBuild()

	kingpin.Parse()
}

func newLogger() *logpkg.Logger {
	logLevel := logpkg.LogLevelInfo
	if *verbose {
		logLevel = logpkg.LogLevelDebug
	}
	return logpkg.NewLogger(os.Stderr, logLevel)
}

func loadConfig(configPath string) (*funmapdal.Config, errorsx.Error) {
	fs := gofs.NewOsFs()

	var config *funmapdal.Config
	var err errorsx.Error
	if configPath == "" {
		config, err = funmapdal.LoadDefaultConfig(fs)
	} else {
		config, err = funmapdal.LoadConfig(fs, configPath)
	}
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	err = config.Paths.EnsurePaths(fs)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return config, nil
}

func newPipeline(logger *logpkg.Logger, config *funmapdal.Config, projection *funmap.Projection) *mapbuild.Pipeline {
	client := &http.Client{
		Timeout: config.RequestTimeout,
	}
	fetcher := funmapdal.NewOSMAPIFetcher(logger, client, config.APIBaseURL, config.UserAgent)

	options := mapbuild.Options{
		MaxConcurrentRequests: config.MaxConcurrentRequests,
		Triangulation: triangulator.Options{
			Elevation: config.BuildingElevation,
		},
	}

	return mapbuild.NewPipeline(logger, fetcher, funmap.NewTagPool(), projection, options)
}

// parseTile reads a "z/x/y" slippy map tile
func parseTile(tileStr string) (x, y, zoomLevel int, err errorsx.Error) {
	fragments := strings.Split(tileStr, "/")
	if len(fragments) != 3 {
		return 0, 0, 0, errorsx.Errorf("expected a tile in the format z/x/y, but got %q", tileStr)
	}

	var ints [3]int
	for i, fragment := range fragments {
		value, atoiErr := strconv.Atoi(fragment)
		if atoiErr != nil {
			return 0, 0, 0, errorsx.Wrap(atoiErr, "tile", tileStr)
		}
		ints[i] = value
	}

	return ints[1], ints[2], ints[0], nil
}

// parseAt reads a "lon,lat" or "lon,lat,zoom" point and gives the slippy map tile containing it
func parseAt(atStr string) (x, y, zoomLevel int, err errorsx.Error) {
	fragments := strings.Split(atStr, ",")
	if len(fragments) != 2 && len(fragments) != 3 {
		return 0, 0, 0, errorsx.Errorf("expected a point in the format lon,lat[,zoom], but got %q", atStr)
	}

	lon, parseErr := strconv.ParseFloat(strings.TrimSpace(fragments[0]), 64)
	if parseErr != nil {
		return 0, 0, 0, errorsx.Wrap(parseErr, "at", atStr)
	}

	lat, parseErr := strconv.ParseFloat(strings.TrimSpace(fragments[1]), 64)
	if parseErr != nil {
		return 0, 0, 0, errorsx.Wrap(parseErr, "at", atStr)
	}

	if !funmap.IsValidPoint(lon, lat) {
		return 0, 0, 0, errorsx.Errorf("point (%f, %f) is outside of the world", lon, lat)
	}

	zoomLevel = DEFAULT_AT_ZOOM_LEVEL
	if len(fragments) == 3 {
		var atoiErr error
		zoomLevel, atoiErr = strconv.Atoi(strings.TrimSpace(fragments[2]))
		if atoiErr != nil {
			return 0, 0, 0, errorsx.Wrap(atoiErr, "at", atStr)
		}
	}

	x, y = chunk.TileAt(lon, lat, zoomLevel)
	return x, y, zoomLevel, nil
}

// initialChunk is the tile given with --tile or --at, or else the initial chunk of the config
func initialChunk(config *funmapdal.Config, projection *funmap.Projection, tileStr, atStr string) (*chunk.Chunk, errorsx.Error) {
	var x, y, zoomLevel int
	var err errorsx.Error

	switch {
	case tileStr != "" && atStr != "":
		return nil, errorsx.Errorf("--tile and --at can't be used together")
	case tileStr != "":
		x, y, zoomLevel, err = parseTile(tileStr)
	case atStr != "":
		x, y, zoomLevel, err = parseAt(atStr)
	default:
		return chunk.New(config.InitialChunk.ToBounds(), projection), nil
	}
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	c := chunk.NewFromTile(x, y, zoomLevel, projection)
	err = funmap.ValidateChunkBounds(c.GeoBounds())
	if err != nil {
		return nil, errorsx.Wrap(err, "zoomLevel", zoomLevel)
	}

	return c, nil
}

var addrHelp = fmt.Sprintf(
	`address to serve on. Ex: ':%d' listen on port %d to traffic from anywhere. 'localhost:%d' listen on port %d to traffic from localhost`,
	DEFAULT_PORT, DEFAULT_PORT, DEFAULT_PORT, DEFAULT_PORT,
)

func setupServe() {
	cmd := kingpin.Command("serve", "keep building the chunks around a focus point, and serve them over HTTP")
	addr := cmd.Flag("addr", addrHelp).Default(fmt.Sprintf("localhost:%d", DEFAULT_PORT)).String()
	configPath := cmd.Flag("config", "path to a YAML config file. Defaults to "+funmapdal.DefaultConfigPath+" if it exists").String()
	tileStr := cmd.Flag("tile", "start from the slippy map tile z/x/y instead of the configured initial chunk").String()
	atStr := cmd.Flag("at", "start from the slippy map tile containing the point lon,lat[,zoom] instead of the configured initial chunk").String()
	shouldProfile := cmd.Flag("profile", "profile the chunk preview rendering").Bool()
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		run := func() errorsx.Error {
			logger := newLogger()

			config, err := loadConfig(*configPath)
			if err != nil {
				return errorsx.Wrap(err)
			}

			projection := config.Projection()
			origin, err := initialChunk(config, projection, *tileStr, *atStr)
			if err != nil {
				return errorsx.Wrap(err)
			}

			pipeline := newPipeline(logger, config, projection)
			defer pipeline.Close()

			workingSet := workingset.New(logger, origin, config.WorkingSetRadius)
			session := viewer.NewSession(logger, pipeline, workingSet, origin.WorldBounds().Center(), config.FrameInterval)

			sessionCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go session.Run(sessionCtx)

			traceFilePath := filepath.Join(config.Paths.TraceDir, fmt.Sprintf("trace_%s.pbf", time.Now().Format("2006-01-02__15_04_05")))
			logger.Info("tracing at %q", traceFilePath)

			traceFile, createErr := os.Create(traceFilePath)
			if createErr != nil {
				return errorsx.Wrap(createErr)
			}
			defer traceFile.Close()

			tracer := tracing.NewTracer(traceFile)
			renderer := funmaprenderer.NewPreviewRenderer(fonts.DefaultFont(), funmaprenderer.DefaultStyle())

			router := webservices.NewRouter(logger, session, projection, renderer, webservices.RouterOptions{
				Middlewares:       []func(http.Handler) http.Handler{middleware.DefaultLogger, httpextra.CorsAllowAnythingMiddleware()},
				TracingMiddleware: tracing.Middleware(tracer),
				ShouldProfile:     *shouldProfile,
			})

			server := httpextra.NewServerWithTimeouts()
			server.Addr = *addr
			server.Handler = router

			logger.Info("about to start serving on %q. Admin page at http://%s%s", *addr, *addr, webservices.AdminPath)

			listenErr := server.ListenAndServe()
			if listenErr != nil {
				return errorsx.Wrap(listenErr)
			}
			return nil
		}

		err := run()
		if err != nil {
			return fmt.Errorf("error: %q\nStack trace:\n%s", err.Error(), err.Stack())
		}
		return nil
	})
}

func setupBuild() {
	cmd := kingpin.Command("build", "build the initial chunk once and print a summary")
	configPath := cmd.Flag("config", "path to a YAML config file. Defaults to "+funmapdal.DefaultConfigPath+" if it exists").String()
	withNeighbours := cmd.Flag("neighbours", "also build the 8 chunks around the initial chunk").Bool()
	tileStr := cmd.Flag("tile", "build the slippy map tile z/x/y instead of the configured initial chunk").String()
	atStr := cmd.Flag("at", "build the slippy map tile containing the point lon,lat[,zoom] instead of the configured initial chunk").String()
	shouldProfile := cmd.Flag("profile", "write a CPU profile to the profile directory").Bool()
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		run := func() errorsx.Error {
			logger := newLogger()

			config, err := loadConfig(*configPath)
			if err != nil {
				return errorsx.Wrap(err)
			}

			if *shouldProfile {
				defer profile.Start(profile.ProfilePath(config.Paths.ProfileDir), profile.CPUProfile).Stop()
			}

			projection := config.Projection()
			origin, err := initialChunk(config, projection, *tileStr, *atStr)
			if err != nil {
				return errorsx.Wrap(err)
			}

			chunks := []*chunk.Chunk{origin}
			if *withNeighbours {
				neighbours := origin.Neighbours()
				chunks = append(chunks, neighbours[:]...)
			}

			pipeline := newPipeline(logger, config, projection)
			defer pipeline.Close()

			results, err := runBuild(pipeline, chunks, config.FrameInterval)
			if err != nil {
				return errorsx.Wrap(err)
			}

			printSummary(results)
			return nil
		}

		err := run()
		if err != nil {
			return fmt.Errorf("error: %q\nStack trace:\n%s", err.Error(), err.Stack())
		}
		return nil
	})
}

// runBuild starts one batch and polls the pipeline until every chunk of it is settled
func runBuild(pipeline *mapbuild.Pipeline, chunks []*chunk.Chunk, pollInterval time.Duration) ([]mapbuild.Result, errorsx.Error) {
	if !pipeline.Start(chunks) {
		return nil, errorsx.Errorf("the map build pipeline refused the batch")
	}

	bar := pb.New(len(chunks)).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	var results []mapbuild.Result
	for {
		inFlight := pipeline.InFlight()

		for _, result := range pipeline.TakeResults() {
			results = append(results, result)
			bar.Add(settledChunkCount(result))
		}

		if !inFlight {
			break
		}

		time.Sleep(pollInterval)
	}

	bar.Finish()

	return results, nil
}

func settledChunkCount(result mapbuild.Result) int {
	if transportErr, ok := result.Err.(*mapbuild.TransportError); ok {
		return 1 + len(transportErr.Aborted)
	}
	return 1
}

func printSummary(results []mapbuild.Result) {
	var meshCount, roadCount, skippedCount, failedCount int
	var bodySize uint64

	for _, result := range results {
		if result.Err != nil {
			failedCount += settledChunkCount(result)
			fmt.Printf("%s: failed: %s\n", result.Target.ID(), result.Err)
			continue
		}

		meshCount += result.MeshCount
		roadCount += result.RoadCount
		skippedCount += len(result.SkippedWayIDs)
		bodySize += uint64(result.BodySize)

		fmt.Printf(
			"%s: %s buildings, %s roads, %d buildings skipped, %d missing node references (%s downloaded)\n",
			result.Target.ID(),
			humanize.Comma(int64(result.MeshCount)),
			humanize.Comma(int64(result.RoadCount)),
			len(result.SkippedWayIDs),
			result.MissingNodeRefs,
			humanize.Bytes(uint64(result.BodySize)),
		)
	}

	fmt.Printf("Buildings: %s\n", humanize.Comma(int64(meshCount)))
	fmt.Printf("Roads: %s\n", humanize.Comma(int64(roadCount)))
	fmt.Printf("Skipped buildings: %s\n", humanize.Comma(int64(skippedCount)))
	fmt.Printf("Failed chunks: %s\n", humanize.Comma(int64(failedCount)))
	fmt.Printf("Downloaded: %s\n", humanize.Bytes(bodySize))
}
