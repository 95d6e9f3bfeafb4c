package funmapdal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/paulmach/osm"
)

const DefaultAPIBaseURL = "https://www.openstreetmap.org"

// MapDataResponse is whatever the server answered, including error statuses
type MapDataResponse struct {
	StatusCode int
	Body       []byte
}

// MapDataFetcher downloads the raw map data for an area.
// An error is only returned when no HTTP status could be obtained.
type MapDataFetcher interface {
	FetchMapData(ctx context.Context, bounds osm.Bounds) (*MapDataResponse, errorsx.Error)
}

type OSMAPIFetcher struct {
	logger    *logpkg.Logger
	client    httpextra.Doer
	baseURL   string
	userAgent string
}

func NewOSMAPIFetcher(logger *logpkg.Logger, client httpextra.Doer, baseURL, userAgent string) *OSMAPIFetcher {
	return &OSMAPIFetcher{
		logger:    logger,
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
	}
}

// MapURL is the map call of the OSM API v0.6 for the bounds
func MapURL(baseURL string, bounds osm.Bounds) string {
	return fmt.Sprintf(
		"%s/api/0.6/map?bbox=%s,%s,%s,%s",
		strings.TrimSuffix(baseURL, "/"),
		formatCoord(bounds.MinLon),
		formatCoord(bounds.MinLat),
		formatCoord(bounds.MaxLon),
		formatCoord(bounds.MaxLat),
	)
}

func formatCoord(coord float64) string {
	return strconv.FormatFloat(coord, 'f', -1, 64)
}

func (f *OSMAPIFetcher) FetchMapData(ctx context.Context, bounds osm.Bounds) (*MapDataResponse, errorsx.Error) {
	url := MapURL(f.baseURL, bounds)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	defer resp.Body.Close()

	reader, err := httpextra.RemoveGzip(resp)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}

	f.logger.Debug("fetched %q: status %d, %s", url, resp.StatusCode, humanize.Bytes(uint64(len(body))))

	return &MapDataResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
