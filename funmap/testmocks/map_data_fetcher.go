package testmocks

import (
	"context"
	"net/http"

	"github.com/hocman2/funmap/funmapdal"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/osm"
)

type MockMapDataFetcher struct {
	FetchMapDataFunc func(ctx context.Context, bounds osm.Bounds) (*funmapdal.MapDataResponse, errorsx.Error)
}

func (f *MockMapDataFetcher) FetchMapData(ctx context.Context, bounds osm.Bounds) (*funmapdal.MapDataResponse, errorsx.Error) {
	return f.FetchMapDataFunc(ctx, bounds)
}

// NewMockMapDataFetcherFromBodies answers 200 with the body registered for the bounds, and 404 for unknown bounds
func NewMockMapDataFetcherFromBodies(bodies map[osm.Bounds]string) *MockMapDataFetcher {
	return &MockMapDataFetcher{
		FetchMapDataFunc: func(ctx context.Context, bounds osm.Bounds) (*funmapdal.MapDataResponse, errorsx.Error) {
			body, ok := bodies[bounds]
			if !ok {
				return &funmapdal.MapDataResponse{
					StatusCode: http.StatusNotFound,
					Body:       []byte("no map data for these bounds"),
				}, nil
			}

			return &funmapdal.MapDataResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(body),
			}, nil
		},
	}
}
