package funmapdal

import (
	"os"
	"time"

	"github.com/hocman2/funmap/funmap"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/paulmach/osm"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent             = "funmap/0.1"
	DefaultRequestTimeout        = 30 * time.Second
	DefaultMaxConcurrentRequests = 4
	DefaultWorkingSetRadius      = 1
	DefaultFrameInterval         = time.Second / 60
	// DefaultBuildingElevation mirrors triangulator.DefaultElevation
	DefaultBuildingElevation = 0.5
)

type GeoPoint struct {
	Lon float64 `yaml:"lon"`
	Lat float64 `yaml:"lat"`
}

type BoundsConfig struct {
	MinLon float64 `yaml:"minLon"`
	MinLat float64 `yaml:"minLat"`
	MaxLon float64 `yaml:"maxLon"`
	MaxLat float64 `yaml:"maxLat"`
}

func (b BoundsConfig) ToBounds() osm.Bounds {
	return osm.Bounds{
		MinLon: b.MinLon,
		MinLat: b.MinLat,
		MaxLon: b.MaxLon,
		MaxLat: b.MaxLat,
	}
}

type Config struct {
	APIBaseURL            string        `yaml:"apiBaseURL"`
	UserAgent             string        `yaml:"userAgent"`
	RequestTimeout        time.Duration `yaml:"requestTimeout"`
	MaxConcurrentRequests int           `yaml:"maxConcurrentRequests"`
	BuildingElevation     float32       `yaml:"buildingElevation"`
	// Reference is the origin of the planar coordinates. Defaults to the south-west corner of the initial chunk.
	Reference    *GeoPoint    `yaml:"reference"`
	InitialChunk BoundsConfig `yaml:"initialChunk"`
	// WorkingSetRadius is how many rings of chunks are kept around the focused chunk
	WorkingSetRadius int           `yaml:"workingSetRadius"`
	FrameInterval    time.Duration `yaml:"frameInterval"`
	Paths            PathsConfig   `yaml:"paths"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:            DefaultAPIBaseURL,
		UserAgent:             DefaultUserAgent,
		RequestTimeout:        DefaultRequestTimeout,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		BuildingElevation:     DefaultBuildingElevation,
		InitialChunk: BoundsConfig{
			MinLon: 2.25797,
			MinLat: 48.61416,
			MaxLon: 2.26037,
			MaxLat: 48.61511,
		},
		WorkingSetRadius: DefaultWorkingSetRadius,
		FrameInterval:    DefaultFrameInterval,
		Paths: PathsConfig{
			TraceDir:   "~/.local/share/funmap/traces",
			ProfileDir: "~/.local/share/funmap/profiles",
		},
	}
}

// DefaultConfigPath is read when no config file is given. Unlike a given file, it does not have to exist.
const DefaultConfigPath = "~/.config/funmap/config.yaml"

// LoadConfig reads a YAML config file over the defaults. The file must exist.
func LoadConfig(fs gofs.Fs, path string) (*Config, errorsx.Error) {
	return loadConfig(fs, path, false)
}

// LoadDefaultConfig reads the file at DefaultConfigPath over the defaults, if there is one
func LoadDefaultConfig(fs gofs.Fs) (*Config, errorsx.Error) {
	path, err := userextra.ExpandUser(DefaultConfigPath)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return loadConfig(fs, path, true)
}

func loadConfig(fs gofs.Fs, path string, allowMissing bool) (*Config, errorsx.Error) {
	config := DefaultConfig()

	data, err := fs.ReadFile(path)
	if err != nil {
		if allowMissing && os.IsNotExist(err) {
			return config, nil
		}
		return nil, errorsx.Wrap(err, "path", path)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}

	validationErr := config.Validate()
	if validationErr != nil {
		return nil, errorsx.Wrap(validationErr, "path", path)
	}

	return config, nil
}

func (c *Config) Validate() errorsx.Error {
	if c.APIBaseURL == "" {
		return errorsx.Errorf("apiBaseURL must not be empty")
	}
	if c.MaxConcurrentRequests < 1 {
		return errorsx.Errorf("maxConcurrentRequests must be at least 1, got %d", c.MaxConcurrentRequests)
	}
	if c.BuildingElevation <= 0 {
		return errorsx.Errorf("buildingElevation must be positive, got %f", c.BuildingElevation)
	}
	if c.WorkingSetRadius < 0 {
		return errorsx.Errorf("workingSetRadius must not be negative, got %d", c.WorkingSetRadius)
	}
	if c.FrameInterval <= 0 {
		return errorsx.Errorf("frameInterval must be positive, got %s", c.FrameInterval)
	}

	err := funmap.ValidateChunkBounds(c.InitialChunk.ToBounds())
	if err != nil {
		return errorsx.Wrap(err, "field", "initialChunk")
	}

	return nil
}

// Projection builds the projection shared by every chunk of a session
func (c *Config) Projection() *funmap.Projection {
	if c.Reference != nil {
		return funmap.NewProjection(c.Reference.Lon, c.Reference.Lat)
	}
	return funmap.NewProjection(c.InitialChunk.MinLon, c.InitialChunk.MinLat)
}
