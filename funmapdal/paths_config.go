package funmapdal

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/userextra"
)

type PathsConfig struct {
	TraceDir   string `yaml:"traceDir"`
	ProfileDir string `yaml:"profileDir"`
}

// EnsurePaths expands "~" in the configured directories and creates them
func (pc *PathsConfig) EnsurePaths(fs gofs.Fs) errorsx.Error {
	for _, dirPath := range []*string{&pc.TraceDir, &pc.ProfileDir} {
		expanded, err := userextra.ExpandUser(*dirPath)
		if err != nil {
			return errorsx.Wrap(err)
		}
		*dirPath = expanded

		err = fs.MkdirAll(expanded, 0755)
		if err != nil {
			return errorsx.Wrap(err, "path", expanded)
		}
	}

	return nil
}
