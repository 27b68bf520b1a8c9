package versions

import (
	"context"
	"fmt"
	"sort"

	"github.com/sethvargo/go-envconfig"
)

// Releases maps a Python major version to the highest known minor release.
// This is the information that needs updating whenever Python makes a new
// release. It is passed explicitly into every enumeration and inverse
// computation so tests can substitute their own table.
type Releases map[int]int

// Known Python releases as of this writing.
const (
	maxPython1Version     = 6  // i.e. 1.6
	maxPython2Version     = 7  // i.e. 2.7
	currentPython3Version = 14 // i.e. 3.14
)

// DefaultReleases returns the built-in release table.
func DefaultReleases() Releases {
	return Releases{
		1: maxPython1Version,
		2: maxPython2Version,
		3: currentPython3Version,
	}
}

// releasesConfig allows the release table to be overridden from the
// environment, e.g. CPV_CURRENT_PYTHON_3=15 once a new Python ships.
type releasesConfig struct {
	MaxPython1     int `env:"CPV_MAX_PYTHON_1, default=6"`
	MaxPython2     int `env:"CPV_MAX_PYTHON_2, default=7"`
	CurrentPython3 int `env:"CPV_CURRENT_PYTHON_3, default=14"`
}

// LoadReleases builds the release table, applying any environment overrides.
func LoadReleases(ctx context.Context) (Releases, error) {
	var cfg releasesConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read release table overrides: %w", err)
	}
	return Releases{
		1: cfg.MaxPython1,
		2: cfg.MaxPython2,
		3: cfg.CurrentPython3,
	}, nil
}

// MaxMinor returns the highest known minor for a major version, or -1 for
// an unknown major.
func (r Releases) MaxMinor(major int) int {
	if minor, ok := r[major]; ok {
		return minor
	}
	return -1
}

// Majors returns the known major versions in ascending order.
func (r Releases) Majors() []int {
	majors := make([]int, 0, len(r))
	for major := range r {
		majors = append(majors, major)
	}
	sort.Ints(majors)
	return majors
}

// Latest returns the newest known 3.x release.
func (r Releases) Latest() Version {
	return MajorMinor(3, r[3])
}

// Upcoming returns the not-yet-released 3.x version that CI systems may
// already test opportunistically.
func (r Releases) Upcoming() Version {
	return MajorMinor(3, r[3]+1)
}
