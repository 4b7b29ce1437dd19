// Package stack describes the Heroku base images the builder can target and
// which Python release series each of them still supports.
package stack

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Stack names the builder knows. Anything else is rejected up front.
const (
	Heroku20 = "heroku-20"
	Heroku22 = "heroku-22"
)

// Supported maps each stack to the Python release series that may be built
// for it. Newer stacks drop series whose upstream support has ended; these
// lists must stay in sync with the runtime archives the buildpack serves.
var Supported = map[string][]string{
	Heroku20: {"2.7", "3.4", "3.5", "3.6", "3.7", "3.8", "3.9", "3.10", "3.11"},
	Heroku22: {"3.9", "3.10", "3.11"},
}

// ParseVersion parses the exact interpreter version to build. Partial
// versions are rejected since the full x.y.z is needed to template the
// download URL and name the produced archive.
func ParseVersion(raw string) (*semver.Version, error) {
	version, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "Invalid Python version '%s'", raw)
	}

	return version, nil
}

// Series returns the release series a version belongs to, i.e. "3.11" for
// version 3.11.3.
func Series(version *semver.Version) string {
	return fmt.Sprintf("%d.%d", version.Major(), version.Minor())
}

// Check verifies that the named stack exists and supports the release series
// of the given version. It has to pass before the pipeline touches the
// network or the filesystem.
func Check(name string, version *semver.Version) error {
	if name == "" {
		return eris.New("The STACK environment variable must be set!")
	}

	series, found := Supported[name]
	if !found {
		return eris.Errorf("Unsupported stack '%s'!", name)
	}

	want := Series(version)
	for _, item := range series {
		if item == want {
			return nil
		}
	}

	return eris.Errorf("Python %s is not supported on %s!", version, name)
}
