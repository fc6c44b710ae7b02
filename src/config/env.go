package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// BuildEnv holds the environment overrides that affect how artifacts are built.
type BuildEnv struct {
	// Cargo is the cargo executable to invoke.
	Cargo string `env:"CARGO" envDefault:"cargo"`
	// Cross is the cross executable used by the cross strategy.
	Cross string `env:"CROSS" envDefault:"cross"`
	// CargoFlags are appended to every cargo build invocation.
	CargoFlags []string `env:"JXL_RELEASE_CARGO_FLAGS" envSeparator:" "`
	// SourceDateEpoch pins archive timestamps for reproducible packaging.
	SourceDateEpoch int64 `env:"SOURCE_DATE_EPOCH"`
	// DockerHost overrides the daemon address for container builds.
	DockerHost string `env:"JXL_RELEASE_DOCKER_HOST"`
}

// ParseBuildEnv reads BuildEnv from the process environment.
func ParseBuildEnv() (BuildEnv, error) {
	var e BuildEnv
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "failed to read build environment")
	}
	return e, nil
}

// ArchiveTime is the modification time stamped on every archive entry.
func (e BuildEnv) ArchiveTime() time.Time {
	if e.SourceDateEpoch > 0 {
		return time.Unix(e.SourceDateEpoch, 0).UTC()
	}
	// zip cannot represent anything earlier
	return time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
}
