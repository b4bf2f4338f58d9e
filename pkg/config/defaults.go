package config

import (
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Defaults is the built-in configuration, below every file in precedence
// order (§4.1). It is expressed as a struct (rather than a literal map) and
// loaded through koanf's structs provider, so the defaults and the
// documentation of each field live in one place.
type Defaults struct {
	Path struct {
		Append  []string `koanf:"append"`
		Prepend []string `koanf:"prepend"`
	} `koanf:"path"`
	RepoPathFormat string `koanf:"repo_path_format"`
	Cache          struct {
		VersionListingTTLHours int `koanf:"version_listing_ttl_hours"`
	} `koanf:"cache"`
	PathRepoUpdates struct {
		Interval string `koanf:"interval"`
	} `koanf:"path_repo_updates"`
}

// DefaultConfig is the zero-layer configuration every Tree starts from.
func DefaultConfig() Defaults {
	d := Defaults{}
	d.RepoPathFormat = "%{host}/%{org}/%{repo}"
	d.Cache.VersionListingTTLHours = 24
	d.PathRepoUpdates.Interval = "12h"
	return d
}

// newBaseKoanf seeds a koanf instance from the built-in defaults, the
// bottom of the precedence stack.
func newBaseKoanf() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, err
	}
	return k, nil
}
