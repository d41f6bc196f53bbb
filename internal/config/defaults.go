// Package config handles the optional multibuild configuration file.
package config

import "time"

const (
	// ConfigFileName is the file looked up in the working directory and its parents.
	ConfigFileName = "multibuild.yml"

	// DefaultQuietPeriod is how long the tree must stay unchanged before a rebuild.
	DefaultQuietPeriod = time.Second

	// CurrentVersion is the current config schema version.
	CurrentVersion = 1
)
