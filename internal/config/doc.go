// Package config provides configuration structures and utilities for the
// homeowners importer: CLI defaults, validation, the optional .homeowners
// YAML file and the XDG directories used for history.
package config
