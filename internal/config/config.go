// Package config holds the runtime settings of the viewer
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/loader"
	"github.com/philipparndt/gomol/internal/playback"
	"github.com/philipparndt/gomol/internal/rcsb"
)

// Environment variables:
//
//	GOMOL_REMOTE_URL=<template with {id}>
//	GOMOL_METADATA_URL=<template with {id}>
//	GOMOL_FPS=<frames per second>
//	GOMOL_WATCH_DEBOUNCE=<duration, e.g. 500ms>
//	GOMOL_JOURNAL=<sqlite path, empty disables the journal>
//	GOMOL_REPRESENTATION=cartoon|ball-and-stick|molecular-surface|gaussian-surface
//	GOMOL_COLOR=chain-id|element-symbol|rainbow|hydrophobicity
//	GOMOL_DEFAULT_STRUCTURE=<id loaded on GUI start>
//	GOMOL_S3_REGION, GOMOL_S3_ENDPOINT, GOMOL_S3_PATH_STYLE=true|false
const envPrefix = "GOMOL_"

// S3 configures s3:// sources
type S3 struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// Config is the full set of runtime settings
type Config struct {
	RemoteURLTemplate     string
	MetadataURLTemplate   string
	TargetFPS             int
	WatchDebounce         time.Duration
	JournalPath           string
	DefaultRepresentation engine.RepresentationKind
	DefaultColor          engine.ColorTheme
	DefaultStructure      string
	S3                    S3
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		RemoteURLTemplate:     loader.DefaultURLTemplate,
		MetadataURLTemplate:   rcsb.DefaultURLTemplate,
		TargetFPS:             playback.DefaultFPS,
		WatchDebounce:         500 * time.Millisecond,
		DefaultRepresentation: engine.Cartoon,
		DefaultColor:          engine.ChainID,
		DefaultStructure:      "1BNA",
		S3:                    S3{Region: "us-east-1"},
	}
}

// FromEnv applies GOMOL_* overrides on top of base
func FromEnv(base Config) (Config, error) {
	return fromLookup(base, os.LookupEnv)
}

func fromLookup(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		return strings.TrimSpace(v), ok
	}

	var errs []error
	if v, ok := get("REMOTE_URL"); ok && v != "" {
		cfg.RemoteURLTemplate = v
	}
	if v, ok := get("METADATA_URL"); ok && v != "" {
		cfg.MetadataURLTemplate = v
	}
	if v, ok := get("FPS"); ok && v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFPS: %w", envPrefix, err))
		} else {
			cfg.TargetFPS = fps
		}
	}
	if v, ok := get("WATCH_DEBOUNCE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWATCH_DEBOUNCE: %w", envPrefix, err))
		} else {
			cfg.WatchDebounce = d
		}
	}
	if v, ok := get("JOURNAL"); ok {
		cfg.JournalPath = v
	}
	if v, ok := get("REPRESENTATION"); ok && v != "" {
		kind, err := engine.ParseRepresentationKind(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREPRESENTATION: %w", envPrefix, err))
		} else {
			cfg.DefaultRepresentation = kind
		}
	}
	if v, ok := get("COLOR"); ok && v != "" {
		theme, err := engine.ParseColorTheme(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCOLOR: %w", envPrefix, err))
		} else {
			cfg.DefaultColor = theme
		}
	}
	if v, ok := get("DEFAULT_STRUCTURE"); ok {
		cfg.DefaultStructure = v
	}
	if v, ok := get("S3_REGION"); ok && v != "" {
		cfg.S3.Region = v
	}
	if v, ok := get("S3_ENDPOINT"); ok {
		cfg.S3.Endpoint = v
	}
	if v, ok := get("S3_PATH_STYLE"); ok {
		cfg.S3.PathStyle = strings.EqualFold(v, "true")
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings for consistency
func (c Config) Validate() error {
	var errs []error
	if !strings.Contains(c.RemoteURLTemplate, "{id}") {
		errs = append(errs, fmt.Errorf("remote url template %q has no {id} placeholder", c.RemoteURLTemplate))
	}
	if !strings.Contains(c.MetadataURLTemplate, "{id}") {
		errs = append(errs, fmt.Errorf("metadata url template %q has no {id} placeholder", c.MetadataURLTemplate))
	}
	if c.TargetFPS <= 0 || c.TargetFPS > 240 {
		errs = append(errs, fmt.Errorf("fps must be between 1 and 240, got %d", c.TargetFPS))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch debounce must not be negative"))
	}
	if _, err := engine.ParseRepresentationKind(string(c.DefaultRepresentation)); err != nil {
		errs = append(errs, err)
	}
	if _, err := engine.ParseColorTheme(string(c.DefaultColor)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
