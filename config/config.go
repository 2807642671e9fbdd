// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package config handles zm2.toml machine configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/zm2/cpu"
	"github.com/ezrec/zm2/translate"
)

var f = translate.From

const (
	FILENAME = "zm2.toml" // Name of the configuration file.
)

var (
	ErrConfigRead  = errors.New(f("configuration unreadable"))
	ErrConfigParse = errors.New(f("configuration invalid"))
)

// Config represents a zm2.toml configuration.
type Config struct {
	Story   Story             `toml:"story"`
	Machine Machine           `toml:"machine"`
	Layout  Layout            `toml:"layout"`
	Equates map[string]string `toml:"equates"`

	// Dir is the directory containing the zm2.toml file (set at load time).
	Dir string `toml:"-"`
}

// Story selects the story to run.
type Story struct {
	Path   string `toml:"path"`   // Story file to load.
	Source string `toml:"source"` // Assembly source to build instead.
	Output string `toml:"output"` // Where to save an assembled story.
}

// Machine configures the emulator.
type Machine struct {
	Verbose       bool   `toml:"verbose"`
	Limit         int    `toml:"limit"` // Instruction budget, zero for none.
	StrictGlobals bool   `toml:"strict-globals"`
	Dump          string `toml:"dump"` // Snapshot written after the machine halts.
}

// Layout configures the story built from assembly source.
type Layout struct {
	CodeStart     uint64 `toml:"code-start"`
	DynamicLength uint64 `toml:"dynamic-length"`
	Release       uint16 `toml:"release"`
	StoryId       uint64 `toml:"story-id"`
}

// Default returns the configuration used when no zm2.toml exists.
func Default() (cfg *Config) {
	cfg = &Config{
		Layout: Layout{
			DynamicLength: cpu.DYNAMIC_LENGTH_DEFAULT,
		},
		Equates: map[string]string{},
		Dir:     ".",
	}
	return
}

// Load parses a zm2.toml file from the given directory.
func Load(dir string) (cfg *Config, err error) {
	path := filepath.Join(dir, FILENAME)
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Join(ErrConfigRead, err)
		return
	}

	cfg = Default()
	err = toml.Unmarshal(data, cfg)
	if err != nil {
		cfg = nil
		err = errors.Join(ErrConfigParse, err)
		return
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		cfg = nil
		return
	}

	if cfg.Equates == nil {
		cfg.Equates = map[string]string{}
	}

	return
}

// FindAndLoad walks up from dir to find a zm2.toml file, then loads it.
// Returns nil if no configuration is found.
func FindAndLoad(dir string) (cfg *Config, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return
	}

	for {
		_, err = os.Stat(filepath.Join(dir, FILENAME))
		if err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			err = nil
			return
		}
		dir = parent
	}
}

// Resolve returns path relative to the configuration directory.
func (cfg *Config) Resolve(path string) string {
	if len(path) == 0 || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.Dir, path)
}

// StoryLayout returns the layout for stories built from source.
func (cfg *Config) StoryLayout() cpu.Layout {
	return cpu.Layout{
		Release:       cfg.Layout.Release,
		StoryId:       cfg.Layout.StoryId,
		CodeStart:     cfg.Layout.CodeStart,
		DynamicLength: cfg.Layout.DynamicLength,
	}
}
