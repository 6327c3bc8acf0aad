// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file discovers and loads settings.toml, configuring the CEL
// environment with custom variables, extensions, and proto descriptors.

package celsp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings is the root structure loaded from settings.toml.
type Settings struct {
	Env EnvSettings `toml:"env"`
}

// EnvSettings configures the CEL Env. All fields are optional.
type EnvSettings struct {
	Container     string            `toml:"container"`
	Extensions    []string          `toml:"extensions"`
	StrongEnums   *bool             `toml:"strong_enums"`
	Variables     map[string]string `toml:"variables"`
	Abbreviations []string          `toml:"abbreviations"`
	Proto         ProtoSettings     `toml:"proto"`
}

// ProtoSettings configures the proto descriptor registry.
type ProtoSettings struct {
	Descriptors []string `toml:"descriptors"`
}

// strongEnums reports the env.strong_enums setting, defaulting to true
// when unset. Only the proto registry's enum-field display reads it; it
// is not passed to CEL environment construction.
func (s EnvSettings) strongEnums() bool {
	return s.StrongEnums == nil || *s.StrongEnums
}

// loadSettings loads settings.toml from path. It returns default
// (zero-value) settings if the file doesn't exist or can't be parsed;
// callers are expected to log the returned error as a warning rather than
// fail the request.
func loadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// discoverSettings searches for settings.toml by walking up from
// startDir to the filesystem root, then, if not found, by checking
// startDir's immediate child directories. It returns the loaded settings
// (defaults if none were found or the file failed to parse) and the
// directory the settings file was found in (used to resolve
// proto.descriptors paths), logging a warning through logger for any
// load failure.
func discoverSettings(startDir string, logger *zap.Logger) (Settings, string) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, "settings.toml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			settings, err := loadSettings(candidate)
			if err != nil {
				logger.Sugar().Warnf("failed to parse settings.toml: %s", err)
				return Settings{}, dir
			}
			settings.Env.Extensions = filterExtensions(settings.Env.Extensions, logger)
			return settings, dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	entries, err := os.ReadDir(startDir)
	if err != nil {
		return Settings{}, startDir
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(startDir, entry.Name(), "settings.toml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			settings, err := loadSettings(candidate)
			if err != nil {
				logger.Sugar().Warnf("failed to parse settings.toml: %s", err)
				return Settings{}, filepath.Join(startDir, entry.Name())
			}
			settings.Env.Extensions = filterExtensions(settings.Env.Extensions, logger)
			return settings, filepath.Join(startDir, entry.Name())
		}
	}

	return Settings{}, startDir
}

// knownExtensions is the set of recognised env.extensions names.
var knownExtensions = map[string]bool{
	"strings":   true,
	"math":      true,
	"encoders":  true,
	"optionals": true,
	"all":       true,
}

// filterExtensions drops extension names outside the recognised set,
// warning for each.
func filterExtensions(names []string, logger *zap.Logger) []string {
	var out []string
	for _, name := range names {
		if !knownExtensions[name] {
			logger.Sugar().Warnf("unknown extension %q in settings.toml, ignoring", name)
			continue
		}
		out = append(out, name)
	}
	return out
}

// loadProtoRegistry loads the file descriptor sets named by
// settings.Env.Proto.Descriptors, relative to settingsDir, merging them
// into a single registry. Reads fan out concurrently via errgroup since
// descriptor files are independent and I/O bound; a descriptor that fails
// to load only warns, it does not prevent the others from loading.
// addFileDescriptorSet takes its own lock, so ingestion from multiple
// goroutines is safe.
func loadProtoRegistry(ctx context.Context, settings Settings, settingsDir string, logger *zap.Logger) *protoRegistry {
	if len(settings.Env.Proto.Descriptors) == 0 {
		return nil
	}

	registry := newProtoRegistry()
	registry.strongEnums = settings.Env.strongEnums()

	// Per-file failures are independent; they accumulate into one warning
	// instead of aborting the remaining loads.
	var mu sync.Mutex
	var loadErr error

	group, _ := errgroup.WithContext(ctx)
	for _, path := range settings.Env.Proto.Descriptors {
		path := path
		group.Go(func() error {
			fullPath := path
			if !filepath.IsAbs(path) {
				fullPath = filepath.Join(settingsDir, path)
			}
			err := loadDescriptorFile(registry, fullPath)
			if err != nil {
				mu.Lock()
				loadErr = multierr.Append(loadErr, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait() // goroutines never return a non-nil error; failures accumulate in loadErr

	if loadErr != nil {
		logger.Sugar().Warnf("failed to load proto descriptors: %s", loadErr)
	}
	return registry
}

func loadDescriptorFile(registry *protoRegistry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading proto descriptor file %q: %w", path, err)
	}
	if err := registry.addFileDescriptorSet(data); err != nil {
		return fmt.Errorf("loading proto descriptor %q: %w", path, err)
	}
	return nil
}
