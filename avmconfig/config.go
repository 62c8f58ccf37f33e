// Copyright 2024 The probeum/avm Authors
// This file is part of the avm library.
//
// The avm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The avm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the avm library. If not, see <http://www.gnu.org/licenses/>.

// Package avmconfig loads VM-wide tunables from a TOML file, the way a
// node's config.toml is loaded at startup.
package avmconfig

import (
	"os"

	"github.com/naoina/toml"
)

// Config holds every tunable the VM needs at startup.
type Config struct {
	Scheduler SchedulerConfig
	Heap      HeapConfig
}

// SchedulerConfig controls reduction accounting.
type SchedulerConfig struct {
	// ReductionQuantum is the number of reductions a process runs before
	// the scheduler preempts it in favor of the next ready process.
	ReductionQuantum int `toml:"reduction_quantum"`
}

// HeapConfig controls per-process heap sizing.
type HeapConfig struct {
	InitialWords int `toml:"initial_words"`
	MaxWords     int `toml:"max_words"` // 0 == unbounded
}

// Default returns the configuration this VM ships with out of the box.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{ReductionQuantum: 2000},
		Heap:      HeapConfig{InitialWords: 4096, MaxWords: 0},
	}
}

// Load reads and decodes a TOML config file on top of Default, so fields
// the file omits keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := LoadInto(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadInto decodes the TOML file at path into cfg, overriding only the
// fields present in the file.
func LoadInto(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewDecoder(f).Decode(cfg)
}
