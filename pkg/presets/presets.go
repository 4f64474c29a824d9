// Package presets loads the default timer durations applied when a session
// is created without an explicit duration.
package presets

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Presets maps session types to their default duration in minutes.
type Presets struct {
	WorkMinutes       int `yaml:"work_minutes"`
	ShortBreakMinutes int `yaml:"short_break_minutes"`
	LongBreakMinutes  int `yaml:"long_break_minutes"`
}

// Default returns the classic pomodoro durations.
func Default() Presets {
	return Presets{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
	}
}

// Load reads presets from a YAML file. Fields left out of the file keep
// their default values. An empty path returns the defaults.
func Load(path string) (Presets, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, fmt.Errorf("read presets: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Presets{}, fmt.Errorf("parse presets: %w", err)
	}

	if err := p.validate(); err != nil {
		return Presets{}, err
	}
	return p, nil
}

func (p Presets) validate() error {
	if p.WorkMinutes <= 0 || p.ShortBreakMinutes <= 0 || p.LongBreakMinutes <= 0 {
		return errors.New("preset durations must be positive")
	}
	return nil
}

// DurationFor returns the default duration in minutes for the given session
// type. Time tracking has no planned end, so it gets the work duration as a
// ceiling.
func (p Presets) DurationFor(sessionType string) int {
	switch sessionType {
	case "SHORT_BREAK":
		return p.ShortBreakMinutes
	case "LONG_BREAK":
		return p.LongBreakMinutes
	default:
		return p.WorkMinutes
	}
}
