package motor

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	deverrors "github.com/rehagrip/rehagrip/motor/errors"
)

const (
	PresetMinDegrees = -60
	PresetMaxDegrees = 60
)

type Preset struct {
	Name string  `json:"name"`
	Pos  float64 `json:"pos"`
}

// presetFile is the on-disk shape. The collection is read and written
// wholesale; there is no partial-update format.
type presetFile struct {
	Presets     []Preset `json:"presets"`
	LastUpdated int64    `json:"last_updated"`
	Version     string   `json:"version"`
}

const presetFileVersion = "1.0"

func DefaultPresets() []Preset {
	return []Preset{
		{Name: "Neutral", Pos: 0},
		{Name: "Open", Pos: 45},
		{Name: "Closed", Pos: -45},
	}
}

// PresetStore persists named target positions to a flat JSON file. The
// in-memory list only ever reflects a confirmed write; a failed save leaves
// both the file and memory as they were.
type PresetStore struct {
	mu      sync.Mutex
	path    string
	presets []Preset
}

// DefaultPresetPath resolves the preset file location: PRESET_FILE wins,
// then $XDG_STATE_HOME/rehagrip, then ~/.local/state/rehagrip.
func DefaultPresetPath() string {
	if env := os.Getenv("PRESET_FILE"); env != "" {
		return env
	}

	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "rehagrip", "motor_presets.json")
}

// NewPresetStore loads the persisted collection, falling back to the
// defaults when the file does not exist yet.
func NewPresetStore(path string) (s *PresetStore, err error) {
	s = &PresetStore{path: path}
	s.presets, err = s.readFile()
	return
}

func (s *PresetStore) Path() string {
	return s.path
}

// List returns a copy of the in-memory collection.
func (s *PresetStore) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

// Save validates and clamps the incoming collection, replaces the persisted
// file wholesale and returns the stored result. Positions outside
// [-60, 60] are silently clamped; empty names are rejected.
func (s *PresetStore) Save(presets []Preset) (saved []Preset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved = make([]Preset, len(presets))
	for i, p := range presets {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, deverrors.InvalidInputError{Field: "presets", Reason: "each preset must have a non-empty name"}
		}
		saved[i] = Preset{Name: name, Pos: clampDegrees(p.Pos)}
	}

	if err = s.writeFile(saved); err != nil {
		return nil, err
	}

	s.presets = saved
	return
}

// Reload discards any unsaved in-memory edits in favor of the persisted
// copy.
func (s *PresetStore) Reload() (presets []Preset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err = s.readFile()
	if err != nil {
		return nil, err
	}

	s.presets = presets
	return
}

func (s *PresetStore) readFile() ([]Preset, error) {
	raw, err := ioutil.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPresets(), nil
		}
		return nil, deverrors.StorageError{Op: "read", Path: s.path, Err: err}
	}

	var file presetFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, deverrors.StorageError{Op: "parse", Path: s.path, Err: err}
	}

	if file.Presets == nil {
		return DefaultPresets(), nil
	}
	return file.Presets, nil
}

func (s *PresetStore) writeFile(presets []Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return deverrors.StorageError{Op: "write", Path: s.path, Err: err}
	}

	raw, err := json.MarshalIndent(presetFile{
		Presets:     presets,
		LastUpdated: time.Now().Unix(),
		Version:     presetFileVersion,
	}, "", "  ")
	if err != nil {
		return deverrors.StorageError{Op: "write", Path: s.path, Err: err}
	}

	if err := ioutil.WriteFile(s.path, raw, 0644); err != nil {
		return deverrors.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func clampDegrees(pos float64) float64 {
	if pos < PresetMinDegrees {
		return PresetMinDegrees
	}
	if pos > PresetMaxDegrees {
		return PresetMaxDegrees
	}
	return pos
}
