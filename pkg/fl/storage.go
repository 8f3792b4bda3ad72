package fl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// PersistentStorage keeps round records, model snapshots and run results as
// JSON files.
type PersistentStorage struct {
	roundsDir  string
	modelsDir  string
	resultsDir string
	mu         sync.RWMutex
}

func NewPersistentStorage(roundsDir, modelsDir, resultsDir string) (*PersistentStorage, error) {
	for _, dir := range []string{roundsDir, modelsDir, resultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &PersistentStorage{
		roundsDir:  roundsDir,
		modelsDir:  modelsDir,
		resultsDir: resultsDir,
	}, nil
}

func (ps *PersistentStorage) SaveRound(roundID string, state *RoundState) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	sanitizedRoundID := sanitize(roundID, false)
	if sanitizedRoundID == "" {
		return fmt.Errorf("%w: round %q", ErrInvalidName, roundID)
	}

	return writeJSON(filepath.Join(ps.roundsDir, "round_"+sanitizedRoundID+".json"), state)
}

func (ps *PersistentStorage) LoadRound(roundID string) (*RoundState, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	sanitizedRoundID := sanitize(roundID, false)
	if sanitizedRoundID == "" {
		return nil, fmt.Errorf("%w: round %q", ErrInvalidName, roundID)
	}

	var state RoundState
	if err := readJSON(filepath.Join(ps.roundsDir, "round_"+sanitizedRoundID+".json"), &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (ps *PersistentStorage) ListRounds() ([]string, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	entries, err := os.ReadDir(ps.roundsDir)
	if err != nil {
		return nil, err
	}

	var roundIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutPrefix(entry.Name(), "round_")
		if !ok {
			continue
		}
		if id, ok := strings.CutSuffix(name, ".json"); ok && id != "" {
			roundIDs = append(roundIDs, id)
		}
	}

	return roundIDs, nil
}

func (ps *PersistentStorage) SaveModel(model Model) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return writeJSON(filepath.Join(ps.modelsDir, fmt.Sprintf("model_v%d.json", model.Version)), model)
}

func (ps *PersistentStorage) LoadModel(version int) (*Model, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var model Model
	if err := readJSON(filepath.Join(ps.modelsDir, fmt.Sprintf("model_v%d.json", version)), &model); err != nil {
		return nil, err
	}

	return &model, nil
}

// ListModels returns the stored versions in ascending order.
func (ps *PersistentStorage) ListModels() ([]int, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	entries, err := os.ReadDir(ps.modelsDir)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "model_v%d.json", &version); err == nil {
			versions = append(versions, version)
		}
	}
	slices.Sort(versions)

	return versions, nil
}

// SaveResults writes a run's result document under name and returns its path.
// Names may carry '=' and '.' so run configurations can be spelled out.
func (ps *PersistentStorage) SaveResults(name string, results any) (string, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	sanitized := sanitize(name, true)
	if sanitized == "" {
		return "", fmt.Errorf("%w: results %q", ErrInvalidName, name)
	}
	path := filepath.Join(ps.resultsDir, sanitized)

	return path, writeJSON(path, results)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}

	return nil
}

// sanitize strips path traversal sequences and keeps only filename-safe runes.
// Loose mode also keeps '=', '.' and ','.
func sanitize(name string, loose bool) string {
	result := strings.ReplaceAll(name, "..", "")
	result = strings.TrimSpace(result)

	var final strings.Builder
	for _, r := range result {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			final.WriteRune(r)
		case loose && (r == '=' || r == '.' || r == ','):
			final.WriteRune(r)
		}
	}

	out := final.String()
	if strings.Trim(out, ".") == "" {
		return ""
	}

	return out
}
