// Package workspace owns the on-disk layout stagekit persists state under:
// one result blob, one sidecar, and one cache directory per stage.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stagekit-dev/stagekit/internal/configval"
)

const (
	resultExt  = "bin"
	sidecarExt = "json"
)

// ResultPath returns the path of a stage's result artifact.
func ResultPath(dir, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_result.%s", stage, resultExt))
}

// SidecarPath returns the path of a stage's sidecar metadata file.
func SidecarPath(dir, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_config.%s", stage, sidecarExt))
}

// CacheDir returns the path of a stage's cache directory.
func CacheDir(dir, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_cache", stage))
}

// Sidecar is the persisted per-stage metadata record used for staleness
// detection across runs.
type Sidecar struct {
	UUID              string               `json:"uuid"`
	ExpectedUUIDs     map[string]string    `json:"expected_uuids"`
	VerificationToken *string              `json:"verification_token"`
	Config            configval.FlatConfig `json:"config"`
}

// LoadSidecar reads and parses a stage's sidecar file. valid is false for
// any condition other than "parses and contains all three engine fields" —
// missing file, parse failure, or a structurally incomplete record. The
// verification_token key must be present even when its value is null, so
// the parse goes through a raw map first.
func LoadSidecar(dir, stage string) (sc *Sidecar, valid bool) {
	data, err := os.ReadFile(SidecarPath(dir, stage))
	if err != nil {
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	for _, field := range []string{"uuid", "expected_uuids", "verification_token"} {
		if _, ok := raw[field]; !ok {
			return nil, false
		}
	}
	var loaded Sidecar
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, false
	}
	if loaded.UUID == "" || loaded.ExpectedUUIDs == nil {
		return nil, false
	}
	return &loaded, true
}

// WriteSidecar persists a sidecar record atomically (write to a temp file,
// then rename), so a crash mid-write never leaves a half-written sidecar.
func WriteSidecar(dir, stage string, sc *Sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar for stage %q: %w", stage, err)
	}

	path := SidecarPath(dir, stage)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar tmp file for stage %q: %w", stage, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename sidecar for stage %q: %w", stage, err)
	}
	return nil
}

// ResultExists reports whether a stage's result artifact is present.
func ResultExists(dir, stage string) bool {
	_, err := os.Stat(ResultPath(dir, stage))
	return err == nil
}

// CacheExists reports whether a stage's cache directory is present.
func CacheExists(dir, stage string) bool {
	info, err := os.Stat(CacheDir(dir, stage))
	return err == nil && info.IsDir()
}

// WriteResult persists a stage's encoded result bytes.
func WriteResult(dir, stage string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create workspace %q: %w", dir, err)
	}
	return os.WriteFile(ResultPath(dir, stage), data, 0o644)
}

// ReadResult loads a stage's persisted result bytes.
func ReadResult(dir, stage string) ([]byte, error) {
	return os.ReadFile(ResultPath(dir, stage))
}

// ResetCache removes and recreates a stage's cache directory, empty.
func ResetCache(dir, stage string) error {
	path := CacheDir(dir, stage)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clear cache dir for stage %q: %w", stage, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create cache dir for stage %q: %w", stage, err)
	}
	return nil
}
