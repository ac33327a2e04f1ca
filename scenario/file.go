package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qualifire-dev/rogue/types"
)

// LoadFile reads the scenarios file at path. The file format is a JSON
// object {"scenarios": [...]}; every contained scenario is validated.
func LoadFile(path string) (types.Scenarios, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Scenarios{}, fmt.Errorf("reading scenarios file: %w", err)
	}

	var scenarios types.Scenarios
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return types.Scenarios{}, fmt.Errorf("parsing scenarios file %s: %w", path, err)
	}
	if err := scenarios.Validate(); err != nil {
		return types.Scenarios{}, fmt.Errorf("invalid scenarios file %s: %w", path, err)
	}
	return scenarios, nil
}

// SaveFile writes the scenarios to path, creating parent directories as
// needed.
func SaveFile(path string, scenarios types.Scenarios) error {
	if err := scenarios.Validate(); err != nil {
		return fmt.Errorf("invalid scenarios: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating scenarios directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(scenarios, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scenarios: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scenarios file: %w", err)
	}
	return nil
}
