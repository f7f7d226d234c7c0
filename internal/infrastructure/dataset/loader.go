package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

// Load reads an evaluation dataset of questions with known relevant story
// IDs. YAML is the primary format; JSON is accepted for exported datasets.
func Load(path string) ([]domain.GroundTruth, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var entries []domain.GroundTruth
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse json dataset: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse yaml dataset: %w", err)
		}
	}

	for i, entry := range entries {
		if strings.TrimSpace(entry.Question) == "" {
			return nil, fmt.Errorf("dataset entry %d: empty question", i)
		}
	}
	return entries, nil
}
