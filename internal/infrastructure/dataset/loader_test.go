package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadYAMLDataset(t *testing.T) {
	path := writeFile(t, "eval.yaml", `
- question: Tell me about a failure
  ground_truth_answer: I shipped a broken migration.
  relevant_doc_ids: ["s1", "s2"]
- question: Why this company
  relevant_doc_ids: ["s3"]
`)

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].GroundTruthAnswer == "" || len(entries[0].RelevantDocIDs) != 2 {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if entries[1].GroundTruthAnswer != "" {
		t.Fatalf("ground truth answer must stay optional")
	}
}

func TestLoadJSONDataset(t *testing.T) {
	path := writeFile(t, "eval.json",
		`[{"question":"q1","relevant_doc_ids":["a"]}]`)

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 1 || entries[0].RelevantDocIDs[0] != "a" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestLoadRejectsEmptyQuestion(t *testing.T) {
	path := writeFile(t, "eval.yaml", `
- question: "  "
  relevant_doc_ids: ["a"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty question")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
