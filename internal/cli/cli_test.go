package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const manifest = `id: ibc
name: IBC
text_file: ibc.txt
chapters:
  - number: 5
    title: Structural Design
    sections:
      - code: "5.1"
        title: General
      - code: "5.2"
        title: Loads
      - code: "5.2.1"
        title: Live loads
      - code: "5.3"
        title: Wind
`

const docText = `Chapter 5 Structural Design
5.1 General
Buildings shall be designed for the loads in this chapter.
5.2 Loads
Dead loads shall include the weight of all materials.
5.2.1 Live loads
Live loads shall be the maximum expected by occupancy.
5.3 Wind
Exterior walls shall resist wind pressure.
`

func writeRegistry(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ibc.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ibc.txt"), []byte(docText), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	asJSON, snippets = false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "regoutline ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOutlineCommand(t *testing.T) {
	dir := writeRegistry(t)
	out, err := run(t, "outline", filepath.Join(dir, "ibc.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Chapter 5 Structural Design") {
		t.Errorf("missing chapter header in %q", out)
	}
	// 5.2.1 nests one level below 5.2.
	if !strings.Contains(out, "\n    5.2.1 Live loads  [5-2]") {
		t.Errorf("expected nested 5.2.1 in %q", out)
	}
}

func TestOutlineCommandJSON(t *testing.T) {
	dir := writeRegistry(t)
	out, err := run(t, "outline", filepath.Join(dir, "ibc.yaml"), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var trees []map[string]any
	if err := json.Unmarshal([]byte(out), &trees); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(trees) != 1 {
		t.Errorf("expected 1 chapter, got %d", len(trees))
	}
}

func TestSectionCommand(t *testing.T) {
	dir := writeRegistry(t)
	out, err := run(t, "section", filepath.Join(dir, "ibc.yaml"), "5.2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Dead loads shall include") || !strings.Contains(out, "Live loads shall be") {
		t.Errorf("section text missing in %q", out)
	}
	if strings.Contains(out, "Exterior walls") {
		t.Errorf("5.3 text leaked into 5.2: %q", out)
	}

	if _, err := run(t, "section", filepath.Join(dir, "ibc.yaml"), "9.9"); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestEvidenceCommand(t *testing.T) {
	dir := writeRegistry(t)
	out, err := run(t, "evidence", filepath.Join(dir, "ibc.yaml"), "wind pressure on exterior walls")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1. [5.3]") {
		t.Errorf("expected a candidate referencing 5.3, got %q", out)
	}

	out, err = run(t, "evidence", filepath.Join(dir, "ibc.yaml"), "elevator hoistway")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "does not address") {
		t.Errorf("expected not-addressed message, got %q", out)
	}
}

func TestSearchCommand(t *testing.T) {
	dir := writeRegistry(t)
	out, err := run(t, "search", "wind", "--registry", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "5.3 Wind [5-3]") {
		t.Errorf("unexpected search output %q", out)
	}
}

func TestLoadDocumentRejectsUnknownType(t *testing.T) {
	if _, err := loadDocument("ibc.txt"); err == nil {
		t.Error("expected error for non-manifest file")
	}
}

func TestLoadDocumentBuildsOutline(t *testing.T) {
	dir := writeRegistry(t)
	doc, err := loadDocument(filepath.Join(dir, "ibc.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	trees := doc.Outline()
	if len(trees) != 1 || len(trees[0].Roots) != 3 {
		t.Errorf("unexpected outline %+v", trees)
	}
}
