//go:build mage

// Package main contains Mage build targets for paper-reconciler developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	"reconciler",
	"reconciler/exports",
	".secrets",
}

// Init creates the working directories for the review store and secrets.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "paper-reconciler"
	cmdPkg  = "./cmd/paper-reconciler"
)

func binPath() string {
	return filepath.Join(binDir, binName)
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath(), cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", binPath(), version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Reconcile builds the CLI and reconciles the volumes listed in the
// VOLUMES environment variable (space separated), writing to the graph
// when PROJECT=1.
func Reconcile() error {
	mg.Deps(Init, Build)

	vols := strings.Fields(os.Getenv("VOLUMES"))
	if len(vols) == 0 {
		return fmt.Errorf("set VOLUMES, e.g. VOLUMES=\"3498 3499\" mage reconcile")
	}
	args := append([]string{"volumes"}, vols...)
	if os.Getenv("PROJECT") == "1" {
		args = append(args, "--project")
	}
	return sh.RunV(binPath(), args...)
}

// Graph groups the graph store targets.
type Graph mg.Namespace

// Schema creates the graph uniqueness constraints.
func (Graph) Schema() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "graph", "schema")
}

// Reset deletes every node and relationship, then recreates the constraints.
func (Graph) Reset() error {
	mg.Deps(Build)
	if err := sh.RunV(binPath(), "graph", "delete", "--yes"); err != nil {
		return err
	}
	return sh.RunV(binPath(), "graph", "schema")
}

// Review exports the papers that need review to reconciler/exports/review.yaml.
func Review() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath(), "review", "export", "--status", "needs_review", "reconciler/exports/review.yaml")
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// skipDir reports directories that are not part of the project's sources.
func skipDir(name string) bool {
	return name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "bin" || name == "vendor")
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countDocWords counts words in the top-level Markdown files.
func countDocWords(root string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.md"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
	}
	return total, nil
}
