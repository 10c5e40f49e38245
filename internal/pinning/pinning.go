// Package pinning finds GitHub Actions workflow steps that reference an
// action by a mutable version tag such as @v4 instead of a commit SHA.
package pinning

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWorkflowDir is where GitHub looks for workflows in a repository.
const DefaultWorkflowDir = ".github/workflows"

var log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Finding is a reference to an action pinned to a version tag.
type Finding struct {
	File string
	Job  string
	Uses string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.File, f.Uses)
}

// Checker reports version pinned references to actions of untrusted owners.
type Checker struct {
	// TrustedOwners are owners whose actions may be referenced by tag,
	// compared case-insensitively.
	TrustedOwners []string
}

type job struct {
	Uses  string `yaml:"uses"`
	Steps []struct {
		Uses string `yaml:"uses"`
	} `yaml:"steps"`
}

type workflow struct {
	Jobs yaml.Node `yaml:"jobs"`
}

// CheckDir checks every .yml and .yaml file below dir. Files that are not
// valid YAML are logged and skipped.
func (c *Checker) CheckDir(dir string) ([]Finding, error) {
	files, err := WorkflowFiles(dir)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow %s: %w", file, err)
		}
		found, err := c.Check(file, data)
		if err != nil {
			log.Warn("Skipping workflow that could not be parsed", slog.String("file", file), slog.Any("error", err))
			continue
		}
		findings = append(findings, found...)
	}
	return findings, nil
}

// Check returns the findings in one workflow, in the order of the file.
func (c *Checker) Check(file string, data []byte) ([]Finding, error) {
	var wf workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", file, err)
	}
	if wf.Jobs.Kind == 0 {
		return nil, nil
	}
	if wf.Jobs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse workflow %s: jobs is not a mapping", file)
	}

	var findings []Finding
	for i := 0; i+1 < len(wf.Jobs.Content); i += 2 {
		name := wf.Jobs.Content[i].Value
		var j job
		if err := wf.Jobs.Content[i+1].Decode(&j); err != nil {
			return nil, fmt.Errorf("failed to parse job %s in workflow %s: %w", name, file, err)
		}

		uses := make([]string, 0, len(j.Steps)+1)
		if j.Uses != "" {
			uses = append(uses, j.Uses)
		}
		for _, step := range j.Steps {
			uses = append(uses, step.Uses)
		}
		for _, u := range uses {
			if c.pinnedToVersion(u) {
				findings = append(findings, Finding{File: file, Job: name, Uses: u})
			}
		}
	}
	return findings, nil
}

func (c *Checker) pinnedToVersion(uses string) bool {
	if !strings.Contains(uses, "@v") {
		return false
	}
	owner, _, _ := strings.Cut(uses, "/")
	for _, trusted := range c.TrustedOwners {
		if strings.EqualFold(owner, trusted) {
			return false
		}
	}
	return true
}

// WorkflowFiles returns the YAML files below dir, sorted.
func WorkflowFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yml" || ext == ".yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
