package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioDirError is returned when a scenario directory cannot be used.
type ScenarioDirError struct {
	Dir    string
	Reason string
}

// Error implements the error interface.
func (e *ScenarioDirError) Error() string {
	return fmt.Sprintf("scenario directory %q: %s", e.Dir, e.Reason)
}

// DiscoverScenarios returns the YAML scenario files in dir (not recursive),
// sorted by name so suites run in a stable order.
func DiscoverScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, &ScenarioDirError{Dir: dir, Reason: "does not exist"}
	}
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	if len(paths) == 0 {
		return nil, &ScenarioDirError{Dir: dir, Reason: "contains no .yaml scenarios"}
	}
	return paths, nil
}

// SuiteResult is the outcome of one scenario file in a suite.
type SuiteResult struct {
	Path     string  `json:"path"`
	Scenario string  `json:"scenario"`
	Result   *Result `json:"result,omitempty"`

	// LoadError is set when the file could not be loaded or run.
	LoadError string `json:"load_error,omitempty"`
}

// Passed reports whether the scenario loaded and passed.
func (s SuiteResult) Passed() bool {
	return s.LoadError == "" && s.Result != nil && s.Result.Pass
}

// RunSuite loads and runs every scenario in dir. A file that fails to load
// is reported in its SuiteResult and does not stop the suite.
func RunSuite(dir string) ([]SuiteResult, error) {
	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}

	results := make([]SuiteResult, 0, len(paths))
	for _, path := range paths {
		sr := SuiteResult{Path: path}
		scenario, err := LoadScenario(path)
		if err != nil {
			sr.LoadError = err.Error()
			results = append(results, sr)
			continue
		}
		sr.Scenario = scenario.Name
		if sr.Result, err = Run(scenario); err != nil {
			sr.LoadError = err.Error()
		}
		results = append(results, sr)
	}
	return results, nil
}
