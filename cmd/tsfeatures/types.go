package main

// CLIResult is the top-level JSON envelope for every command's output.
type CLIResult struct {
	Command string `json:"command" yaml:"command"`
	Results any    `json:"results" yaml:"results"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIFileReport is one analysed file. Features lists only detected
// features, sorted.
type CLIFileReport struct {
	Path        string   `json:"path" yaml:"path"`
	Version     int      `json:"version" yaml:"version"`
	ProcessTime int64    `json:"process_time_ns" yaml:"process_time_ns"`
	HasErrors   bool     `json:"has_errors" yaml:"has_errors"`
	Features    []string `json:"features" yaml:"features"`
}

// CLICollectStats reports one collection run.
type CLICollectStats struct {
	Root       string `json:"root" yaml:"root"`
	Database   string `json:"database" yaml:"database"`
	Discovered int    `json:"discovered" yaml:"discovered"`
	Unchanged  int    `json:"unchanged" yaml:"unchanged"`
	Cached     int    `json:"cached" yaml:"cached"`
	Analyzed   int    `json:"analyzed" yaml:"analyzed"`
	Removed    int    `json:"removed" yaml:"removed"`
	Failed     int    `json:"failed" yaml:"failed"`
	ElapsedMS  int64  `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// CLIFeature is a catalog entry.
type CLIFeature struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	Released string `json:"released" yaml:"released"`
}

// CLIAdoption is one feature's usage across a collection.
type CLIAdoption struct {
	Feature string  `json:"feature" yaml:"feature"`
	Files   int     `json:"files" yaml:"files"`
	Ratio   float64 `json:"ratio" yaml:"ratio"`
	Version string  `json:"version" yaml:"version"`
}

// CLISummary describes a whole collection.
type CLISummary struct {
	Files       int           `json:"files" yaml:"files"`
	WithErrors  int           `json:"with_errors" yaml:"with_errors"`
	WithFeature int           `json:"with_feature" yaml:"with_feature"`
	Adoption    []CLIAdoption `json:"adoption" yaml:"adoption"`
}

// CLIDirectory is the union of the features used under a directory.
type CLIDirectory struct {
	Dir      string   `json:"dir" yaml:"dir"`
	Features []string `json:"features" yaml:"features"`
}

// CLIScriptResult is the output of an analysis script, keyed in emission
// order.
type CLIScriptResult struct {
	Script string         `json:"script" yaml:"script"`
	Keys   []string       `json:"keys" yaml:"keys"`
	Values map[string]any `json:"values" yaml:"values"`
}
