package store

import "time"

// File is a scanned source file and the content hash of its last scan.
type File struct {
	ID        int64
	Path      string
	Dialect   string
	Hash      string
	Size      int64
	ScannedAt time.Time
}

// Report is a cached detection result, keyed by the SHA-256 of the file
// contents it was computed from. Identical contents share one report.
type Report struct {
	Hash        string
	Version     int
	ProcessTime int64 // nanoseconds
	HasErrors   bool
	Features    []string // detected feature names, sorted
	CreatedAt   time.Time
}

// Has reports whether feature was detected.
func (r *Report) Has(feature string) bool {
	for _, f := range r.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// FileReport pairs a file with its cached report. Report is nil when the
// file's hash has no report yet.
type FileReport struct {
	File   File
	Report *Report
}

// FeatureCount is the number of files in which a feature was detected.
type FeatureCount struct {
	Feature string
	Files   int
}
