// Package scripts embeds the bundled Risor analysis scripts.
package scripts

import "embed"

// FS holds every bundled script at its file name, e.g. "summary.risor".
//
//go:embed *.risor
var FS embed.FS

// Summary is the default analysis script.
const Summary = "summary.risor"
