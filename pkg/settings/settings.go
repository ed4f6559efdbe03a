// Package settings holds build metadata and the per-run CLI settings carried
// through the context.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "listx"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the settings of a single CLI execution.
type Run struct {
	MinLogLevel int8
	NoColor     bool
	Interactive bool
	Watch       bool
	// Output is the output format name.
	Output string
	// Width overrides the detected terminal width when positive.
	Width int
	// ConfigFile is the resolved configuration path, empty when defaults only.
	ConfigFile string
	// Source names the data source argument.
	Source string
}

// NewCliParams returns the defaults for a CLI run.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		Output:      "table",
		Source:      "-",
	}
}
