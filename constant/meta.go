// Package constant holds application-wide identifiers.
package constant

const (
	// Reelcore names the config file, directories, env prefix and the binary.
	Reelcore = "reelcore"

	Version = "0.1.0"
)

// Build metadata, set with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
