// Package key defines the configuration identifiers shared by the config layer and its consumers.
package key

// DefinedFieldsCount is the number of keys registered in config/default.go.
const DefinedFieldsCount = 18

// Logging - these keys manage the internal diagnostics written to the logs directory.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these keys govern the non-TUI application behavior.
const (
	CliColored = "cli.colored"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Media Playback - these keys select and tune the decoder behind every card.
const (
	PlayerBackend     = "player.backend"
	PlayerLoop        = "player.loop"
	PlayerLoadTimeout = "player.load_timeout"
	PlayerMpvPath     = "player.mpv_path"
)

// Buffering - these keys control how often buffer telemetry is sampled.
const (
	BufferPollInterval = "buffer.poll_interval"
)

// Fast-forward - these keys shape the long-press gesture and its buffer gate.
const (
	RateDragStep        = "rate.drag_step"
	RateLevel4MinBuffer = "rate.level4_min_buffer"
	RateLevel3MinBuffer = "rate.level3_min_buffer"
)

// Simulated Backend - these keys tune the deterministic decoder used by scenarios and the demo feed.
const (
	SimBandwidth   = "sim.bandwidth"
	SimLoadLatency = "sim.load_latency"
	SimDuration    = "sim.duration"
	SimFailPattern = "sim.fail_pattern"
)

// Feed Session - these keys manage what happens when the terminal feed opens.
const (
	FeedContinueOnStart = "feed.continue_on_start"
)
