package config

import "time"

// Diff defaults.
const (
	DefaultContextLines   = 3
	DefaultInterhunkLines = 0
)

// Merge defaults.
const (
	DefaultMarkerSize = 7
	DefaultMergeLevel = "zealous"
	DefaultMergeFavor = "none"
	DefaultMergeStyle = "merge"
)

// Engine defaults.
const (
	DefaultEngine        = EngineNative
	DefaultEngineTimeout = time.Duration(0)
)

// Limit defaults. Empty means unlimited.
const (
	DefaultMemoryBudget = ""
	DefaultMaxFileSize  = "64MiB"
)

// Output defaults.
const (
	DefaultFormat = "unified"
	DefaultColor  = ColorAuto
)

// Logging defaults.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = LogFormatText
)
