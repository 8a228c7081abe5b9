package ir

// Version constants for IR schema and engine.
const (
	// IRVersion is the fact/derivation schema version. Version 2 hashes raw
	// field bytes.
	IRVersion = "2"

	// EngineVersion is the reach engine version.
	EngineVersion = "0.1.0"
)
