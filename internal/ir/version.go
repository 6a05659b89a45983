package ir

// Version constants for the render record schema and engine.
const (
	// RecordVersion is the render record schema version.
	RecordVersion = "1"

	// EngineVersion is the sqlhint engine version.
	EngineVersion = "0.1.0"
)
