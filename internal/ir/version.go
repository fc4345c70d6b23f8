package ir

// Version constants for the trace schema and engine.
const (
	// TraceVersion is the golden trace schema version.
	TraceVersion = "1"

	// EngineVersion is the turbine engine version.
	EngineVersion = "0.1.0"
)
