package ir

// Version constants for the runtime and persisted record schema.
const (
	// SchemaVersion is the persisted record schema version.
	SchemaVersion = "1"

	// RuntimeVersion is the strtpl runtime version.
	RuntimeVersion = "0.1.0"
)
