package am

// Version constants for the IR schema and backend.
const (
	// IRVersion is the actor-machine IR schema version.
	IRVersion = "1"

	// BackendVersion is the amc backend version.
	BackendVersion = "0.1.0"
)
