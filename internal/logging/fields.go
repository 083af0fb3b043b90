package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for detection session identifiers.
	FieldSessionID = "session_id"
	// FieldDetector is the standardized structured logging key for algorithm names.
	FieldDetector = "detector"
	// FieldMode is the standardized structured logging key for the requested detection mode.
	FieldMode = "mode"
	// FieldPath is the standardized structured logging key for filesystem paths.
	FieldPath = "path"
)
