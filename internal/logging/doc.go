// Package logging assembles the structured slog loggers used across the
// scanner. It owns the console and JSON handlers, level plumbing, and the
// standardized field keys so every component tags its lines with the same
// session, detector, and mode attributes. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
