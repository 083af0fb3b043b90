// Package config loads and validates the TOML configuration file that
// drives scans, the session store, and logging. Path fields are expanded
// and absolute after Load; detection knobs are clamped, not rejected, so
// a misconfigured threshold degrades to a recorded warning instead of a
// refused run.
package config
