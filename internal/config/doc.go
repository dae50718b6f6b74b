// Package config loads, normalizes, and validates the TOML configuration
// for reelmark. Load applies repository defaults first, then overlays the
// user's file, expands all paths, and rejects inconsistent settings before
// any subsystem starts.
package config
