// Package config loads, normalizes, and validates quire configuration data.
//
// It supplies repository defaults, resolves project-relative paths against the
// directory holding the config file, expands tilde shortcuts, reads TOML files,
// and honours environment fallbacks such as QUIRE_NTFY_TOPIC. The Config type
// centralizes every knob the build pipeline needs: source layout, book
// metadata, per-variant outputs, converter flags, and the Calibre round trip.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
