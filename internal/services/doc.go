// Package services defines shared utilities consumed by the pipeline stage
// handlers and external tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, variant names, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified for history records and notifications.
//
// The toolexec subpackage holds the process runner shared by the pandoc,
// calibre, and postprocess clients.
package services
