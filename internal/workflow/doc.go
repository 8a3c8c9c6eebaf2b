// Package workflow runs the build pipeline for one or more variants.
//
// A Runner holds the build-directory lock for the whole run, executes the
// preflight checks, then drives each variant's job through its stages in
// order: sourceprep, conversion, postprocess, navpatch and, for the
// google-play variant, compat. The first failing stage ends the run; later
// variants are not attempted and nothing already produced is rolled back.
//
// Each variant is recorded in the build history (when enabled) at start and
// finish, and finished variants are published to the notifier. Intermediates
// are removed only after the final EPUB has been moved into place.
package workflow
