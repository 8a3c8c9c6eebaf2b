// Package preflight checks that a build can start: the external binaries
// resolve and the source tree, assets and build directory are in place.
//
// These checks run in two contexts:
//   - The workflow runner calls RunAll before the first stage and aborts
//     with a configuration error when a required check fails.
//   - "quire doctor" prints every result as a table.
package preflight
