// Package main hosts the quire CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration lazily, builds the EPUB
// variants through internal/workflow, and exposes each LaTeX source pass and
// the navigation patch as standalone commands. Commands that work on explicit
// paths skip configuration loading so they run outside a book project.
package main
