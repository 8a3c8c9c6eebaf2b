package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v to the command's stdout, two-space indented. HTML
// escaping is off so titles and rights lines containing & < > read as
// written.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
