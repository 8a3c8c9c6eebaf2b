package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Run", "Status", "Result"}, [][]string{{"abc123", "running"}}, tableLayout{})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines (border, header, rule, row, border), got %d:\n%s", len(lines), out)
	}
	if strings.Count(lines[1], "│") != strings.Count(lines[3], "│") {
		t.Fatalf("short row should be padded to the header width:\n%s", out)
	}
}

func TestRenderTableWrapsFreeText(t *testing.T) {
	detail := strings.Repeat("pandoc reported an unknown option ", 5)
	out := renderTable([]string{"Check", "Detail"}, [][]string{{"pandoc", detail}}, tableLayout{wrap: []int{1}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 5 {
		t.Fatalf("expected detail to wrap over several lines:\n%s", out)
	}
	for _, line := range lines {
		if len([]rune(line)) > wrapWidth+len("pandoc")+10 {
			t.Fatalf("line wider than the wrap limit: %q", line)
		}
	}
}

func TestRenderTableRightAlignsColumns(t *testing.T) {
	out := renderTable([]string{"Variant", "Duration"}, [][]string{{"standard", "1s"}}, tableLayout{right: []int{1, 7}})
	if !strings.Contains(out, "       1s │") {
		t.Fatalf("expected right aligned duration:\n%s", out)
	}
	if renderTable(nil, nil, tableLayout{}) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestWriteJSONKeepsMarkup(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	if err := writeJSON(cmd, map[string]string{"title": "War & Peace <Vol. 1>"}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	want := "{\n  \"title\": \"War & Peace <Vol. 1>\"\n}\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
