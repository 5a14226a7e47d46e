package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading and list",
			input:    "## Key points\n\n- first\n- second\n",
			contains: []string{"<h2>Key points</h2>", "<li>first</li>", "<li>second</li>"},
		},
		{
			name:     "emphasis",
			input:    "This is **important**.",
			contains: []string{"<strong>important</strong>"},
		},
		{
			name:     "table extension",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |\n",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "raw html dropped",
			input:    "<script>alert(1)</script>\n\ntext",
			contains: []string{"<p>text</p>"},
			excludes: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.input)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, got, e)
			}
		})
	}
}

func TestToHTML_Empty(t *testing.T) {
	got, err := ToHTML("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
