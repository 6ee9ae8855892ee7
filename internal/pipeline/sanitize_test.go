package pipeline

import (
	"strings"
	"testing"
)

func TestBodySanitizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "script removed",
			input:    `<p>ok</p><script>alert(1)</script>`,
			contains: []string{"<p>ok</p>"},
			excludes: []string{"<script", "alert"},
		},
		{
			name:     "event handler removed",
			input:    `<img src="a.png" onerror="alert(1)">`,
			excludes: []string{"onerror"},
		},
		{
			name:     "javascript url removed",
			input:    `<a href="javascript:alert(1)">x</a>`,
			excludes: []string{"javascript"},
		},
		{
			name:     "workspace file image kept",
			input:    `<img src="file:///tmp/ws/a.png" alt="a">`,
			contains: []string{`src="file:///tmp/ws/a.png"`},
		},
		{
			name:     "data image kept",
			input:    `<img src="data:image/png;base64,iVBORw0KGgo=">`,
			contains: []string{`src="data:image/png;base64,iVBORw0KGgo="`},
		},
		{
			name:     "highlight markup kept",
			input:    `<div class="highlight"><pre><code class="language-go">x</code></pre></div>`,
			contains: []string{`<div class="highlight">`, `class="language-go"`},
		},
		{
			name:     "heading id kept",
			input:    `<h2 id="setup">Setup</h2>`,
			contains: []string{`id="setup"`},
		},
		{
			name:     "task list checkbox kept",
			input:    `<li><input checked="" disabled="" type="checkbox"> done</li>`,
			contains: []string{`type="checkbox"`},
		},
		{
			name:     "table alignment kept",
			input:    `<table><tr><td style="text-align:right">1</td></tr></table>`,
			contains: []string{"text-align"},
		},
	}

	s := NewBodySanitizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := s.Sanitize(tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize() missing %q in %q", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize() kept %q in %q", bad, got)
				}
			}
		})
	}
}
