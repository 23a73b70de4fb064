package indexer

import "testing"

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{
			name:     "level 1 heading",
			content:  "# Project Notes\n\nSome content",
			filename: "notes.md",
			want:     "Project Notes",
		},
		{
			name:     "level 2 heading when no level 1",
			content:  "## Weekly Review\n\nSome content",
			filename: "review.md",
			want:     "Weekly Review",
		},
		{
			name:     "level 1 wins over earlier level 2",
			content:  "## Sub\n\n# Main Title\n\nContent",
			filename: "doc.md",
			want:     "Main Title",
		},
		{
			name:     "filename fallback without headings",
			content:  "just some plain text",
			filename: "meeting_notes-2024.md",
			want:     "Meeting Notes 2024",
		},
		{
			name:     "empty content uses filename",
			content:  "",
			filename: "shopping list.txt",
			want:     "Shopping List",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTitle([]byte(tt.content), tt.filename)
			if got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
