package rag

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean answer unchanged",
			input: "The sky is blue.",
			want:  "The sky is blue.",
		},
		{
			name:  "bracketed header stripped",
			input: "The sky is blue. [CHUNK 2 - TYPE: small]",
			want:  "The sky is blue.",
		},
		{
			name:  "parenthetical citation stripped",
			input: "The sky is blue (see CHUNK 1).",
			want:  "The sky is blue.",
		},
		{
			name:  "bare reference stripped",
			input: "Chunk 3 says the sky is blue.",
			want:  "says the sky is blue.",
		},
		{
			name:  "line range header stripped",
			input: "[CHUNK 1 - LINES 5-10] The sky is blue.",
			want:  "The sky is blue.",
		},
		{
			name:  "whitespace collapsed",
			input: "The sky  is blue.\n\n\n\nWater is wet.",
			want:  "The sky is blue.\n\nWater is wet.",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "only artifacts leaves nothing",
			input: "[CHUNK 1 - TYPE: small]",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeRemovesEveryChunkMention(t *testing.T) {
	inputs := []string{
		"As seen in CHUNK 1, the sky is blue.",
		"According to chunk 2 the water is wet.",
		"Based on Chunk 12, yes.",
		"The answer is in chunk 4 and also [CHUNK 5 - TYPE: medium].",
	}

	for _, input := range inputs {
		got := Sanitize(input)
		if strings.Contains(strings.ToLower(got), "chunk") {
			t.Errorf("Sanitize(%q) left a chunk mention: %q", input, got)
		}
	}
}
