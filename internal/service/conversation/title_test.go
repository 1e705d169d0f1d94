package conversation

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short message kept as is",
			content: "What causes atrial fibrillation?",
			want:    "What causes atrial fibrillation?",
		},
		{
			name:    "whitespace collapsed to single spaces",
			content: "  renal   clearance\n\tformula ",
			want:    "renal clearance formula",
		},
		{
			name:    "empty message",
			content: "",
			want:    "New conversation",
		},
		{
			name:    "whitespace only",
			content: " \n ",
			want:    "New conversation",
		},
		{
			name:    "exactly 47 characters is not truncated",
			content: strings.Repeat("abcdefghi ", 4) + "abcdefg",
			want:    strings.Repeat("abcdefghi ", 4) + "abcdefg",
		},
		{
			name:    "truncated at word boundary",
			content: "Explain the pathophysiology of diabetic ketoacidosis in adolescents",
			want:    "Explain the pathophysiology of diabetic...",
		},
		{
			name:    "single oversized word",
			content: strings.Repeat("x", 60),
			want:    strings.Repeat("x", 47) + "...",
		},
		{
			name:    "single word of exactly 47 characters kept whole",
			content: strings.Repeat("y", 47),
			want:    strings.Repeat("y", 47),
		},
		{
			name:    "accented characters counted once",
			content: strings.Repeat("é", 47),
			want:    strings.Repeat("é", 47),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.content); got != tt.want {
				t.Errorf("GenerateTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_AlphabetMessage(t *testing.T) {
	content := "a b c d e f g h i j k l m n o p q r s t u v w x y z a b c d e f g h i j k l m n o p q r s t u v"

	title := GenerateTitle(content)

	if n := utf8.RuneCountInString(title); n > 50 {
		t.Errorf("title length = %d, want <= 50", n)
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("title %q does not end in ...", title)
	}
	if want := "a b c d e f g h i j k l m n o p q r s t u v w x..."; title != want {
		t.Errorf("GenerateTitle() = %q, want %q", title, want)
	}
}
