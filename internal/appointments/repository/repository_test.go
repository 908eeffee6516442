package repository

import "testing"

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{"plain term", "vet@example.com", "vet@example.com"},
		{"percent matches literally", "100%", `100\%`},
		{"underscore matches literally", "pat_jones", `pat\_jones`},
		{"backslash escaped first", `a\b`, `a\\b`},
		{"mixed metacharacters", `\%_`, `\\\%\_`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLike(tt.term); got != tt.want {
				t.Errorf("escapeLike(%q) = %q, want %q", tt.term, got, tt.want)
			}
		})
	}
}
