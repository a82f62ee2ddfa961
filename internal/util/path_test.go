package util

import "testing"

func TestNormalizeContentPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain file", "index.html", "index.html", false},
		{"nested", "res/img/logo.png", "res/img/logo.png", false},
		{"redundant segments", "a/./b//c", "a/b/c", false},
		{"internal dotdot resolves", "a/b/../c", "a/c", false},
		{"backslash separators", `res\js\app.js`, "res/js/app.js", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"collapses to root", "a/..", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"parent escape", "../secret", "", true},
		{"deep parent escape", "a/../../secret", "", true},
		{"bare dotdot", "..", "", true},
		{"windows escape", `..\..\secret`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeContentPath(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeContentPath(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeContentPath(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeContentPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
