package capture

import "testing"

func TestEnsureProtocol(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"http://x.com", "http://x.com"},
		{"https://x.com/path", "https://x.com/path"},
		{"ftp://x.com", "https://ftp://x.com"},
		{"HTTP://x.com", "https://HTTP://x.com"},
	}

	for _, tt := range tests {
		if got := EnsureProtocol(tt.in); got != tt.want {
			t.Errorf("EnsureProtocol(%q): expected %q, got %q", tt.in, tt.want, got)
		}
		if got := EnsureProtocol(EnsureProtocol(tt.in)); got != tt.want {
			t.Errorf("EnsureProtocol twice on %q: expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/a", "example.com_a"},
		{"http://example.com/a", "example.com_a"},
		{"https://sub.example.com:8443/path?q=1&x=y#top", "sub.example.com_8443_path_q_1_x_y_top"},
		{"example.com", "example.com"},
		{"https://ünïcode.org/ä", "_n_code.org__"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestProfileByName(t *testing.T) {
	for _, name := range ProfileNames() {
		p, err := ProfileByName(name)
		if err != nil {
			t.Errorf("ProfileByName(%q): %v", name, err)
			continue
		}
		if p.Name != name {
			t.Errorf("Expected profile %q, got %q", name, p.Name)
		}
	}

	if p, _ := ProfileByName("full"); !p.FullPage || p.OutputSubdir != "screenshots_full" {
		t.Errorf("Unexpected full profile %+v", p)
	}
	if _, err := ProfileByName("portrait"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}
