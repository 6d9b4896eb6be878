package lookup

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tel scheme", "tel:+9647734011011", "+9647734011011"},
		{"sip scheme with host", "sip:7734011011@10.0.0.1", "7734011011"},
		{"plain number", "07734011011", "07734011011"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAddress(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeDNIS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"international prefix", "+9647734011011", "7734011011"},
		{"exactly ten digits", "7734011011", "7734011011"},
		{"short number", "4011011", "4011011"},
		{"non digits stripped", "tel:+964-773-401-1011", "7734011011"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDNIS(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBranchForDNIS(t *testing.T) {
	name, ok := BranchForDNIS("tel:+9647734011011")
	if !ok {
		t.Fatal("expected a branch hit")
	}
	if name != "Al-Dolai" {
		t.Errorf("expected Al-Dolai, got %s", name)
	}

	// Unmapped numbers are silently dropped, not an error
	if _, ok := BranchForDNIS("tel:+9647700000000"); ok {
		t.Error("expected no branch for unmapped DNIS")
	}
}

func TestWrapUpLabel(t *testing.T) {
	tests := []struct {
		name string
		code string
		raw  string
		want string
	}{
		{"known code wins", "6f6652bc-5a15-4c80-93c1-50c86ccec218", "ignored", "Inquiry استعلام"},
		{"unknown code falls back to name", "deadbeef", "Custom Wrap", "Custom Wrap"},
		{"unknown code no name", "deadbeef", "", "deadbeef"},
		{"name only", "", "Custom Wrap", "Custom Wrap"},
		{"nothing", "", "", WrapUpUncoded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapUpLabel(tt.code, tt.raw); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
