package lead

import "testing"

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"new", "contacted", "quoted", "invoiced", "won", "lost"} {
		status, err := ParseStatus(valid)
		if err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", valid, err)
		}
		if string(status) != valid {
			t.Errorf("ParseStatus(%q) = %q", valid, status)
		}
	}

	for _, invalid := range []string{"", "NEW", "closed", "quoted "} {
		if _, err := ParseStatus(invalid); err == nil {
			t.Errorf("ParseStatus(%q) should fail", invalid)
		}
	}
}
