package version

import "testing"

func TestParseStamp(t *testing.T) {
	tests := []struct {
		stamp string
		ok    bool
		major uint64
	}{
		{"stackbak v1.2.0", true, 1},
		{"stackbak v2.0.0-rc1", true, 2},
		{"stackbak 3.1.4", true, 3},
		{"stackbak devel", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		v, ok := parseStamp(tt.stamp)
		if ok != tt.ok {
			t.Errorf("parseStamp(%q) ok = %v, want %v", tt.stamp, ok, tt.ok)
			continue
		}
		if ok && v.Major() != tt.major {
			t.Errorf("parseStamp(%q) major = %d, want %d", tt.stamp, v.Major(), tt.major)
		}
	}
}

func TestNewerMajorToleratesGarbage(t *testing.T) {
	if NewerMajor("") {
		t.Error("empty created_by must not count as newer")
	}
	if NewerMajor("stackbak devel") {
		t.Error("unparseable created_by must not count as newer")
	}
}
