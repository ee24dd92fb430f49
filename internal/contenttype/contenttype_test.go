package contenttype

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		header string
		want   Kind
	}{
		{"", Unknown},
		{"   ", Unknown},
		{"application/json", JSON},
		{"application/json; charset=utf-8", JSON},
		{"Application/JSON", JSON},
		{"multipart/form-data; boundary=----abc", Multipart},
		{"MULTIPART/FORM-DATA", Multipart},
		{"text/plain", Text},
		{"text/html; charset=utf-8", Text},
		{"application/x-www-form-urlencoded", Text},
		{"application/octet-stream", Text},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := Classify(tt.header); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unknown, "unknown"},
		{JSON, "json"},
		{Multipart, "multipart"},
		{Text, "text"},
		{Kind(42), "invalid"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
