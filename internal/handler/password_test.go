package handler

import (
	"strings"
	"testing"
)

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		wantErr   string
	}{
		{"valid", "old", "Str0ng!pass", ""},
		{"too short", "old", "S1!a", "at least 8 characters"},
		{"no uppercase", "old", "str0ng!pass", "uppercase"},
		{"no lowercase", "old", "STR0NG!PASS", "lowercase"},
		{"no digit", "old", "Strong!pass", "digit"},
		{"no symbol", "old", "Str0ngpass", "symbol"},
		{"same as current", "Str0ng!pass", "Str0ng!pass", "differ"},
		{"exactly eight chars", "old", "Ab1!cdef", ""},
		{"multibyte runes under minimum", "old", "Ab1!日本語", "at least 8 characters"},
		{"multibyte runes at minimum", "old", "Ab1!日本語文", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNewPassword(tt.current, tt.candidate)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
