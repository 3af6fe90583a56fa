package sharing

import (
	"testing"

	"github.com/STARREPORTS/internal/types"
)

func TestNewTokenIsUniqueUUID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken() error = %v", err)
		}
		if !ValidToken(tok) {
			t.Errorf("token %q is not a UUID", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestResolve(t *testing.T) {
	reports := []types.StudentReport{
		{ID: "r1"},
		{ID: "r2", ShareToken: "1b4e28ba-2fa1-41d2-883f-0016d3cca427"},
		{ID: "r3", ShareToken: "6fa459ea-ee8a-4ca4-894e-db77e160355e"},
	}

	tests := []struct {
		name   string
		token  string
		wantID string
		found  bool
	}{
		{name: "exact match", token: "6fa459ea-ee8a-4ca4-894e-db77e160355e", wantID: "r3", found: true},
		{name: "empty token", token: "", found: false},
		{name: "prefix", token: "6fa459ea", found: false},
		{name: "unknown", token: "00000000-0000-4000-8000-000000000000", found: false},
		{name: "case differs", token: "6FA459EA-EE8A-4CA4-894E-DB77E160355E", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(reports, tt.token)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestValidToken(t *testing.T) {
	if ValidToken("not-a-token") {
		t.Error("ValidToken accepted garbage")
	}
	if ValidToken("{6fa459ea-ee8a-4ca4-894e-db77e160355e}") {
		t.Error("ValidToken accepted braced form")
	}
}
