// Package sharing mints and resolves the opaque tokens that grant access to
// a single report's shared view.
package sharing

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"

	"github.com/STARREPORTS/internal/types"
)

// NewToken returns a random version 4 UUID (122 random bits).
func NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return id.String(), nil
}

// ValidToken reports whether token has the shape of a share token.
func ValidToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil && len(token) == 36
}

// Resolve finds the report carrying token. Every report is compared in
// constant time and only exact matches count. Empty tokens never match.
func Resolve(reports []types.StudentReport, token string) (types.StudentReport, bool) {
	if token == "" {
		return types.StudentReport{}, false
	}
	want := []byte(token)
	found := -1
	for i := range reports {
		if reports[i].ShareToken == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(reports[i].ShareToken), want) == 1 && found < 0 {
			found = i
		}
	}
	if found < 0 {
		return types.StudentReport{}, false
	}
	return reports[found], true
}
