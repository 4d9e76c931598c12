package auth

import "github.com/google/uuid"

// HasUserUUID reports whether the claims carry a UUID subject.
func HasUserUUID(claims AuthClaims) bool {
	if claims == nil {
		return false
	}
	_, err := uuid.Parse(claims.UserID())
	return err == nil
}
