package api

import (
	"net/http"

	"github.com/terra-clan/simulex-engine/internal/auth"
)

// currentUser returns the authenticated caller. Routes behind Authenticate
// always have one.
func currentUser(r *http.Request) *auth.User {
	return auth.UserFromContext(r.Context())
}

func currentUserID(r *http.Request) string {
	if user := currentUser(r); user != nil {
		return user.ID
	}
	return ""
}
