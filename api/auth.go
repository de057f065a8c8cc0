package api

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuthPolicy decides whether a request may proceed. Credentials are
// read through functions so a config change takes effect without a
// restart. An empty password means auth is disabled and every request
// passes - the tool often runs on a trusted LAN without one.
type BasicAuthPolicy struct {
	Username func() string
	Password func() string
	Realm    string
}

// Middleware wraps a handler and answers 401 before executing it when
// the policy rejects the request.
func (p *BasicAuthPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.allow(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+p.Realm+`"`)
			writeError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *BasicAuthPolicy) allow(r *http.Request) bool {
	password := p.Password()
	if password == "" {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(p.Username())) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
	return userOK && passOK
}
