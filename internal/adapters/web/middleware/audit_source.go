package middleware

import (
	"net/http"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/audit"
)

// APIActor is recorded in the audit trail for requests served over HTTP.
const APIActor = "api"

// AuditSource attaches the caller to the request context so audited
// operations record who triggered them.
func AuditSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithSource(r.Context(), audit.Source{Actor: APIActor, IP: ClientIP(r)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
