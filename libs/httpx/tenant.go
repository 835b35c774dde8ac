package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/tenancy"
)

const TenantHeader = "X-Business-Id"

// WithTenant resolves the tenant of every request and stores it in the request context.
//
// With a configured verifier the tenant comes from the bearer token's business_id claim and
// requests without a valid token are rejected. Without one, the X-Business-Id header is trusted
// (the gateway in front of the service has already authenticated the caller).
func WithTenant(verifier *auth.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, status, err := resolveTenant(r, verifier)
			if err != nil {
				writeJSONError(w, status, err.Error())
				return
			}
			if entry := accessLogEntryFromContext(r.Context()); entry != nil {
				entry.tenantID = tenantID
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithTenantID(r.Context(), tenantID)))
		})
	}
}

func resolveTenant(r *http.Request, verifier *auth.Verifier) (string, int, error) {
	if verifier.Enabled() {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			return "", http.StatusUnauthorized, errors.New("missing bearer token")
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			return "", http.StatusUnauthorized, errors.New("invalid token")
		}
		return strings.TrimSpace(claims.BusinessID), http.StatusOK, nil
	}
	tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
	if tenantID == "" {
		return "", http.StatusBadRequest, errors.New("business id required")
	}
	return tenantID, http.StatusOK, nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + strings.ReplaceAll(msg, `"`, `'`) + `"}`))
}
