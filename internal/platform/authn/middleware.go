package authn

import (
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/platform/httpx"
	"github.com/louisbranch/kalori/internal/platform/requestctx"
)

// accessTokenParam lets browser websocket clients, which cannot set headers,
// pass the token in the query string.
const accessTokenParam = "access_token"

// RequireUser rejects requests without a valid session token and stores the
// token subject as the request user id.
func RequireUser(verifier *Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Verify(TokenFromRequest(r))
			if err != nil {
				if apperrors.GetCode(err) == apperrors.CodeUnknown {
					err = apperrors.Wrap(apperrors.CodeUnauthenticated, "verify session token", err)
				}
				httpx.WriteError(w, r, err)
				return
			}
			ctx := requestctx.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts a bearer token from the Authorization header,
// falling back to the access_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return strings.TrimSpace(r.URL.Query().Get(accessTokenParam))
}
