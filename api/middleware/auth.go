package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/splitpay-backend/api/responses"
	pkgAuth "github.com/angelmondragon/splitpay-backend/pkg/auth"
	"github.com/angelmondragon/splitpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

const bearerScheme = "bearer"

// Auth validates the bearer token and threads the caller's role and vendor id
// through the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			// Parse already rejected vendor tokens without a vendor.
			vendorID, hasVendor := claims.Vendor()
			ctx = WithActor(ctx, Actor{Role: claims.Role, VendorID: vendorID})
			if logg != nil {
				ctx = logg.WithActorRole(ctx, claims.Role.String())
				if hasVendor {
					ctx = logg.WithVendorID(ctx, vendorID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
