// Package auth gates gin routes behind bearer session tokens.
package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/jwt"
)

type ctxKey struct{}

const ginClaimsKey = "compliance.auth.claims"

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// ErrorWriter renders an error and aborts the request.
type ErrorWriter func(c *gin.Context, err error)

// Auth is a gin middleware factory.
type Auth struct {
	verifier TokenVerifier
	onError  ErrorWriter
}

// New creates Auth, onError renders rejections.
func New(verifier TokenVerifier, onError ErrorWriter) *Auth {
	return &Auth{verifier: verifier, onError: onError}
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// Required rejects requests without a valid token and stores the claims in the context.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			a.onError(c, apierr.New(apierr.CodeUnauthenticated, "No token provided"))
			return
		}

		claims, err := a.verifier.Verify(token)
		if err != nil {
			a.onError(c, err)
			return
		}

		c.Set(ginClaimsKey, claims)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Required, nil when absent.
// ctx may be a *gin.Context or any context derived from the request.
func ClaimsFromContext(ctx context.Context) *jwt.Claims {
	if gctx, ok := ctx.(*gin.Context); ok {
		if v, ok := gctx.Get(ginClaimsKey); ok {
			if claims, ok := v.(*jwt.Claims); ok {
				return claims
			}
		}
		if gctx.Request == nil {
			return nil
		}
		ctx = gctx.Request.Context()
	}

	claims, _ := ctx.Value(ctxKey{}).(*jwt.Claims)
	return claims
}

// OrganizationID returns the authenticated organization id, NilObjectID when absent or malformed.
func OrganizationID(ctx context.Context) primitive.ObjectID {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return primitive.NilObjectID
	}

	id, err := primitive.ObjectIDFromHex(claims.OrganizationID)
	if err != nil {
		return primitive.NilObjectID
	}

	return id
}
