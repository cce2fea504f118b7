package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/usersvc/auth"
	"github.com/kbukum/usersvc/auth/authctx"
	"github.com/kbukum/usersvc/authz"
	apperrors "github.com/kbukum/usersvc/errors"
)

// ClaimsKey is the Gin context key holding validated claims.
const ClaimsKey = "auth.claims"

// CredentialsError is the message returned for a missing or invalid token.
const CredentialsError = "Could not validate credentials"

// Auth returns a Gin middleware that validates Bearer tokens. Validated
// claims are stored in the request context (authctx) and under ClaimsKey.
func Auth(validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, apperrors.Unauthorized("Not authenticated"))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, apperrors.Unauthorized(CredentialsError))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), claims))
		c.Next()
	}
}

// RequirePermission aborts with 403 unless checker grants permission to the
// subject returned by subjectFn. Use after Auth.
func RequirePermission(checker authz.Checker, permission string, subjectFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.HasPermission(subjectFn(c), permission) {
			appErr := apperrors.Forbidden("The user doesn't have enough privileges")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context, appErr *apperrors.AppError) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
