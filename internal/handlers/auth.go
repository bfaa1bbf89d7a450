package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/config"
	"github.com/SAP-F-2025/session-runtime/internal/session"
	"github.com/SAP-F-2025/session-runtime/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"

	accessTokenCookie = "access_token"
)

// TokenParser validates an access token and returns its claims.
type TokenParser func(token string) (*casdoorsdk.Claims, error)

// NewCasdoorParser configures the casdoor SDK and returns its JWT parser.
func NewCasdoorParser(cfg config.AuthConfig) TokenParser {
	casdoorsdk.InitConfig(cfg.Endpoint, cfg.ClientID, cfg.ClientSecret, cfg.Certificate, cfg.OrganizationName, cfg.ApplicationName)
	return casdoorsdk.ParseJwtToken
}

// ForwardCredentials stores the caller's cookie and authorization headers in
// the request context so backend calls are made on the caller's behalf. It
// runs after AuthMiddleware, whose user id becomes the credentials' subject.
func ForwardCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := backend.CredentialsFromRequest(c.Request)
		creds.Subject = c.GetString(ContextUserID)
		ctx := backend.WithCredentials(c.Request.Context(), creds)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthMiddleware rejects requests without a valid access token. The 401
// response carries the sign-in link the client should follow.
func AuthMiddleware(parse TokenParser, authEntryURL string, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			rejectUnauthenticated(c, authEntryURL, logger, "missing access token")
			return
		}

		claims, err := parse(token)
		if err != nil {
			rejectUnauthenticated(c, authEntryURL, logger, err.Error())
			return
		}

		c.Set(ContextUserID, claims.User.Id)
		c.Set(ContextUserName, claims.User.Name)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

func rejectUnauthenticated(c *gin.Context, authEntryURL string, logger utils.Logger, reason string) {
	logger.Warn("Rejected unauthenticated request",
		"path", c.Request.URL.Path,
		"reason", reason,
		"request_id", c.GetHeader(utils.RequestIDHeader))
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message: "Authentication required",
		Code:    backend.CodeAuthRequired,
		Details: AuthRedirectDetails{AuthRedirect: session.AuthLink(authEntryURL, returnPath(c))},
	})
}

// returnPath is the page the client was on, taken from the Referer.
func returnPath(c *gin.Context) string {
	ref := c.GetHeader("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
