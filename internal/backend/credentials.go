package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Credentials are the caller's session credentials forwarded to the backend.
type Credentials struct {
	Cookie        string
	Authorization string
	// Subject is the authenticated user id when a token was verified locally.
	Subject string
}

// sessionCookies name the cookies that identify a browser session, in
// order of preference.
var sessionCookies = []string{"sessionid", "access_token"}

// Owner identifies the user behind the credentials. Two requests from the
// same user yield the same owner even when unrelated cookies differ. It is
// empty for anonymous callers.
func (c Credentials) Owner() string {
	if c.Subject != "" {
		return "user:" + c.Subject
	}
	if c.Authorization != "" {
		return digest("authorization", c.Authorization)
	}
	if c.Cookie == "" {
		return ""
	}
	if cookies, err := http.ParseCookie(c.Cookie); err == nil {
		for _, name := range sessionCookies {
			for _, ck := range cookies {
				if ck.Name == name && ck.Value != "" {
					return digest("cookie:"+name, ck.Value)
				}
			}
		}
	}
	return digest("cookie", c.Cookie)
}

// digest keeps secrets out of owner keys, which may end up in logs.
func digest(kind, secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return kind + ":" + hex.EncodeToString(sum[:8])
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok
}

// OwnerFrom returns the owner of the credentials carried by ctx.
func OwnerFrom(ctx context.Context) string {
	creds, _ := CredentialsFrom(ctx)
	return creds.Owner()
}

// CredentialsFromRequest captures the forwarded headers of an inbound request.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{
		Cookie:        r.Header.Get("Cookie"),
		Authorization: r.Header.Get("Authorization"),
	}
}

func applyCredentials(ctx context.Context, req *http.Request) {
	creds, ok := CredentialsFrom(ctx)
	if !ok {
		return
	}
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}
	if creds.Authorization != "" {
		req.Header.Set("Authorization", creds.Authorization)
	}
}
