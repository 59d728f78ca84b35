package apiauth

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/tucanopay/tucano/internal/audit"
)

const (
	ctxMerchantID = "auth_merchant_id"
	ctxKeyID      = "auth_key_id"
)

// Middleware authenticates every request on the group it is attached to.
// The request body is buffered so handlers can still bind it after the
// signature check consumed it.
func Middleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(400, gin.H{"error": "unreadable body"})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		identity, rej := a.Authenticate(c.Request.Context(), Request{
			APIKey:    c.GetHeader(HeaderAPIKey),
			Timestamp: c.GetHeader(HeaderTimestamp),
			Nonce:     c.GetHeader(HeaderNonce),
			Signature: c.GetHeader(HeaderSignature),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Body:      body,
			ClientIP:  c.ClientIP(),
		})
		if rej != nil {
			c.AbortWithStatusJSON(rej.Status, gin.H{"error": rej.Code, "detail": rej.Detail})
			return
		}

		authAccepted.Inc()
		c.Set(ctxMerchantID, identity.MerchantID)
		c.Set(ctxKeyID, identity.KeyID)

		ctx := audit.WithActor(c.Request.Context(), "merchant", identity.MerchantID)
		ctx = audit.WithIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// MerchantID returns the authenticated merchant for the request, or "".
func MerchantID(c *gin.Context) string {
	return c.GetString(ctxMerchantID)
}

// KeyID returns the API key that signed the request, or "".
func KeyID(c *gin.Context) string {
	return c.GetString(ctxKeyID)
}
