package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// Webhook delivery headers.
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
)

// VerifyWebhook checks the base64 HMAC-SHA256 Shopify sends with every webhook body.
func VerifyWebhook(payload []byte, secret, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set(HeaderHmac, header)
	return goshopify.App{ApiSecret: secret}.VerifyWebhookRequest(req)
}

// SignWebhook returns the header value Shopify would send for payload.
// Used to sign test deliveries.
func SignWebhook(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
