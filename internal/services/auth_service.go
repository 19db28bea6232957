package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"akx-gateway/internal/metrics"
	"akx-gateway/internal/models"
	"akx-gateway/internal/repository"
)

// SignatureAuthenticator validates merchant identity, request freshness
// and the HMAC signature of every inbound API call.
type SignatureAuthenticator struct {
	merchants repository.MerchantRepository
	window    time.Duration
	log       *logrus.Entry
}

// NewSignatureAuthenticator creates the authenticator. window is the
// accepted clock skew for the request timestamp.
func NewSignatureAuthenticator(merchants repository.MerchantRepository, window time.Duration) *SignatureAuthenticator {
	return &SignatureAuthenticator{
		merchants: merchants,
		window:    window,
		log:       logrus.WithField("component", "auth"),
	}
}

// Authenticate verifies a signed request and returns the merchant.
// message is the operation-specific canonical concatenation built by
// the handler; orderType selects which merchant secret signs it.
func (a *SignatureAuthenticator) Authenticate(ctx context.Context, merchantNo string, timestampMs int64, signature, message string, orderType models.OrderType) (*models.Merchant, error) {
	now := time.Now().UnixMilli()
	skew := now - timestampMs
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Millisecond > a.window {
		metrics.AuthFailures.WithLabelValues(CodeTimestampExpired).Inc()
		a.log.WithFields(logrus.Fields{
			"merchant_no": merchantNo,
			"skew_ms":     skew,
		}).Warn("request timestamp outside freshness window")
		return nil, NewAPIError(CodeTimestampExpired, "request timestamp expired")
	}

	id, ok := models.ParseMerchantNo(merchantNo)
	if !ok {
		metrics.AuthFailures.WithLabelValues(CodeInvalidMerchant).Inc()
		return nil, NewAPIError(CodeInvalidMerchant, "invalid merchant number")
	}

	merchant, err := a.merchants.GetActiveByID(ctx, id)
	if err != nil {
		metrics.AuthFailures.WithLabelValues(CodeInvalidMerchant).Inc()
		a.log.WithField("merchant_no", merchantNo).Warn("merchant not found or inactive")
		return nil, NewAPIError(CodeInvalidMerchant, "invalid merchant number")
	}

	key := merchant.SigningKey(orderType)
	if key == "" {
		metrics.AuthFailures.WithLabelValues(CodeInvalidMerchant).Inc()
		return nil, NewAPIError(CodeInvalidMerchant, "merchant key not configured")
	}

	if !VerifySignature(key, message, signature) {
		metrics.AuthFailures.WithLabelValues(CodeInvalidSignature).Inc()
		a.log.WithFields(logrus.Fields{
			"merchant_no": merchantNo,
			"order_type":  orderType,
		}).Warn("signature mismatch")
		return nil, NewAPIError(CodeInvalidSignature, "signature verification failed")
	}

	return merchant, nil
}

// SignMessage computes the lowercase hex HMAC-SHA256 of message.
func SignMessage(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares a presented signature against the expected
// one in constant time, case-insensitively.
func VerifySignature(key, message, signature string) bool {
	expected := SignMessage(key, message)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
