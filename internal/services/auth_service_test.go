package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akx-gateway/internal/models"
)

func authTestMerchant() *models.Merchant {
	return &models.Merchant{
		ID:          7,
		Name:        "acme",
		IsActive:    true,
		DepositKey:  "deposit-secret",
		WithdrawKey: "withdraw-secret",
	}
}

func TestSignMessage(t *testing.T) {
	sig := SignMessage("key", "message")
	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)
	assert.Equal(t, sig, SignMessage("key", "message"))
	assert.NotEqual(t, sig, SignMessage("other-key", "message"))
}

func TestVerifySignatureCaseInsensitive(t *testing.T) {
	sig := SignMessage("key", "message")
	assert.True(t, VerifySignature("key", "message", sig))
	assert.True(t, VerifySignature("key", "message", strings.ToUpper(sig)))
	assert.False(t, VerifySignature("key", "other message", sig))
	assert.False(t, VerifySignature("wrong-key", "message", sig))
}

func TestAuthenticateSuccess(t *testing.T) {
	merchant := authTestMerchant()
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(merchant), 5*time.Minute)

	msg := "M7" + "payload"
	sig := SignMessage(merchant.DepositKey, msg)

	got, err := auth.Authenticate(context.Background(), "M7", time.Now().UnixMilli(), sig, msg, models.OrderTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)
}

func TestAuthenticateStaleTimestamp(t *testing.T) {
	merchant := authTestMerchant()
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(merchant), 5*time.Minute)

	msg := "M7payload"
	sig := SignMessage(merchant.DepositKey, msg)

	// a valid signature does not rescue a stale request
	stale := time.Now().Add(-10 * time.Minute).UnixMilli()
	_, err := auth.Authenticate(context.Background(), "M7", stale, sig, msg, models.OrderTypeDeposit)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTimestampExpired, apiErr.Code)

	// future timestamps beyond the window are equally rejected
	future := time.Now().Add(10 * time.Minute).UnixMilli()
	_, err = auth.Authenticate(context.Background(), "M7", future, sig, msg, models.OrderTypeDeposit)
	require.Error(t, err)
	apiErr, _ = AsAPIError(err)
	assert.Equal(t, CodeTimestampExpired, apiErr.Code)
}

func TestAuthenticateUnknownMerchant(t *testing.T) {
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(), 5*time.Minute)

	for _, merchantNo := range []string{"M99", "X7", "M", "Mabc", "M0", "7"} {
		_, err := auth.Authenticate(context.Background(), merchantNo, time.Now().UnixMilli(), "sig", "msg", models.OrderTypeDeposit)
		require.Error(t, err, merchantNo)
		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidMerchant, apiErr.Code, merchantNo)
	}
}

func TestAuthenticateInactiveMerchant(t *testing.T) {
	merchant := authTestMerchant()
	merchant.IsActive = false
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(merchant), 5*time.Minute)

	msg := "M7payload"
	sig := SignMessage(merchant.DepositKey, msg)
	_, err := auth.Authenticate(context.Background(), "M7", time.Now().UnixMilli(), sig, msg, models.OrderTypeDeposit)
	require.Error(t, err)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, CodeInvalidMerchant, apiErr.Code)
}

func TestAuthenticateKeySelection(t *testing.T) {
	merchant := authTestMerchant()
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(merchant), 5*time.Minute)

	msg := "M7payload"
	depositSig := SignMessage(merchant.DepositKey, msg)
	now := time.Now().UnixMilli()

	// the deposit key signs deposit operations only
	_, err := auth.Authenticate(context.Background(), "M7", now, depositSig, msg, models.OrderTypeDeposit)
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), "M7", now, depositSig, msg, models.OrderTypeWithdraw)
	require.Error(t, err)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, CodeInvalidSignature, apiErr.Code)
}

func TestAuthenticateMissingKey(t *testing.T) {
	merchant := authTestMerchant()
	merchant.WithdrawKey = ""
	auth := NewSignatureAuthenticator(newFakeMerchantRepo(merchant), 5*time.Minute)

	_, err := auth.Authenticate(context.Background(), "M7", time.Now().UnixMilli(), "sig", "msg", models.OrderTypeWithdraw)
	require.Error(t, err)
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, CodeInvalidMerchant, apiErr.Code)
}
