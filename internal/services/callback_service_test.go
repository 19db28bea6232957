package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"akx-gateway/internal/models"
)

func newDispatcherFixture(t *testing.T, merchant *models.Merchant) (*CallbackDispatcher, *fakeOrderRepo, *fakeScheduler, *fakePublisher) {
	t.Helper()
	merchants := newFakeMerchantRepo(merchant)
	orders := newFakeOrderRepo(merchants)
	scheduler := &fakeScheduler{}
	publisher := &fakePublisher{}
	d := NewCallbackDispatcher(orders, merchants, scheduler, publisher, 5*time.Second, 3)
	return d, orders, scheduler, publisher
}

func callbackOrder(merchantID uint, url string) *models.Order {
	now := time.Now()
	return &models.Order{
		OrderNo:        "AKX20250101000000123456",
		OutTradeNo:     "ref-1",
		OrderType:      models.OrderTypeDeposit,
		MerchantID:     merchantID,
		Token:          "USDT",
		Chain:          "TRON",
		Amount:         dec("100"),
		Fee:            dec("0"),
		NetAmount:      dec("100"),
		Status:         models.OrderStatusSuccess,
		TxHash:         "0xabc",
		Confirmations:  20,
		CallbackURL:    url,
		CallbackStatus: models.CallbackStatusPending,
		CompletedAt:    &now,
	}
}

func TestDeliverSuccess(t *testing.T) {
	merchant := testMerchant()

	var received CallbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	d, orders, scheduler, _ := newDispatcherFixture(t, merchant)
	order := callbackOrder(merchant.ID, srv.URL)
	orders.put(order)

	require.NoError(t, d.Deliver(context.Background(), order.OrderNo))

	stored := orders.get(order.OrderNo)
	assert.Equal(t, models.CallbackStatusSuccess, stored.CallbackStatus)
	assert.NotNil(t, stored.LastCallbackAt)
	assert.Empty(t, scheduler.scheduled())

	// payload integrity and signature
	assert.Equal(t, "M1", received.MerchantNo)
	assert.Equal(t, order.OrderNo, received.OrderNo)
	assert.Equal(t, "success", received.Status)
	assert.Equal(t, "100", received.Amount)
	require.NotNil(t, received.CompletedAt)

	message := received.MerchantNo + received.OrderNo + received.Status + received.Amount
	assert.True(t, VerifySignature(merchant.DepositKey, message, received.Sign))
	assert.False(t, VerifySignature(merchant.WithdrawKey, message, received.Sign),
		"deposit callbacks must not verify under the withdraw key")
}

func TestDeliverAcknowledgementRule(t *testing.T) {
	merchant := testMerchant()

	cases := []struct {
		name   string
		status int
		body   string
		acked  bool
	}{
		{"ok body", http.StatusOK, "ok", true},
		{"uppercase", http.StatusOK, "SUCCESS", true},
		{"padded", http.StatusOK, "  OK \n", true},
		{"wrong body", http.StatusOK, "received", false},
		{"error status with ok body", http.StatusInternalServerError, "ok", false},
		{"accepted is not ok", http.StatusAccepted, "ok", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			d, orders, _, _ := newDispatcherFixture(t, merchant)
			order := callbackOrder(merchant.ID, srv.URL)
			orders.put(order)

			require.NoError(t, d.Deliver(context.Background(), order.OrderNo))

			want := models.CallbackStatusPending
			if tc.acked {
				want = models.CallbackStatusSuccess
			}
			assert.Equal(t, want, orders.get(order.OrderNo).CallbackStatus)
		})
	}
}

func TestDeliverRetryBudget(t *testing.T) {
	merchant := testMerchant()
	merchant.CallbackMaxRetries = 3

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, orders, scheduler, publisher := newDispatcherFixture(t, merchant)
	order := callbackOrder(merchant.ID, srv.URL)
	orders.put(order)

	// attempts 1..3 fail and schedule a retry; attempt 4 exhausts the
	// budget; a 5th delivery never reaches the wire
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Deliver(context.Background(), order.OrderNo))
	}

	stored := orders.get(order.OrderNo)
	assert.Equal(t, models.CallbackStatusFailed, stored.CallbackStatus)
	assert.Equal(t, 4, stored.CallbackRetryCount)

	tasks := scheduler.scheduled()
	require.Len(t, tasks, 3)
	assert.Equal(t, 300*time.Second, tasks[0].Delay)
	assert.Equal(t, 900*time.Second, tasks[1].Delay)
	assert.Equal(t, 3600*time.Second, tasks[2].Delay)

	assert.Equal(t, []string{order.OrderNo}, publisher.exhausted)
}

func TestDeliverHardRetryCap(t *testing.T) {
	merchant := testMerchant()
	// a generous per-merchant budget never governs; the hard cap does
	merchant.CallbackMaxRetries = 8

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, orders, scheduler, publisher := newDispatcherFixture(t, merchant)
	order := callbackOrder(merchant.ID, srv.URL)
	orders.put(order)

	// attempts 1..4 fail and schedule a retry; attempt 5 hits the hard
	// cap; deliveries 6 and 7 never reach the wire
	for i := 0; i < 7; i++ {
		require.NoError(t, d.Deliver(context.Background(), order.OrderNo))
	}
	assert.Equal(t, 5, hits)

	stored := orders.get(order.OrderNo)
	assert.Equal(t, models.CallbackStatusFailed, stored.CallbackStatus)
	assert.Equal(t, 5, stored.CallbackRetryCount)

	tasks := scheduler.scheduled()
	require.Len(t, tasks, 4)
	assert.Equal(t, 300*time.Second, tasks[0].Delay)
	assert.Equal(t, 900*time.Second, tasks[1].Delay)
	assert.Equal(t, 3600*time.Second, tasks[2].Delay)
	assert.Equal(t, 21600*time.Second, tasks[3].Delay)

	assert.Equal(t, []string{order.OrderNo}, publisher.exhausted)
}

func TestDeliverTransportErrorCountsAsFailure(t *testing.T) {
	merchant := testMerchant()

	d, orders, scheduler, _ := newDispatcherFixture(t, merchant)
	// nothing listens here; the connection is refused
	order := callbackOrder(merchant.ID, "http://127.0.0.1:1")
	orders.put(order)

	require.NoError(t, d.Deliver(context.Background(), order.OrderNo))

	stored := orders.get(order.OrderNo)
	assert.Equal(t, models.CallbackStatusPending, stored.CallbackStatus)
	assert.Equal(t, 1, stored.CallbackRetryCount)

	tasks := scheduler.scheduled()
	require.Len(t, tasks, 1)
	assert.Equal(t, 300*time.Second, tasks[0].Delay)
}

func TestDeliverSkipsNonPendingCallback(t *testing.T) {
	merchant := testMerchant()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d, orders, _, _ := newDispatcherFixture(t, merchant)
	order := callbackOrder(merchant.ID, srv.URL)
	order.CallbackStatus = models.CallbackStatusSuccess
	orders.put(order)

	require.NoError(t, d.Deliver(context.Background(), order.OrderNo))
	assert.Zero(t, hits)
}

func TestRequeue(t *testing.T) {
	merchant := testMerchant()
	d, orders, scheduler, _ := newDispatcherFixture(t, merchant)

	order := callbackOrder(merchant.ID, "https://merchant.example/cb")
	order.CallbackStatus = models.CallbackStatusFailed
	order.CallbackRetryCount = 4
	orders.put(order)

	require.NoError(t, d.Requeue(context.Background(), order.OrderNo))

	stored := orders.get(order.OrderNo)
	assert.Equal(t, models.CallbackStatusPending, stored.CallbackStatus)
	assert.Zero(t, stored.CallbackRetryCount)

	tasks := scheduler.scheduled()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskTypeCallbackSend, tasks[0].TaskType)
	assert.Equal(t, time.Duration(0), tasks[0].Delay)
}

func TestRequeueOnlyFailedCallbacks(t *testing.T) {
	merchant := testMerchant()
	d, orders, _, _ := newDispatcherFixture(t, merchant)

	order := callbackOrder(merchant.ID, "https://merchant.example/cb")
	orders.put(order) // still pending

	err := d.Requeue(context.Background(), order.OrderNo)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = d.Requeue(context.Background(), "AKX-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHandleTaskBadPayload(t *testing.T) {
	merchant := testMerchant()
	d, _, _, _ := newDispatcherFixture(t, merchant)

	err := d.HandleTask(context.Background(), &models.QueueTask{Payload: "not-json"})
	assert.Error(t, err)
}
