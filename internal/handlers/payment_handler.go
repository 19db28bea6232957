package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"akx-gateway/internal/models"
	"akx-gateway/internal/services"
)

// PaymentHandler exposes the signed merchant API: deposit create,
// withdraw create, order query.
type PaymentHandler struct {
	auth   *services.SignatureAuthenticator
	orders *services.OrderService
	logger *logrus.Logger
}

// NewPaymentHandler creates the payment API handler.
func NewPaymentHandler(auth *services.SignatureAuthenticator, orders *services.OrderService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{auth: auth, orders: orders, logger: logger}
}

type depositCreateRequest struct {
	MerchantNo  string `json:"merchant_no" binding:"required"`
	Timestamp   int64  `json:"timestamp" binding:"required"`
	Nonce       string `json:"nonce" binding:"required"`
	Sign        string `json:"sign" binding:"required"`
	OutTradeNo  string `json:"out_trade_no" binding:"required"`
	Token       string `json:"token" binding:"required"`
	Chain       string `json:"chain" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url" binding:"required"`
	ExtraData   string `json:"extra_data"`
}

// CreateDeposit handles POST /api/v1/payment/deposit/create
func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	var req depositCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		badRequest(c, "INVALID_PARAMS", "amount must be a positive decimal string")
		return
	}

	// field order of the canonical message is load-bearing
	message := req.MerchantNo + formatTimestamp(req.Timestamp) + req.Nonce +
		req.OutTradeNo + req.Token + req.Chain + req.Amount + req.Currency + req.CallbackURL

	merchant, err := h.auth.Authenticate(c.Request.Context(), req.MerchantNo, req.Timestamp, req.Sign, message, models.OrderTypeDeposit)
	if err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.orders.CreateDeposit(c.Request.Context(), merchant, services.DepositRequest{
		OutTradeNo:  req.OutTradeNo,
		Token:       req.Token,
		Chain:       req.Chain,
		Amount:      amount,
		CallbackURL: req.CallbackURL,
		ExtraData:   req.ExtraData,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_no":       order.OrderNo,
			"out_trade_no":   order.OutTradeNo,
			"wallet_address": order.WalletAddress,
			"amount":         order.Amount.String(),
			"token":          order.Token,
			"chain":          order.Chain,
			"status":         order.Status,
			"expire_time":    order.ExpireTime,
		},
	})
}

type withdrawCreateRequest struct {
	MerchantNo  string `json:"merchant_no" binding:"required"`
	Timestamp   int64  `json:"timestamp" binding:"required"`
	Nonce       string `json:"nonce" binding:"required"`
	Sign        string `json:"sign" binding:"required"`
	OutTradeNo  string `json:"out_trade_no" binding:"required"`
	Token       string `json:"token" binding:"required"`
	Chain       string `json:"chain" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	ToAddress   string `json:"to_address" binding:"required"`
	CallbackURL string `json:"callback_url" binding:"required"`
	ExtraData   string `json:"extra_data"`
}

// CreateWithdraw handles POST /api/v1/payment/withdraw/create
func (h *PaymentHandler) CreateWithdraw(c *gin.Context) {
	var req withdrawCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		badRequest(c, "INVALID_PARAMS", "amount must be a positive decimal string")
		return
	}

	message := req.MerchantNo + formatTimestamp(req.Timestamp) + req.Nonce +
		req.OutTradeNo + req.Token + req.Chain + req.Amount + req.ToAddress + req.CallbackURL

	merchant, err := h.auth.Authenticate(c.Request.Context(), req.MerchantNo, req.Timestamp, req.Sign, message, models.OrderTypeWithdraw)
	if err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.orders.CreateWithdraw(c.Request.Context(), merchant, services.WithdrawRequest{
		OutTradeNo:  req.OutTradeNo,
		Token:       req.Token,
		Chain:       req.Chain,
		Amount:      amount,
		ToAddress:   req.ToAddress,
		CallbackURL: req.CallbackURL,
		ExtraData:   req.ExtraData,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_no":     order.OrderNo,
			"out_trade_no": order.OutTradeNo,
			"amount":       order.Amount.String(),
			"fee":          order.Fee.String(),
			"net_amount":   order.NetAmount.String(),
			"token":        order.Token,
			"chain":        order.Chain,
			"to_address":   order.ToAddress,
			"status":       order.Status,
		},
	})
}

type orderQueryRequest struct {
	MerchantNo string `json:"merchant_no" binding:"required"`
	Timestamp  int64  `json:"timestamp" binding:"required"`
	Nonce      string `json:"nonce" binding:"required"`
	Sign       string `json:"sign" binding:"required"`
	OrderNo    string `json:"order_no"`
	OutTradeNo string `json:"out_trade_no"`
	OrderType  string `json:"order_type"`
}

// QueryOrder handles POST /api/v1/payment/order/query. Lookup is by
// order_no, or by out_trade_no+order_type; the signature message always
// carries the reference that was sent.
func (h *PaymentHandler) QueryOrder(c *gin.Context) {
	var req orderQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err.Error())
		return
	}
	ref := req.OrderNo
	if ref == "" {
		ref = req.OutTradeNo
	}
	if ref == "" {
		badRequest(c, "INVALID_PARAMS", "order_no or out_trade_no is required")
		return
	}

	message := req.MerchantNo + formatTimestamp(req.Timestamp) + req.Nonce + ref

	// queries sign with the deposit key
	merchant, err := h.auth.Authenticate(c.Request.Context(), req.MerchantNo, req.Timestamp, req.Sign, message, models.OrderTypeDeposit)
	if err != nil {
		h.fail(c, err)
		return
	}

	var order *models.Order
	if req.OrderNo != "" {
		order, err = h.orders.GetOrder(c.Request.Context(), merchant, req.OrderNo)
	} else {
		orderType := models.OrderType(req.OrderType)
		if orderType != models.OrderTypeDeposit && orderType != models.OrderTypeWithdraw {
			badRequest(c, "INVALID_PARAMS", "order_type must be deposit or withdraw when querying by out_trade_no")
			return
		}
		order, err = h.orders.GetOrderByRef(c.Request.Context(), merchant, req.OutTradeNo, orderType)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_no":        order.OrderNo,
			"out_trade_no":    order.OutTradeNo,
			"order_type":      order.OrderType,
			"token":           order.Token,
			"chain":           order.Chain,
			"amount":          order.Amount.String(),
			"fee":             order.Fee.String(),
			"net_amount":      order.NetAmount.String(),
			"status":          order.Status,
			"tx_hash":         order.TxHash,
			"confirmations":   order.Confirmations,
			"wallet_address":  order.WalletAddress,
			"to_address":      order.ToAddress,
			"callback_status": order.CallbackStatus,
			"expire_time":     order.ExpireTime,
			"completed_at":    order.CompletedAt,
			"created_at":      order.CreatedAt,
		},
	})
}

// fail maps service errors onto the stable JSON envelope.
func (h *PaymentHandler) fail(c *gin.Context, err error) {
	apiErr, ok := services.AsAPIError(err)
	if !ok {
		h.logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("request failed with internal error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal error",
			"message": "An internal error occurred",
			"code":    services.CodeInternalError,
		})
		return
	}

	status := http.StatusBadRequest
	switch apiErr.Code {
	case services.CodeTimestampExpired, services.CodeInvalidMerchant, services.CodeInvalidSignature:
		status = http.StatusUnauthorized
	case services.CodeOrderNotFound:
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   apiErr.Message,
		"message": apiErr.Message,
		"code":    apiErr.Code,
	})
}
