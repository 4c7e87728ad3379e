package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onehorn/event-booking-backend/internal/config"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Payment gateway modes
const (
	PaymentModeLive = "live"
	PaymentModeMock = "mock"
)

// MockSignature is accepted for mock orders in mock mode, where the browser
// has no key secret to sign with
const MockSignature = "mock_signature"

const mockOrderPrefix = "order_mock_"

// CheckoutRequest describes the order to open for one payment stage
type CheckoutRequest struct {
	Receipt     string
	Amount      models.Money
	Description string
	Prefill     models.CheckoutPrefill
	Notes       map[string]string
}

// PaymentGateway opens checkout sessions and verifies gateway signatures
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*models.CheckoutSession, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// RazorpayGateway integrates with the Razorpay Orders API and Checkout
type RazorpayGateway struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// razorpayOrderRequest is the body of POST /orders
type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"` // max 40 chars
	Notes    map[string]string `json:"notes,omitempty"`
}

// razorpayOrder is the order entity returned by the API
type razorpayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"` // created, attempted, paid
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewRazorpayGateway creates a new Razorpay gateway client
func NewRazorpayGateway(cfg *config.PaymentConfig, logger *logrus.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsMock reports whether orders are faked locally
func (g *RazorpayGateway) IsMock() bool {
	return g.config.Mode == PaymentModeMock
}

// CreateCheckout creates a Razorpay order and returns the modal parameters
func (g *RazorpayGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*models.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive, got %s", req.Amount)
	}

	var (
		order *razorpayOrder
		err   error
	)
	if g.IsMock() {
		order, err = g.mockOrder(req)
	} else {
		order, err = g.createOrder(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	return &models.CheckoutSession{
		OrderID:     order.ID,
		KeyID:       g.config.KeyID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Name:        g.config.MerchantName,
		Description: req.Description,
		Prefill:     req.Prefill,
		Notes:       req.Notes,
	}, nil
}

func (g *RazorpayGateway) createOrder(ctx context.Context, req CheckoutRequest) (*razorpayOrder, error) {
	if g.config.KeyID == "" || g.config.KeySecret == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing key credentials")
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount.Paise(),
		Currency: g.config.Currency,
		Receipt:  truncate(req.Receipt, 40),
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	endpoint := strings.TrimRight(g.config.APIURL, "/") + "/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.config.KeyID, g.config.KeySecret)

	g.logger.WithFields(logrus.Fields{
		"receipt":  req.Receipt,
		"amount":   req.Amount.String(),
		"currency": g.config.Currency,
	}).Info("Creating Razorpay order")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.WithError(err).Error("Failed to call Razorpay orders endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr razorpayErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("payment gateway returned status %d: %s: %s",
				resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var order razorpayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("payment gateway returned an order without an id")
	}
	if order.Amount != req.Amount.Paise() {
		return nil, fmt.Errorf("payment gateway order amount %d does not match requested %d", order.Amount, req.Amount.Paise())
	}

	g.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Razorpay order created")

	return &order, nil
}

func (g *RazorpayGateway) mockOrder(req CheckoutRequest) (*razorpayOrder, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, fmt.Errorf("failed to generate mock order id: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"receipt": req.Receipt,
		"amount":  req.Amount.String(),
	}).Warn("⚠️ PAYMENT_MODE=mock - returning placeholder order")

	return &razorpayOrder{
		ID:       mockOrderPrefix + hex.EncodeToString(suffix),
		Entity:   "order",
		Amount:   req.Amount.Paise(),
		Currency: g.config.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

// VerifyPaymentSignature checks the checkout success signature:
// hex(HMAC-SHA256(order_id + "|" + payment_id, key_secret))
func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	if g.IsMock() && strings.HasPrefix(orderID, mockOrderPrefix) {
		return signature == MockSignature
	}
	if g.config.KeySecret == "" {
		return false
	}
	return verifyHMAC(orderID+"|"+paymentID, g.config.KeySecret, signature)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw body
func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	if g.config.WebhookSecret == "" || signature == "" {
		return false
	}
	return verifyHMAC(string(body), g.config.WebhookSecret, signature)
}

// SignHMAC returns hex(HMAC-SHA256(payload, secret))
func SignHMAC(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(payload, secret, signature string) bool {
	expected := SignHMAC(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
