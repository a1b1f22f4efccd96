package external

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// PaymentClient talks to the payment gateway. The gateway protocol is
// treated as a black box: we initiate and cancel charges and receive the
// final status through the webhook.
type PaymentClient struct {
	baseURL    string
	merchant   string
	secret     string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL  string
	Merchant string
	Secret   string
	Timeout  time.Duration
}

type PaymentInitRequest struct {
	Merchant    string `json:"merchant"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	Description string `json:"description,omitempty"`
}

type PaymentInitResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	PaymentURL string `json:"paymentURL"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:  cfg.BaseURL,
		merchant: cfg.Merchant,
		secret:   cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs the request parameters: values are concatenated in
// alphabetical key order together with merchant credentials and hashed.
func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["Merchant"] = pc.merchant
	params["Secret"] = pc.secret

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

func (pc *PaymentClient) InitPayment(amount int64, orderID, description string) (*PaymentInitResponse, error) {
	token := pc.generateToken(map[string]string{
		"Amount":  strconv.FormatInt(amount, 10),
		"OrderId": orderID,
	})

	req := PaymentInitRequest{
		Merchant:    pc.merchant,
		Token:       token,
		Amount:      amount,
		OrderID:     orderID,
		Description: description,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/api/v1/payments/init", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to init payment: %w", err)
	}
	defer resp.Body.Close()

	var result PaymentInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("payment init failed for order %s", orderID)
	}

	return &result, nil
}

func (pc *PaymentClient) CancelPayment(paymentID, reason string) error {
	token := pc.generateToken(map[string]string{
		"PaymentId": paymentID,
	})

	reqData := map[string]interface{}{
		"merchant":  pc.merchant,
		"token":     token,
		"paymentId": paymentID,
		"reason":    reason,
	}

	jsonBody, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/api/v1/payments/cancel", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
