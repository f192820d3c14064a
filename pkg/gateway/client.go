package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mealflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

var (
	ErrInvalidSignature   = errors.New("callback signature mismatch")
	ErrMalformedReference = errors.New("callback transaction reference is not an order id")
	ErrMalformedAmount    = errors.New("callback amount is not an integer")
	ErrMissingTransaction = errors.New("successful callback carries no gateway transaction number")
)

// ictFallback is used when the host has no tz database for the configured zone.
var ictFallback = time.FixedZone("ICT", 7*60*60)

// Config is the immutable merchant configuration for the gateway. It is
// captured once at construction and never read from the environment again.
type Config struct {
	BaseURL      string
	MerchantCode string
	HashSecret   string
	ReturnURL    string
	Version      string
	Command      string
	CurrencyCode string
	Locale       string
	OrderType    string
	Location     *time.Location
}

// ConfigFromEnv converts the loaded application config into a gateway Config.
func ConfigFromEnv(cfg config.GatewayConfig) Config {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = ictFallback
	}
	return Config{
		BaseURL:      cfg.BaseURL,
		MerchantCode: cfg.MerchantCode,
		HashSecret:   cfg.HashSecret,
		ReturnURL:    cfg.ReturnURL,
		Version:      cfg.Version,
		Command:      cfg.Command,
		CurrencyCode: cfg.CurrencyCode,
		Locale:       cfg.Locale,
		OrderType:    cfg.OrderType,
		Location:     loc,
	}
}

// Client builds signed redirect URLs and verifies signed callbacks. It holds
// no mutable state and is safe for concurrent use.
type Client struct {
	cfg Config
	now func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return nil, fmt.Errorf("gateway hash secret is required")
	}
	if strings.TrimSpace(cfg.MerchantCode) == "" {
		return nil, fmt.Errorf("gateway merchant code is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if cfg.Location == nil {
		cfg.Location = ictFallback
	}
	return &Client{cfg: cfg, now: time.Now}, nil
}

// RedirectRequest describes the payment the customer is sent to complete.
type RedirectRequest struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Description string
	ClientIP    string
	CreatedAt   time.Time
}

// BuildRedirectURL returns the gateway URL the customer's browser should be
// sent to. The order id travels as the transaction reference.
func (c *Client) BuildRedirectURL(req RedirectRequest) (string, error) {
	if req.OrderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	amount, err := EncodeAmount(req.Amount)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment amount")
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Payment for order " + req.OrderID.String()
	}

	params := map[string]string{
		ParamVersion:       c.cfg.Version,
		ParamCommand:       c.cfg.Command,
		ParamMerchantCode:  c.cfg.MerchantCode,
		ParamAmount:        strconv.FormatInt(amount, 10),
		ParamCreateDate:    createdAt.In(c.cfg.Location).Format(TimestampLayout),
		ParamCurrency:      c.cfg.CurrencyCode,
		ParamClientAddress: req.ClientIP,
		ParamLocale:        c.cfg.Locale,
		ParamOrderInfo:     description,
		ParamOrderType:     c.cfg.OrderType,
		ParamReturnURL:     c.cfg.ReturnURL,
		ParamTxnRef:        req.OrderID.String(),
	}

	signature := Sign(c.cfg.HashSecret, params)
	return c.cfg.BaseURL + "?" + encodeQuery(params, signature), nil
}

// CallbackResult is the verified content of an inbound gateway callback.
type CallbackResult struct {
	OrderID           uuid.UUID
	TransactionRef    string
	ResponseCode      string
	TransactionStatus string
	Message           string
	// Amount is in the gateway's minor units; HasAmount is false when the
	// callback did not carry one.
	Amount            int64
	HasAmount         bool
	BankCode          string
	BankTransactionNo string
	CardType          string
	PayDate           string
}

// Succeeded reports whether the gateway settled the payment.
func (r *CallbackResult) Succeeded() bool {
	return r != nil && IsSuccess(r.ResponseCode)
}

// VerifyCallback checks the signature over every received parameter except
// the signature and its type, then extracts the settlement fields. Any failure
// is a security rejection and must not mutate state.
func (c *Client) VerifyCallback(params url.Values) (*CallbackResult, error) {
	received := params.Get(ParamSecureHash)
	if strings.TrimSpace(received) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrInvalidSignature, "missing callback signature")
	}

	signed := make(map[string]string, len(params))
	for key := range params {
		if key == ParamSecureHash || key == ParamSecureHashType {
			continue
		}
		signed[key] = params.Get(key)
	}

	if !signaturesEqual(Sign(c.cfg.HashSecret, signed), received) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrInvalidSignature, "callback signature mismatch")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(params.Get(ParamTxnRef)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrMalformedReference, "malformed transaction reference")
	}

	code := params.Get(ParamResponseCode)
	result := &CallbackResult{
		OrderID:           orderID,
		TransactionRef:    params.Get(ParamTransactionNo),
		ResponseCode:      code,
		TransactionStatus: params.Get(ParamTransactionStatus),
		Message:           ResponseMessage(code),
		BankCode:          params.Get(ParamBankCode),
		BankTransactionNo: params.Get(ParamBankTransactionNo),
		CardType:          params.Get(ParamCardType),
		PayDate:           params.Get(ParamPayDate),
	}
	// a settled payment must name the gateway transaction it settled under
	if result.Succeeded() && strings.TrimSpace(result.TransactionRef) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrMissingTransaction, "successful callback without transaction number")
	}

	if raw := strings.TrimSpace(params.Get(ParamAmount)); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrMalformedAmount, "malformed callback amount")
		}
		result.Amount = amount
		result.HasAmount = true
	}

	return result, nil
}

// EncodeAmount converts a decimal amount into the gateway's integer minor
// units. Fractions below the minor unit are rejected rather than rounded.
func EncodeAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	scaled := amount.Shift(amountScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), amountScale)
	}
	return scaled.IntPart(), nil
}
