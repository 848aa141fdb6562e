package nalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// DefaultBaseURL is the production API root of the self-employed cabinet.
const DefaultBaseURL = "https://lknpd.nalog.ru/api/v1"

// tokenSlack: tokens are refreshed this long before their reported expiry so
// an access token never goes stale mid-request.
const tokenSlack = 30 * time.Second

// Client is the concrete Registrar/Prober backed by lknpd.nalog.ru.
// Authentication is a long-lived refresh token exchanged for short-lived
// access tokens; the exchange happens lazily and is guarded by tokenMu.
type Client struct {
	baseURL      string
	refreshToken string
	deviceID     string
	httpClient   *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config holds lknpd client construction parameters.
type Config struct {
	// BaseURL defaults to DefaultBaseURL when empty.
	BaseURL string

	// RefreshToken is the long-lived token issued to the device.
	RefreshToken string

	// DeviceID identifies this installation to the API. Generated when empty;
	// pin it in config so token refreshes stay tied to one device.
	DeviceID string
}

// NewClient returns a client that implements both Registrar and Prober.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		refreshToken: cfg.RefreshToken,
		deviceID:     cfg.DeviceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ─── API SHAPES ───────────────────────────────────────────────────────────────

type deviceInfo struct {
	SourceDeviceID string `json:"sourceDeviceId"`
	SourceType     string `json:"sourceType"`
	AppVersion     string `json:"appVersion"`
	MetaDetails    struct {
		UserAgent string `json:"userAgent"`
	} `json:"metaDetails"`
}

type tokenRequest struct {
	DeviceInfo   deviceInfo `json:"deviceInfo"`
	RefreshToken string     `json:"refreshToken"`
}

type tokenResponse struct {
	Token           string `json:"token"`
	TokenExpireIn   string `json:"tokenExpireIn"` // RFC 3339
	RefreshToken    string `json:"refreshToken"`
	ProfileNotReady bool   `json:"profileNotReady"`
}

type incomeService struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int64           `json:"quantity"`
}

type incomeRequest struct {
	OperationTime   string          `json:"operationTime"`
	RequestTime     string          `json:"requestTime"`
	PaymentType     string          `json:"paymentType"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Services        []incomeService `json:"services"`
	Client          incomeClient    `json:"client"`
	IgnoreMaxTotals bool            `json:"ignoreMaxTotalIncomeRestriction"`
	OperationUUID   string          `json:"operationUniqueId"`
}

type incomeClient struct {
	ContactPhone *string `json:"contactPhone"`
	DisplayName  *string `json:"displayName"`
	IncomeType   string  `json:"incomeType"`
	INN          *string `json:"inn"`
}

type incomeResponse struct {
	ApprovedReceiptUUID string `json:"approvedReceiptUuid"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ─── REGISTRAR ────────────────────────────────────────────────────────────────

// RegisterIncome declares one income position and returns the receipt UUID
// assigned by the tax service.
func (c *Client) RegisterIncome(ctx context.Context, d receipt.Declaration) (string, error) {
	now := time.Now().Format(time.RFC3339)

	reqBody := incomeRequest{
		OperationTime: now,
		RequestTime:   now,
		PaymentType:   "CASH",
		TotalAmount:   d.Amount,
		Services: []incomeService{
			{Name: d.Name, Amount: d.Amount, Quantity: d.Quantity},
		},
		Client: incomeClient{
			IncomeType: "FROM_INDIVIDUAL",
		},
		OperationUUID: uuid.NewString(),
	}

	var parsed incomeResponse
	if err := c.call(ctx, http.MethodPost, "/income", reqBody, &parsed); err != nil {
		return "", err
	}
	if parsed.ApprovedReceiptUUID == "" {
		return "", fmt.Errorf("nalog: income response has no approved receipt uuid")
	}
	return parsed.ApprovedReceiptUUID, nil
}

// ─── PROBER ───────────────────────────────────────────────────────────────────

// GetUserInfo fetches the authenticated profile. A successful call proves the
// stored refresh token still works end to end.
func (c *Client) GetUserInfo(ctx context.Context) (UserInfo, error) {
	var parsed UserInfo
	if err := c.call(ctx, http.MethodGet, "/user", nil, &parsed); err != nil {
		return UserInfo{}, err
	}
	return parsed, nil
}

// ─── TOKEN REFRESH ────────────────────────────────────────────────────────────

// token returns a valid access token, exchanging the refresh token when the
// cached one is missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > tokenSlack {
		return c.accessToken, nil
	}

	di := deviceInfo{
		SourceDeviceID: c.deviceID,
		SourceType:     "WEB",
		AppVersion:     "1.0.0",
	}
	di.MetaDetails.UserAgent = "npd-receipt-backend"

	reqBody := tokenRequest{
		DeviceInfo:   di,
		RefreshToken: c.refreshToken,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("nalog: marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("nalog: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nalog: token request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("nalog: read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nalog: token status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("nalog: unmarshal token response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("nalog: empty access token in response")
	}

	c.accessToken = parsed.Token
	if exp, err := time.Parse(time.RFC3339, parsed.TokenExpireIn); err == nil {
		c.tokenExpiry = exp
	} else {
		// Unknown expiry — assume a short lifetime and refresh often.
		c.tokenExpiry = time.Now().Add(time.Minute)
	}
	// The service may rotate the refresh token on every exchange.
	if parsed.RefreshToken != "" {
		c.refreshToken = parsed.RefreshToken
	}

	return c.accessToken, nil
}

// ─── HTTP CALL ────────────────────────────────────────────────────────────────

// call sends one authenticated request and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("nalog: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("nalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nalog: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("nalog: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Drop the cached token so the next call re-authenticates.
		c.tokenMu.Lock()
		c.accessToken = ""
		c.tokenMu.Unlock()
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var ae apiError
		if json.Unmarshal(respBytes, &ae) == nil && ae.Message != "" {
			return fmt.Errorf("nalog: %s %s: %s (%s)", method, path, ae.Message, ae.Code)
		}
		return fmt.Errorf("nalog: %s %s: status %d: %.200s", method, path, resp.StatusCode, string(respBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("nalog: unmarshal response: %w", err)
	}
	return nil
}
