package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	zarinpalSandboxRequestURL  = "https://sandbox.zarinpal.com/pg/v4/payment/request.json"
	zarinpalSandboxVerifyURL   = "https://sandbox.zarinpal.com/pg/v4/payment/verify.json"
	zarinpalSandboxStartPayURL = "https://sandbox.zarinpal.com/pg/StartPay/"
)

// Zarinpal verify codes: 100 = verified, 101 = already verified.
// 101 is tolerated as success so repeated callbacks stay idempotent.
const (
	zarinpalCodeOK              = 100
	zarinpalCodeAlreadyVerified = 101
)

type ZarinpalConfig struct {
	MerchantID  string
	RequestURL  string
	VerifyURL   string
	StartPayURL string
}

// ZarinpalGateway talks to Zarinpal's JSON payment API.
// Amounts are taken in Toman and sent in Rial (x10) on the wire.
type ZarinpalGateway struct {
	cfg    ZarinpalConfig
	client *http.Client
}

func NewZarinpalGateway(cfg ZarinpalConfig) *ZarinpalGateway {
	if cfg.RequestURL == "" {
		cfg.RequestURL = zarinpalSandboxRequestURL
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = zarinpalSandboxVerifyURL
	}
	if cfg.StartPayURL == "" {
		cfg.StartPayURL = zarinpalSandboxStartPayURL
	}
	return &ZarinpalGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type zarinpalResult struct {
	Data struct {
		Code      int         `json:"code"`
		Message   string      `json:"message"`
		Authority string      `json:"authority"`
		RefID     json.Number `json:"ref_id"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func (z *ZarinpalGateway) post(ctx context.Context, url string, payload any) (*zarinpalResult, error) {
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zarinpal request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var res zarinpalResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("zarinpal decode: %w body=%s", err, string(raw))
	}
	return &res, nil
}

func (z *ZarinpalGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	if z.cfg.MerchantID == "" {
		return InitiateResponse{}, ErrNotConfigured
	}

	res, err := z.post(ctx, z.cfg.RequestURL, map[string]any{
		"merchant_id":  z.cfg.MerchantID,
		"amount":       req.Amount * 10, // Toman -> Rial
		"description":  req.Description,
		"callback_url": req.CallbackURL,
	})
	if err != nil {
		return InitiateResponse{}, err
	}

	if res.Data.Code != zarinpalCodeOK || res.Data.Authority == "" {
		return InitiateResponse{}, &RejectedError{
			Gateway: GatewayZarinpal,
			Code:    strconv.Itoa(res.Data.Code),
			Details: res.Errors,
		}
	}

	return InitiateResponse{
		Authority:  res.Data.Authority,
		PaymentURL: z.cfg.StartPayURL + res.Data.Authority,
	}, nil
}

func (z *ZarinpalGateway) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	if z.cfg.MerchantID == "" {
		return VerifyResponse{}, ErrNotConfigured
	}

	res, err := z.post(ctx, z.cfg.VerifyURL, map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"amount":      req.Amount * 10,
		"authority":   req.Authority,
	})
	if err != nil {
		return VerifyResponse{}, err
	}

	code := res.Data.Code
	if code != zarinpalCodeOK && code != zarinpalCodeAlreadyVerified {
		return VerifyResponse{Success: false, Code: strconv.Itoa(code)}, nil
	}

	return VerifyResponse{
		Success: true,
		RefID:   res.Data.RefID.String(),
		Code:    strconv.Itoa(code),
	}, nil
}
