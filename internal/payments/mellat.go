package payments

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	mellatGatewayURL  = "https://bpm.shaparak.ir/pgwchannel/services/pgw"
	mellatStartPayURL = "https://bpm.shaparak.ir/pgwchannel/startpay.mellat"

	// AuthorityPrefix + "<orderId>_" uniquely keys a Mellat payment row,
	// since the bank callback carries only the sale order id.
	MellatAuthorityPrefix = "mellat_"
)

const (
	mellatCodeOK = "0"

	// Code 45: transaction already settled. Tolerated so a repeated settle
	// attempt still counts as captured.
	mellatCodeSettled = "45"
)

type MellatConfig struct {
	TerminalID  string
	Username    string
	Password    string
	GatewayURL  string
	StartPayURL string
}

// MellatGateway talks to Bank Mellat's SOAP payment service. The bank only
// issues its reference id during the pay request, so the authority token is
// synthesized from the locally generated order id plus that reference id.
type MellatGateway struct {
	cfg    MellatConfig
	client *http.Client

	now         func() time.Time
	nextOrderID func() string
}

func NewMellatGateway(cfg MellatConfig) *MellatGateway {
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = mellatGatewayURL
	}
	if cfg.StartPayURL == "" {
		cfg.StartPayURL = mellatStartPayURL
	}
	return &MellatGateway{
		cfg:         cfg,
		client:      &http.Client{Timeout: 15 * time.Second},
		now:         time.Now,
		nextOrderID: nextMellatOrderID,
	}
}

var mellatOrderSeq atomic.Int64

// nextMellatOrderID generates a numeric order id from the current millisecond
// plus a process-wide sequence, so concurrent initiations in the same
// millisecond still get distinct ids.
func nextMellatOrderID() string {
	seq := mellatOrderSeq.Add(1) % 1000
	return fmt.Sprintf("%d%03d", time.Now().UnixMilli(), seq)
}

type mellatParams struct {
	TerminalID      string `xml:"terminalId"`
	UserName        string `xml:"userName"`
	UserPassword    string `xml:"userPassword"`
	OrderID         string `xml:"orderId"`
	Amount          string `xml:"amount,omitempty"`
	LocalDate       string `xml:"localDate,omitempty"`
	LocalTime       string `xml:"localTime,omitempty"`
	AdditionalData  string `xml:"additionalData,omitempty"`
	CallBackURL     string `xml:"callBackUrl,omitempty"`
	PayerID         string `xml:"payerId,omitempty"`
	SaleOrderID     string `xml:"saleOrderId,omitempty"`
	SaleReferenceID string `xml:"saleReferenceId,omitempty"`
}

type mellatAction struct {
	XMLName xml.Name
	mellatParams
}

type mellatEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NSSoap  string   `xml:"xmlns:soapenv,attr"`
	NSInt   string   `xml:"xmlns:int,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Action mellatAction
	} `xml:"soapenv:Body"`
}

func newMellatEnvelope(action string, params mellatParams) mellatEnvelope {
	env := mellatEnvelope{
		NSSoap: "http://schemas.xmlsoap.org/soap/envelope/",
		NSInt:  "http://interfaces.core.sw.bps.com/",
	}
	env.Body.Action = mellatAction{
		XMLName:      xml.Name{Local: "int:" + action},
		mellatParams: params,
	}
	return env
}

// parseReturnValue pulls the text of the <return> element out of the SOAP
// response regardless of namespace. The bank encodes its result as a
// comma-separated list inside that single element.
func parseReturnValue(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("mellat response has no return element")
			}
			return "", fmt.Errorf("mellat response parse: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "return" {
			var value string
			if err := dec.DecodeElement(&value, &se); err != nil {
				return "", fmt.Errorf("mellat response parse: %w", err)
			}
			return strings.TrimSpace(value), nil
		}
	}
}

func (m *MellatGateway) call(ctx context.Context, action string, params mellatParams) (string, error) {
	env := newMellatEnvelope(action, params)

	body, err := xml.Marshal(env)
	if err != nil {
		return "", err
	}
	payload := []byte(xml.Header + string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.GatewayURL, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "text/xml;charset=UTF-8")
	httpReq.Header.Set("SOAPAction", "")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mellat %s: %w", action, err)
	}
	defer resp.Body.Close()

	return parseReturnValue(resp.Body)
}

func (m *MellatGateway) credentials() (mellatParams, error) {
	if m.cfg.TerminalID == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return mellatParams{}, ErrNotConfigured
	}
	return mellatParams{
		TerminalID:   m.cfg.TerminalID,
		UserName:     m.cfg.Username,
		UserPassword: m.cfg.Password,
	}, nil
}

func (m *MellatGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	params, err := m.credentials()
	if err != nil {
		return InitiateResponse{}, err
	}

	orderID := m.nextOrderID()
	now := m.now()

	params.OrderID = orderID
	params.Amount = strconv.FormatInt(req.Amount*10, 10) // Toman -> Rial
	params.LocalDate = now.Format("20060102")
	params.LocalTime = now.Format("150405")
	params.AdditionalData = req.Description
	params.CallBackURL = req.CallbackURL
	params.PayerID = "0"

	result, err := m.call(ctx, "bpPayRequest", params)
	if err != nil {
		return InitiateResponse{}, err
	}

	parts := strings.SplitN(result, ",", 2)
	if parts[0] != mellatCodeOK || len(parts) < 2 || parts[1] == "" {
		return InitiateResponse{}, &RejectedError{
			Gateway: GatewayMellat,
			Code:    parts[0],
		}
	}

	refID := parts[1]
	return InitiateResponse{
		Authority:  MellatAuthorityPrefix + orderID + "_" + refID,
		RefID:      refID,
		PaymentURL: m.cfg.StartPayURL + "?RefId=" + refID,
	}, nil
}

func (m *MellatGateway) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	params, err := m.credentials()
	if err != nil {
		return VerifyResponse{}, err
	}

	params.OrderID = req.SaleOrderID
	params.SaleOrderID = req.SaleOrderID
	params.SaleReferenceID = req.SaleReferenceID

	result, err := m.call(ctx, "bpVerifyRequest", params)
	if err != nil {
		return VerifyResponse{}, err
	}

	code := strings.SplitN(result, ",", 2)[0]
	if code != mellatCodeOK {
		return VerifyResponse{Success: false, Code: code}, nil
	}

	resp := VerifyResponse{Success: true, RefID: req.SaleReferenceID, Code: code}

	// Funds stay authorized but uncaptured until settlement, so the settle
	// request always follows a successful verify. Settlement is at-least-once:
	// the bank treats a repeat settle of the same sale reference as a no-op,
	// and a failure here must not undo the verified outcome. It is still
	// reported so the uncaptured authorization shows up in the payment logs.
	settle, err := m.call(ctx, "bpSettleRequest", params)
	if err != nil {
		resp.SettleError = err
		return resp, nil
	}
	if sc := strings.SplitN(settle, ",", 2)[0]; sc != mellatCodeOK && sc != mellatCodeSettled {
		resp.SettleError = fmt.Errorf("mellat settle returned code %s", sc)
	}

	return resp, nil
}
