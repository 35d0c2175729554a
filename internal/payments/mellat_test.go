package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const mellatSOAPResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <ns2:%sResponse xmlns:ns2="http://interfaces.core.sw.bps.com/">
      <return>%s</return>
    </ns2:%sResponse>
  </soapenv:Body>
</soapenv:Envelope>`

type soapCall struct {
	action string
	body   string
}

// mellatTestServer answers each SOAP action with a canned return value and
// records the raw request bodies.
type mellatTestServer struct {
	mu      sync.Mutex
	calls   []soapCall
	returns map[string]string
	srv     *httptest.Server
}

func newMellatTestServer(t *testing.T, returns map[string]string) *mellatTestServer {
	t.Helper()
	ts := &mellatTestServer{returns: returns}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body := string(raw)

		var action string
		for name := range ts.returns {
			if strings.Contains(body, "int:"+name) {
				action = name
				break
			}
		}
		require.NotEmpty(t, action, "unexpected SOAP action in request: %s", body)

		ts.mu.Lock()
		ts.calls = append(ts.calls, soapCall{action: action, body: body})
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
		fmt.Fprintf(w, mellatSOAPResponse, action, ts.returns[action], action)
	}))
	t.Cleanup(ts.srv.Close)

	return ts
}

func (ts *mellatTestServer) callsFor(action string) []soapCall {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var out []soapCall
	for _, c := range ts.calls {
		if c.action == action {
			out = append(out, c)
		}
	}
	return out
}

func newMellatTestGateway(ts *mellatTestServer) *MellatGateway {
	gw := NewMellatGateway(MellatConfig{
		TerminalID:  "1234567",
		Username:    "merchant",
		Password:    "secret",
		GatewayURL:  ts.srv.URL,
		StartPayURL: ts.srv.URL + "/startpay.mellat",
	})
	gw.now = func() time.Time {
		return time.Date(2025, 3, 21, 14, 30, 5, 0, time.UTC)
	}
	gw.nextOrderID = func() string { return "1742567405000" }
	return gw
}

func TestMellatInitiate(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpPayRequest": "0,987654",
	})
	gw := newMellatTestGateway(ts)

	res, err := gw.Initiate(context.Background(), InitiateRequest{
		Amount:      1500000,
		Description: "Tuition",
		CallbackURL: "https://portal.example/callback",
	})
	require.NoError(t, err)

	require.Equal(t, "mellat_1742567405000_987654", res.Authority)
	require.Equal(t, "987654", res.RefID)
	require.Equal(t, ts.srv.URL+"/startpay.mellat?RefId=987654", res.PaymentURL)

	calls := ts.callsFor("bpPayRequest")
	require.Len(t, calls, 1)
	body := calls[0].body
	require.Contains(t, body, "<terminalId>1234567</terminalId>")
	require.Contains(t, body, "<userName>merchant</userName>")
	require.Contains(t, body, "<orderId>1742567405000</orderId>")
	require.Contains(t, body, "<amount>15000000</amount>", "amount must be sent in Rial")
	require.Contains(t, body, "<localDate>20250321</localDate>")
	require.Contains(t, body, "<localTime>143005</localTime>")
	require.Contains(t, body, "<callBackUrl>https://portal.example/callback</callBackUrl>")
	require.Contains(t, body, "<payerId>0</payerId>")
	require.Contains(t, body, `xmlns:int="http://interfaces.core.sw.bps.com/"`)
}

func TestMellatInitiateRejected(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpPayRequest": "21",
	})
	gw := newMellatTestGateway(ts)

	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 1000, Description: "x"})
	require.Error(t, err)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, GatewayMellat, rejected.Gateway)
	require.Equal(t, "21", rejected.Code)
}

func TestMellatInitiateNotConfigured(t *testing.T) {
	gw := NewMellatGateway(MellatConfig{TerminalID: "123"})

	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 1000})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestMellatVerifySettles(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpVerifyRequest": "0",
		"bpSettleRequest": "0",
	})
	gw := newMellatTestGateway(ts)

	res, err := gw.Verify(context.Background(), VerifyRequest{
		SaleOrderID:     "1742567405000",
		SaleReferenceID: "987654",
	})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, "987654", res.RefID)

	// Settlement must always follow a successful verify.
	require.Len(t, ts.callsFor("bpVerifyRequest"), 1)
	settles := ts.callsFor("bpSettleRequest")
	require.Len(t, settles, 1)
	require.Contains(t, settles[0].body, "<saleOrderId>1742567405000</saleOrderId>")
	require.Contains(t, settles[0].body, "<saleReferenceId>987654</saleReferenceId>")
}

func TestMellatVerifySettleFailureReported(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpVerifyRequest": "0",
		"bpSettleRequest": "34",
	})
	gw := newMellatTestGateway(ts)

	res, err := gw.Verify(context.Background(), VerifyRequest{
		SaleOrderID:     "1742567405000",
		SaleReferenceID: "987654",
	})
	require.NoError(t, err)

	// The verified outcome stands, but the uncaptured settle must surface.
	require.True(t, res.Success)
	require.Equal(t, "987654", res.RefID)
	require.Error(t, res.SettleError)
	require.Contains(t, res.SettleError.Error(), "34")
}

func TestMellatVerifyAlreadySettled(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpVerifyRequest": "0",
		"bpSettleRequest": "45",
	})
	gw := newMellatTestGateway(ts)

	res, err := gw.Verify(context.Background(), VerifyRequest{
		SaleOrderID:     "1742567405000",
		SaleReferenceID: "987654",
	})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.NoError(t, res.SettleError, "code 45 means the funds are already captured")
}

func TestMellatVerifyDeclined(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{
		"bpVerifyRequest": "43",
		"bpSettleRequest": "0",
	})
	gw := newMellatTestGateway(ts)

	res, err := gw.Verify(context.Background(), VerifyRequest{
		SaleOrderID:     "1742567405000",
		SaleReferenceID: "987654",
	})
	require.NoError(t, err)

	require.False(t, res.Success)
	require.Equal(t, "43", res.Code)
	require.Empty(t, ts.callsFor("bpSettleRequest"), "a declined verify must not settle")
}

func TestMellatVerifyTransportError(t *testing.T) {
	ts := newMellatTestServer(t, map[string]string{})
	ts.srv.Close()

	gw := newMellatTestGateway(ts)

	_, err := gw.Verify(context.Background(), VerifyRequest{
		SaleOrderID:     "1",
		SaleReferenceID: "2",
	})
	require.Error(t, err)
}

func TestNextMellatOrderIDsDistinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id := nextMellatOrderID()

		_, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err, "order id must stay numeric for the bank")

		_, dup := seen[id]
		require.False(t, dup, "duplicate order id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParseReturnValue(t *testing.T) {
	body := fmt.Sprintf(mellatSOAPResponse, "bpPayRequest", "0,987654", "bpPayRequest")

	value, err := parseReturnValue(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "0,987654", value)
}

func TestParseReturnValueMissing(t *testing.T) {
	_, err := parseReturnValue(strings.NewReader(`<Envelope><Body></Body></Envelope>`))
	require.Error(t, err)
}
