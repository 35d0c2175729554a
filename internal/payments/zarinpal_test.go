package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newZarinpalTestGateway(t *testing.T, handler http.HandlerFunc) *ZarinpalGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewZarinpalGateway(ZarinpalConfig{
		MerchantID:  "test-merchant",
		RequestURL:  srv.URL + "/request.json",
		VerifyURL:   srv.URL + "/verify.json",
		StartPayURL: srv.URL + "/StartPay/",
	})
}

func TestZarinpalInitiate(t *testing.T) {
	var received map[string]any

	gw := newZarinpalTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/request.json", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"code":      100,
				"message":   "Success",
				"authority": "A00000123",
			},
		})
	})

	res, err := gw.Initiate(context.Background(), InitiateRequest{
		Amount:      3000000,
		Description: "Tuition",
		CallbackURL: "https://portal.example/callback",
	})
	require.NoError(t, err)

	require.Equal(t, "A00000123", res.Authority)
	require.Contains(t, res.PaymentURL, "/StartPay/A00000123")

	// Toman is converted to Rial on the wire only.
	require.Equal(t, "test-merchant", received["merchant_id"])
	require.EqualValues(t, 30000000, received["amount"])
	require.Equal(t, "Tuition", received["description"])
	require.Equal(t, "https://portal.example/callback", received["callback_url"])
}

func TestZarinpalInitiateRejected(t *testing.T) {
	gw := newZarinpalTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":   map[string]any{"code": -9},
			"errors": map[string]any{"code": -9, "message": "The input params invalid"},
		})
	})

	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 1000, Description: "x"})
	require.Error(t, err)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, GatewayZarinpal, rejected.Gateway)
	require.Equal(t, "-9", rejected.Code)
}

func TestZarinpalInitiateNotConfigured(t *testing.T) {
	gw := NewZarinpalGateway(ZarinpalConfig{})

	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 1000})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestZarinpalVerify(t *testing.T) {
	var received map[string]any

	gw := newZarinpalTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/verify.json", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": 100, "ref_id": 201234567},
		})
	})

	res, err := gw.Verify(context.Background(), VerifyRequest{
		Authority: "A00000123",
		Amount:    3000000,
	})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, "201234567", res.RefID)
	require.EqualValues(t, 30000000, received["amount"])
	require.Equal(t, "A00000123", received["authority"])
}

func TestZarinpalVerifyAlreadyVerified(t *testing.T) {
	gw := newZarinpalTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": 101, "ref_id": 201234567},
		})
	})

	res, err := gw.Verify(context.Background(), VerifyRequest{Authority: "A00000123", Amount: 3000000})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "101", res.Code)
}

func TestZarinpalVerifyDeclined(t *testing.T) {
	gw := newZarinpalTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"code": -53},
		})
	})

	res, err := gw.Verify(context.Background(), VerifyRequest{Authority: "A00000123", Amount: 3000000})
	require.NoError(t, err, "a decline is a definitive outcome, not a transport error")
	require.False(t, res.Success)
	require.Equal(t, "-53", res.Code)
}

func TestZarinpalVerifyTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	gw := NewZarinpalGateway(ZarinpalConfig{
		MerchantID: "test-merchant",
		VerifyURL:  srv.URL + "/verify.json",
	})

	_, err := gw.Verify(context.Background(), VerifyRequest{Authority: "A00000123", Amount: 1})
	require.Error(t, err)
}
