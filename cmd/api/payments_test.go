package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golbarg/internal/domain/paymentsrepo"
	"golbarg/internal/domain/storage"
	"golbarg/internal/payments"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentsStore struct {
	seq       int64
	records   map[int64]*paymentsrepo.Payment
	createErr error
}

func newFakePaymentsStore() *fakePaymentsStore {
	return &fakePaymentsStore{records: make(map[int64]*paymentsrepo.Payment)}
}

func (f *fakePaymentsStore) Create(ctx context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	stored := *p
	stored.ID = f.seq
	if stored.Status == "" {
		stored.Status = paymentsrepo.StatusPending
	}
	f.records[stored.ID] = &stored
	return &stored, nil
}

func (f *fakePaymentsStore) GetByID(ctx context.Context, id int64) (*paymentsrepo.Payment, error) {
	if p, ok := f.records[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePaymentsStore) GetByAuthority(ctx context.Context, authority string) (*paymentsrepo.Payment, error) {
	for _, p := range f.records {
		if p.Authority == authority {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentsStore) GetByAuthorityPrefix(ctx context.Context, prefix string) (*paymentsrepo.Payment, error) {
	for _, p := range f.records {
		if len(p.Authority) >= len(prefix) && p.Authority[:len(prefix)] == prefix {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentsStore) MarkSuccess(ctx context.Context, id int64, refID string) (bool, error) {
	p, ok := f.records[id]
	if !ok || p.Status != paymentsrepo.StatusPending {
		return false, nil
	}
	p.Status = paymentsrepo.StatusSuccess
	p.RefID = &refID
	return true, nil
}

func (f *fakePaymentsStore) MarkFailed(ctx context.Context, id int64) (bool, error) {
	p, ok := f.records[id]
	if !ok || p.Status != paymentsrepo.StatusPending {
		return false, nil
	}
	p.Status = paymentsrepo.StatusFailed
	return true, nil
}

func (f *fakePaymentsStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	var out []*paymentsrepo.Payment
	for _, p := range f.records {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakePaymentsStore) List(ctx context.Context, status string, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	var out []*paymentsrepo.Payment
	for _, p := range f.records {
		if status == "" || p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type loggedEntry struct {
	paymentID *int64
	logType   string
}

type fakeLogsStore struct {
	entries []loggedEntry
}

func (f *fakeLogsStore) InsertPaymentLog(ctx context.Context, paymentID *int64, logType string, payload any) error {
	f.entries = append(f.entries, loggedEntry{paymentID: paymentID, logType: logType})
	return nil
}

func (f *fakeLogsStore) types() []string {
	var out []string
	for _, e := range f.entries {
		out = append(out, e.logType)
	}
	return out
}

type fakeGateway struct {
	initiateRes payments.InitiateResponse
	initiateErr error
	verifyRes   payments.VerifyResponse
	verifyErr   error

	verifyCalls int
}

func (f *fakeGateway) Initiate(ctx context.Context, req payments.InitiateRequest) (payments.InitiateResponse, error) {
	return f.initiateRes, f.initiateErr
}

func (f *fakeGateway) Verify(ctx context.Context, req payments.VerifyRequest) (payments.VerifyResponse, error) {
	f.verifyCalls++
	return f.verifyRes, f.verifyErr
}

type paymentTestEnv struct {
	app      *application
	store    *fakePaymentsStore
	logs     *fakeLogsStore
	zarinpal *fakeGateway
	mellat   *fakeGateway
}

func newPaymentTestEnv() *paymentTestEnv {
	store := newFakePaymentsStore()
	logs := &fakeLogsStore{}
	zarinpal := &fakeGateway{}
	mellat := &fakeGateway{}

	manager := payments.NewManager()
	manager.Register(payments.GatewayZarinpal, zarinpal)
	manager.Register(payments.GatewayMellat, mellat)

	app := &application{
		config: config{
			payment: paymentConfig{callbackURL: "https://portal.example/callback"},
		},
		logger: zap.NewNop().Sugar(),
		store: &storage.Container{
			Payments:    store,
			PaymentLogs: logs,
		},
		payments: manager,
	}

	return &paymentTestEnv{app: app, store: store, logs: logs, zarinpal: zarinpal, mellat: mellat}
}

func (env *paymentTestEnv) post(t *testing.T, action string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/payment-gateway?action="+action, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	env.app.paymentGatewayHandler(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPaymentRequestCreatesPendingRecord(t *testing.T) {
	env := newPaymentTestEnv()
	env.zarinpal.initiateRes = payments.InitiateResponse{
		Authority:  "A00000123",
		PaymentURL: "https://pay.example/StartPay/A00000123",
	}

	w := env.post(t, "request", map[string]any{
		"amount":      3000000,
		"description": "Tuition",
		"user_id":     "42",
		"gateway":     "zarinpal",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "A00000123", body["authority"])
	require.Equal(t, "https://pay.example/StartPay/A00000123", body["payment_url"])
	require.Equal(t, "zarinpal", body["gateway"])

	record, err := env.store.GetByAuthority(context.Background(), "A00000123")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, paymentsrepo.StatusPending, record.Status)
	require.EqualValues(t, 3000000, record.Amount)
	require.EqualValues(t, 42, record.UserID)

	require.Equal(t, []string{"request"}, env.logs.types())
}

func TestPaymentRequestUnsupportedGateway(t *testing.T) {
	env := newPaymentTestEnv()

	w := env.post(t, "request", map[string]any{
		"amount":      1000,
		"description": "x",
		"user_id":     "1",
		"gateway":     "paypal",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, env.store.records)
}

func TestPaymentRequestProviderRejection(t *testing.T) {
	env := newPaymentTestEnv()
	env.zarinpal.initiateErr = &payments.RejectedError{Gateway: payments.GatewayZarinpal, Code: "-9"}

	w := env.post(t, "request", map[string]any{
		"amount":      1000,
		"description": "x",
		"user_id":     "1",
		"gateway":     "zarinpal",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, env.store.records, "a rejected initiation must not persist a record")
}

func TestPaymentRequestPersistFailure(t *testing.T) {
	env := newPaymentTestEnv()
	env.zarinpal.initiateRes = payments.InitiateResponse{Authority: "A1", PaymentURL: "https://pay.example/A1"}
	env.store.createErr = errors.New("connection refused")

	w := env.post(t, "request", map[string]any{
		"amount":      1000,
		"description": "x",
		"user_id":     "1",
		"gateway":     "zarinpal",
	})

	// No redirect without a persisted row.
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	require.NotContains(t, body, "payment_url")
}

func TestVerifyZarinpalCanceled(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 3000000, Authority: "A00000123",
	})
	require.NoError(t, err)

	w := env.post(t, "verify", map[string]any{
		"gateway":   "zarinpal",
		"authority": "A00000123",
		"status":    "NOK",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])

	require.Equal(t, paymentsrepo.StatusFailed, env.store.records[rec.ID].Status)
	require.Zero(t, env.zarinpal.verifyCalls, "a client-side cancel needs no provider call")
}

func TestVerifyZarinpalSuccess(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 3000000, Authority: "A00000123",
	})
	require.NoError(t, err)

	env.zarinpal.verifyRes = payments.VerifyResponse{Success: true, RefID: "REF123", Code: "100"}

	w := env.post(t, "verify", map[string]any{
		"gateway":   "zarinpal",
		"authority": "A00000123",
		"status":    "OK",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "REF123", body["ref_id"])

	stored := env.store.records[rec.ID]
	require.Equal(t, paymentsrepo.StatusSuccess, stored.Status)
	require.NotNil(t, stored.RefID)
	require.Equal(t, "REF123", *stored.RefID)
}

func TestVerifyZarinpalDeclined(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 3000000, Authority: "A00000123",
	})
	require.NoError(t, err)

	env.zarinpal.verifyRes = payments.VerifyResponse{Success: false, Code: "-53"}

	w := env.post(t, "verify", map[string]any{
		"gateway":   "zarinpal",
		"authority": "A00000123",
		"status":    "OK",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, paymentsrepo.StatusFailed, env.store.records[rec.ID].Status)
}

func TestVerifyUnknownAuthority(t *testing.T) {
	env := newPaymentTestEnv()

	w := env.post(t, "verify", map[string]any{
		"gateway":   "zarinpal",
		"authority": "A-UNKNOWN",
		"status":    "OK",
	})

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, []string{"mismatch"}, env.logs.types())
	require.Nil(t, env.logs.entries[0].paymentID)
	require.Zero(t, env.zarinpal.verifyCalls)
}

func TestVerifyIsIdempotent(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 3000000, Authority: "A00000123",
	})
	require.NoError(t, err)

	env.zarinpal.verifyRes = payments.VerifyResponse{Success: true, RefID: "REF123", Code: "100"}

	payload := map[string]any{
		"gateway":   "zarinpal",
		"authority": "A00000123",
		"status":    "OK",
	}

	first := env.post(t, "verify", payload)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, env.zarinpal.verifyCalls)

	second := env.post(t, "verify", payload)
	require.Equal(t, http.StatusOK, second.Code)
	body := decodeBody(t, second)
	require.Equal(t, true, body["success"])
	require.Equal(t, "REF123", body["ref_id"])

	// The second callback must not reach the provider again.
	require.Equal(t, 1, env.zarinpal.verifyCalls)
	require.Equal(t, paymentsrepo.StatusSuccess, env.store.records[rec.ID].Status)
}

func TestVerifyMellatResCodeFailure(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 1500000, Authority: "mellat_1742567405000_987654",
	})
	require.NoError(t, err)

	w := env.post(t, "verify", map[string]any{
		"gateway":     "mellat",
		"RefId":       "987654",
		"ResCode":     "17",
		"SaleOrderId": "1742567405000",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])

	require.Equal(t, paymentsrepo.StatusFailed, env.store.records[rec.ID].Status)
	require.Zero(t, env.mellat.verifyCalls)
}

func TestVerifyMellatSuccess(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 1500000, Authority: "mellat_1742567405000_987654",
	})
	require.NoError(t, err)

	env.mellat.verifyRes = payments.VerifyResponse{Success: true, RefID: "987654", Code: "0"}

	w := env.post(t, "verify", map[string]any{
		"gateway":         "mellat",
		"RefId":           "987654",
		"ResCode":         "0",
		"SaleOrderId":     "1742567405000",
		"SaleReferenceId": "987654",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "987654", body["ref_id"])

	stored := env.store.records[rec.ID]
	require.Equal(t, paymentsrepo.StatusSuccess, stored.Status)
	require.Equal(t, "987654", *stored.RefID)
}

func TestVerifyMellatSettleFailureLogged(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 1500000, Authority: "mellat_1742567405000_987654",
	})
	require.NoError(t, err)

	env.mellat.verifyRes = payments.VerifyResponse{
		Success:     true,
		RefID:       "987654",
		Code:        "0",
		SettleError: errors.New("mellat settle returned code 34"),
	}

	w := env.post(t, "verify", map[string]any{
		"gateway":         "mellat",
		"RefId":           "987654",
		"ResCode":         "0",
		"SaleOrderId":     "1742567405000",
		"SaleReferenceId": "987654",
	})

	// The verified payment still succeeds for the caller.
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, paymentsrepo.StatusSuccess, env.store.records[rec.ID].Status)

	// The uncaptured settle lands in the audit log.
	require.Equal(t, []string{"callback", "error"}, env.logs.types())
}

func TestVerifyMellatPrefixDoesNotMatchLongerOrderID(t *testing.T) {
	env := newPaymentTestEnv()
	_, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 1000, Authority: "mellat_123_987654",
	})
	require.NoError(t, err)

	// Order 12 must not match the record for order 123.
	w := env.post(t, "verify", map[string]any{
		"gateway":     "mellat",
		"ResCode":     "0",
		"SaleOrderId": "12",
	})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyTransientErrorKeepsPending(t *testing.T) {
	env := newPaymentTestEnv()
	rec, err := env.store.Create(context.Background(), &paymentsrepo.Payment{
		UserID: 42, Amount: 3000000, Authority: "A00000123",
	})
	require.NoError(t, err)

	env.zarinpal.verifyErr = errors.New("dial tcp: connection refused")

	w := env.post(t, "verify", map[string]any{
		"gateway":   "zarinpal",
		"authority": "A00000123",
		"status":    "OK",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	// No terminal state was written; the callback stays retryable.
	require.Equal(t, paymentsrepo.StatusPending, env.store.records[rec.ID].Status)
}

func TestPaymentGatewayUnknownAction(t *testing.T) {
	env := newPaymentTestEnv()

	w := env.post(t, "refund", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentGatewayRejectsGet(t *testing.T) {
	env := newPaymentTestEnv()

	r := httptest.NewRequest(http.MethodGet, "/v1/payment-gateway?action=request", nil)
	w := httptest.NewRecorder()
	env.app.paymentGatewayHandler(w, r)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
