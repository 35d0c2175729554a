package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golbarg/internal/domain/paymentsrepo"
	"golbarg/internal/params"
	"golbarg/internal/payments"
)

// The payment gateway endpoint speaks the wire format the mobile app and the
// bank callbacks already use, not the portal's response envelope.

type PaymentRequestPayload struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=255"`
	UserID      string `json:"user_id" validate:"required"`
	CallbackURL string `json:"callback_url"`
	Gateway     string `json:"gateway" validate:"required"`
}

type PaymentRequestResponse struct {
	Success    bool   `json:"success"`
	Authority  string `json:"authority"`
	PaymentURL string `json:"payment_url"`
	Gateway    string `json:"gateway"`
}

type PaymentVerifyPayload struct {
	Gateway string `json:"gateway"`

	// Zarinpal callback fields.
	Authority string `json:"authority"`
	Status    string `json:"status"`

	// Mellat callback fields, cased the way the bank posts them.
	RefID           string `json:"RefId"`
	ResCode         string `json:"ResCode"`
	SaleOrderID     string `json:"SaleOrderId"`
	SaleReferenceID string `json:"SaleReferenceId"`
}

type PaymentVerifyResponse struct {
	Success bool   `json:"success"`
	RefID   string `json:"ref_id,omitempty"`
	Message string `json:"message"`
}

func writePaymentError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func (app *application) logPayment(r *http.Request, paymentID *int64, logType string, payload any) {
	if err := app.store.PaymentLogs.InsertPaymentLog(r.Context(), paymentID, logType, payload); err != nil {
		app.logger.Warnw("payment log insert failed", "log_type", logType, "error", err)
	}
}

// paymentGatewayHandler godoc
//
//	@Summary		Payment gateway entry point
//	@Description	Single endpoint for both halves of the payment flow, discriminated by the action query parameter: request initiates a payment and returns a redirect URL, verify confirms a provider callback.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			action	query		string					true	"request or verify"	Enums(request, verify)
//	@Param			payload	body		PaymentRequestPayload	true	"Payment intent (request) or provider callback fields (verify)"
//	@Success		200		{object}	PaymentRequestResponse
//	@Failure		400		{object}	map[string]any
//	@Failure		404		{object}	map[string]any
//	@Failure		500		{object}	map[string]any
//	@Router			/payment-gateway [post]
func (app *application) paymentGatewayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writePaymentError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	action := r.URL.Query().Get("action")
	if action == "" {
		action = "request"
	}

	switch action {
	case "request":
		app.handlePaymentRequest(w, r)
	case "verify":
		app.handlePaymentVerify(w, r)
	default:
		writePaymentError(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %s", action), nil)
	}
}

func (app *application) handlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	var payload PaymentRequestPayload
	if err := readJSON(w, r, &payload); err != nil {
		writePaymentError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := Validate.Struct(payload); err != nil {
		writePaymentError(w, http.StatusBadRequest, "missing or invalid fields", err.Error())
		return
	}

	userID, err := strconv.ParseInt(payload.UserID, 10, 64)
	if err != nil {
		writePaymentError(w, http.StatusBadRequest, "invalid user_id", nil)
		return
	}

	if !app.payments.Supported(payload.Gateway) {
		writePaymentError(w, http.StatusBadRequest, fmt.Sprintf("unsupported gateway: %s", payload.Gateway), nil)
		return
	}

	callbackURL := payload.CallbackURL
	if callbackURL == "" {
		callbackURL = app.config.payment.callbackURL
	}

	res, err := app.payments.Initiate(r.Context(), payload.Gateway, payments.InitiateRequest{
		Amount:      payload.Amount,
		Description: payload.Description,
		CallbackURL: callbackURL,
	})
	if err != nil {
		var rejected *payments.RejectedError
		switch {
		case errors.As(err, &rejected):
			app.logger.Warnw("payment initiation rejected", "gateway", payload.Gateway, "code", rejected.Code)
			writePaymentError(w, http.StatusBadRequest, "payment request rejected by gateway", rejected.Details)
		case errors.Is(err, payments.ErrNotConfigured):
			app.logger.Errorw("payment gateway not configured", "gateway", payload.Gateway)
			writePaymentError(w, http.StatusBadRequest, "payment gateway not configured", nil)
		default:
			app.logger.Errorw("payment initiation failed", "gateway", payload.Gateway, "error", err)
			writePaymentError(w, http.StatusInternalServerError, "payment initiation failed", nil)
		}
		return
	}

	// The redirect must not be handed out until the row exists, otherwise a
	// store outage here would produce a provider payment with no local record.
	record, err := app.store.Payments.Create(r.Context(), &paymentsrepo.Payment{
		UserID:      userID,
		Amount:      payload.Amount,
		Description: payload.Description,
		Authority:   res.Authority,
		Status:      paymentsrepo.StatusPending,
	})
	if err != nil {
		app.logger.Errorw("payment record insert failed", "authority", res.Authority, "error", err)
		writePaymentError(w, http.StatusInternalServerError, "failed to persist payment", nil)
		return
	}

	app.logPayment(r, &record.ID, "request", map[string]any{
		"gateway":   payload.Gateway,
		"amount":    payload.Amount,
		"authority": res.Authority,
	})

	writeJSON(w, http.StatusOK, PaymentRequestResponse{
		Success:    true,
		Authority:  res.Authority,
		PaymentURL: res.PaymentURL,
		Gateway:    payload.Gateway,
	})
}

func (app *application) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	// Callbacks are forwarded by the frontend verbatim and may carry extra
	// provider fields, so decode leniently here.
	var payload PaymentVerifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writePaymentError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch payload.Gateway {
	case payments.GatewayZarinpal:
		app.verifyZarinpalCallback(w, r, payload)
	case payments.GatewayMellat:
		app.verifyMellatCallback(w, r, payload)
	default:
		writePaymentError(w, http.StatusBadRequest, fmt.Sprintf("unsupported gateway: %s", payload.Gateway), nil)
	}
}

func (app *application) verifyZarinpalCallback(w http.ResponseWriter, r *http.Request, payload PaymentVerifyPayload) {
	if payload.Authority == "" {
		writePaymentError(w, http.StatusBadRequest, "missing authority", nil)
		return
	}

	record, err := app.store.Payments.GetByAuthority(r.Context(), payload.Authority)
	if err != nil {
		app.internalPaymentError(w, r, err)
		return
	}
	if record == nil {
		app.logPayment(r, nil, "mismatch", payload)
		writePaymentError(w, http.StatusNotFound, "no payment found for authority", nil)
		return
	}

	app.logPayment(r, &record.ID, "callback", payload)

	if done, resp := app.alreadyTerminal(record); done {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// The provider signaled the cancellation client-side, nothing to verify.
	if payload.Status != "OK" {
		if _, err := app.store.Payments.MarkFailed(r.Context(), record.ID); err != nil {
			app.internalPaymentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, PaymentVerifyResponse{
			Success: false,
			Message: "payment was canceled",
		})
		return
	}

	vr, err := app.payments.Verify(r.Context(), payments.GatewayZarinpal, payments.VerifyRequest{
		Authority: record.Authority,
		Amount:    record.Amount,
	})
	if err != nil {
		// Transient: the record stays pending so the callback can be retried.
		app.logger.Errorw("zarinpal verify failed", "authority", record.Authority, "error", err)
		app.logPayment(r, &record.ID, "error", map[string]any{"stage": "verify", "error": err.Error()})
		writePaymentError(w, http.StatusInternalServerError, "payment verification error", nil)
		return
	}

	app.finishVerification(w, r, record, vr)
}

func (app *application) verifyMellatCallback(w http.ResponseWriter, r *http.Request, payload PaymentVerifyPayload) {
	if payload.SaleOrderID == "" {
		writePaymentError(w, http.StatusBadRequest, "missing SaleOrderId", nil)
		return
	}

	// The composite authority is "mellat_<orderId>_<refId>"; the trailing
	// underscore keeps order id 12 from matching 123.
	prefix := payments.MellatAuthorityPrefix + payload.SaleOrderID + "_"
	record, err := app.store.Payments.GetByAuthorityPrefix(r.Context(), prefix)
	if err != nil {
		app.internalPaymentError(w, r, err)
		return
	}
	if record == nil {
		app.logPayment(r, nil, "mismatch", payload)
		writePaymentError(w, http.StatusNotFound, "no payment found for order", nil)
		return
	}

	app.logPayment(r, &record.ID, "callback", payload)

	if done, resp := app.alreadyTerminal(record); done {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if payload.ResCode != "0" {
		if _, err := app.store.Payments.MarkFailed(r.Context(), record.ID); err != nil {
			app.internalPaymentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, PaymentVerifyResponse{
			Success: false,
			Message: fmt.Sprintf("payment failed with code %s", payload.ResCode),
		})
		return
	}

	vr, err := app.payments.Verify(r.Context(), payments.GatewayMellat, payments.VerifyRequest{
		Authority:       record.Authority,
		Amount:          record.Amount,
		SaleOrderID:     payload.SaleOrderID,
		SaleReferenceID: payload.SaleReferenceID,
	})
	if err != nil {
		app.logger.Errorw("mellat verify failed", "authority", record.Authority, "error", err)
		app.logPayment(r, &record.ID, "error", map[string]any{"stage": "verify", "error": err.Error()})
		writePaymentError(w, http.StatusInternalServerError, "payment verification error", nil)
		return
	}

	app.finishVerification(w, r, record, vr)
}

// alreadyTerminal answers duplicate callbacks for settled records without
// touching the provider again.
func (app *application) alreadyTerminal(record *paymentsrepo.Payment) (bool, PaymentVerifyResponse) {
	switch record.Status {
	case paymentsrepo.StatusSuccess:
		resp := PaymentVerifyResponse{Success: true, Message: "payment already verified"}
		if record.RefID != nil {
			resp.RefID = *record.RefID
		}
		return true, resp
	case paymentsrepo.StatusFailed:
		return true, PaymentVerifyResponse{Success: false, Message: "payment already failed"}
	}
	return false, PaymentVerifyResponse{}
}

func (app *application) finishVerification(w http.ResponseWriter, r *http.Request, record *paymentsrepo.Payment, vr payments.VerifyResponse) {
	if !vr.Success {
		if _, err := app.store.Payments.MarkFailed(r.Context(), record.ID); err != nil {
			app.internalPaymentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, PaymentVerifyResponse{
			Success: false,
			Message: fmt.Sprintf("payment verification failed with code %s", vr.Code),
		})
		return
	}

	updated, err := app.store.Payments.MarkSuccess(r.Context(), record.ID, vr.RefID)
	if err != nil {
		app.internalPaymentError(w, r, err)
		return
	}
	if !updated {
		// A concurrent callback won the guarded update; report its outcome.
		app.logger.Infow("payment already transitioned", "payment_id", record.ID)
	}

	// The payment is verified but the funds may sit uncaptured; keep the
	// failed settle visible for reconciliation.
	if vr.SettleError != nil {
		app.logger.Warnw("payment settle failed after verify",
			"payment_id", record.ID, "error", vr.SettleError)
		app.logPayment(r, &record.ID, "error", map[string]any{
			"stage": "settle",
			"error": vr.SettleError.Error(),
		})
	}

	writeJSON(w, http.StatusOK, PaymentVerifyResponse{
		Success: true,
		RefID:   vr.RefID,
		Message: "payment verified successfully",
	})
}

func (app *application) internalPaymentError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("payment store error", "method", r.Method, "path", r.URL.Path, "error", err)
	writePaymentError(w, http.StatusInternalServerError, "internal error", nil)
}

// myPaymentsHandler godoc
//
//	@Summary		List own payments
//	@Description	Returns the authenticated parent's payment history, newest first
//	@Tags			payments
//	@Produce		json
//	@Param			page	query		int	false	"Page number"
//	@Param			limit	query		int	false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/payments/mine [get]
func (app *application) myPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	pg := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Payments.ListByUser(r.Context(), user.ID, pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payments":   list,
		"pagination": pg,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminListPaymentsHandler godoc
//
//	@Summary		List payments (admin)
//	@Description	Returns a paginated list of payments, optionally filtered by status
//	@Tags			admin
//	@Produce		json
//	@Param			status	query		string	false	"payment_status filter: pending|success|failed"
//	@Param			page	query		int		false	"Page number"
//	@Param			limit	query		int		false	"Items per page"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/payments [get]
func (app *application) adminListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))

	switch status {
	case "", paymentsrepo.StatusPending, paymentsrepo.StatusSuccess, paymentsrepo.StatusFailed:
	default:
		app.badRequestResponse(w, r, fmt.Errorf("invalid status filter: %s", status))
		return
	}

	pg := params.ParsePagination(q)

	list, total, err := app.store.Payments.List(r.Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payments":   list,
		"pagination": pg,
		"status":     status,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}
