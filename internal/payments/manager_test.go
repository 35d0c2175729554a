package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	initiateRes InitiateResponse
	initiateErr error
	verifyRes   VerifyResponse
	verifyErr   error

	initiated []InitiateRequest
	verified  []VerifyRequest
}

func (s *stubGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	s.initiated = append(s.initiated, req)
	return s.initiateRes, s.initiateErr
}

func (s *stubGateway) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	s.verified = append(s.verified, req)
	return s.verifyRes, s.verifyErr
}

func TestManagerRoutesToRegisteredGateway(t *testing.T) {
	stub := &stubGateway{
		initiateRes: InitiateResponse{Authority: "A1", PaymentURL: "https://pay.example/A1"},
	}

	m := NewManager()
	m.Register(GatewayZarinpal, stub)

	require.True(t, m.Supported(GatewayZarinpal))
	require.False(t, m.Supported(GatewayMellat))

	res, err := m.Initiate(context.Background(), GatewayZarinpal, InitiateRequest{Amount: 100})
	require.NoError(t, err)
	require.Equal(t, "A1", res.Authority)
	require.Len(t, stub.initiated, 1)
}

func TestManagerUnknownGateway(t *testing.T) {
	m := NewManager()

	_, err := m.Initiate(context.Background(), "paypal", InitiateRequest{})
	require.ErrorContains(t, err, "gateway not registered: paypal")

	_, err = m.Verify(context.Background(), "paypal", VerifyRequest{})
	require.ErrorContains(t, err, "gateway not registered: paypal")
}

func TestManagerPropagatesGatewayErrors(t *testing.T) {
	wantErr := errors.New("boom")
	stub := &stubGateway{verifyErr: wantErr}

	m := NewManager()
	m.Register(GatewayMellat, stub)

	_, err := m.Verify(context.Background(), GatewayMellat, VerifyRequest{SaleOrderID: "1"})
	require.ErrorIs(t, err, wantErr)
}

func TestRejectedErrorMessage(t *testing.T) {
	err := &RejectedError{Gateway: GatewayMellat, Code: "21"}
	require.Equal(t, "mellat rejected request: code=21", err.Error())
}
