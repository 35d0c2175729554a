package payments

import "context"

// Gateway is the common interface for all payment providers.
// Initiate builds the provider-specific payment request and returns the
// redirect URL plus the authority token used to correlate the callback.
// Verify confirms a callback with the provider and is only called for
// payments that are still pending.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error)
}
