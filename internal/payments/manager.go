package payments

import (
	"context"
	"fmt"
)

// Manager routes canonical payment calls to the registered provider gateways.
type Manager struct {
	gateways map[string]Gateway
}

func NewManager() *Manager {
	return &Manager{gateways: make(map[string]Gateway)}
}

func (m *Manager) Register(name string, gateway Gateway) {
	m.gateways[name] = gateway
}

// Supported reports whether a gateway is registered under name.
func (m *Manager) Supported(name string) bool {
	_, ok := m.gateways[name]
	return ok
}

func (m *Manager) Initiate(ctx context.Context, name string, req InitiateRequest) (InitiateResponse, error) {
	gateway, ok := m.gateways[name]
	if !ok {
		return InitiateResponse{}, fmt.Errorf("gateway not registered: %s", name)
	}
	return gateway.Initiate(ctx, req)
}

func (m *Manager) Verify(ctx context.Context, name string, req VerifyRequest) (VerifyResponse, error) {
	gateway, ok := m.gateways[name]
	if !ok {
		return VerifyResponse{}, fmt.Errorf("gateway not registered: %s", name)
	}
	return gateway.Verify(ctx, req)
}
