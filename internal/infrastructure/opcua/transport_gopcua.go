package opcua

import (
	"context"
	"fmt"

	gopcua "github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
)

// gopcuaTransport implementa Transport sobre una sesión gopcua real.
type gopcuaTransport struct {
	endpoint string
	client   *gopcua.Client
}

var _ Transport = (*gopcuaTransport)(nil)

// NewGopcuaTransport fábrica de transportes para NewClient.
func NewGopcuaTransport(endpoint string) func() Transport {
	return func() Transport { return &gopcuaTransport{endpoint: endpoint} }
}

func (t *gopcuaTransport) Connect(ctx context.Context) error {
	client, err := gopcua.NewClient(t.endpoint, gopcua.SecurityMode(ua.MessageSecurityModeNone))
	if err != nil {
		return fmt.Errorf("creando cliente opcua: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("abriendo sesión opcua: %w", err)
	}
	t.client = client
	return nil
}

func (t *gopcuaTransport) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close(context.Background())
	t.client = nil
	return err
}

func (t *gopcuaTransport) Read(ctx context.Context, nodeID string) (any, error) {
	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return nil, fmt.Errorf("node id %q: %w", nodeID, domain.ErrInvalidInput)
	}
	req := &ua.ReadRequest{
		MaxAge: 0,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: id, AttributeID: ua.AttributeIDValue},
		},
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	}
	resp, err := t.client.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || resp.Results[0] == nil {
		return nil, fmt.Errorf("lectura de %s sin resultado: %w", nodeID, domain.ErrHardwareRejected)
	}
	result := resp.Results[0]
	if result.Status != ua.StatusOK {
		return nil, fmt.Errorf("lectura de %s rechazada (%s): %w", nodeID, result.Status, domain.ErrHardwareRejected)
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.Value(), nil
}

func (t *gopcuaTransport) Write(ctx context.Context, nodeID string, value any) error {
	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return fmt.Errorf("node id %q: %w", nodeID, domain.ErrInvalidInput)
	}
	variant, err := ua.NewVariant(value)
	if err != nil {
		return fmt.Errorf("valor no representable para %s: %w", nodeID, domain.ErrInvalidInput)
	}
	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      id,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        variant,
				},
			},
		},
	}
	resp, err := t.client.Write(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("escritura de %s sin resultado: %w", nodeID, domain.ErrHardwareRejected)
	}
	if resp.Results[0] != ua.StatusOK {
		return fmt.Errorf("escritura de %s rechazada (%s): %w", nodeID, resp.Results[0], domain.ErrHardwareRejected)
	}
	return nil
}
