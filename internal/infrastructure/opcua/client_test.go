package opcua

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

// fakeTransport doble de Transport controlable desde el test.
type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	readFn     func(ctx context.Context, nodeID string) (any, error)
	writeFn    func(ctx context.Context, nodeID string, value any) error
	connects   atomic.Int64
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connects.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) Read(ctx context.Context, nodeID string) (any, error) {
	f.mu.Lock()
	fn := f.readFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, nodeID)
	}
	return int64(0), nil
}

func (f *fakeTransport) Write(ctx context.Context, nodeID string, value any) error {
	f.mu.Lock()
	fn := f.writeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, nodeID, value)
	}
	return nil
}

func (f *fakeTransport) setConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func testConfig() Config {
	return Config{
		Endpoint:       "opc.tcp://plc.test:4840",
		ConnectTimeout: 100 * time.Millisecond,
		RequestTimeout: 50 * time.Millisecond,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}
}

func startClient(t *testing.T, cfg Config, ft *fakeTransport) *Client {
	t.Helper()
	c := NewClient(cfg, func() Transport { return ft }, logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c
}

func waitState(t *testing.T, c *Client, want int32) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want },
		2*time.Second, time.Millisecond, "esperando estado %s", StateName(want))
}

func TestClient_ConectaYLee(t *testing.T) {
	ft := &fakeTransport{}
	ft.readFn = func(_ context.Context, nodeID string) (any, error) { return int64(42), nil }
	c := startClient(t, testConfig(), ft)
	waitState(t, c, StateConnected)

	v, err := c.Read(context.Background(), "ns=2;s=ItemCount")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestClient_SinConexionDevuelveErrorTipado(t *testing.T) {
	c := NewClient(testConfig(), func() Transport { return &fakeTransport{} }, logger.Nop(), nil)

	_, err := c.Read(context.Background(), "ns=2;s=ItemCount")
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	err = c.Write(context.Background(), "ns=2;s=ItemCount", int64(1))
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestClient_TimeoutNoDerribaElEnlace(t *testing.T) {
	ft := &fakeTransport{}
	ft.readFn = func(ctx context.Context, _ string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := startClient(t, testConfig(), ft)
	waitState(t, c, StateConnected)

	_, err := c.Read(context.Background(), "ns=2;s=ItemCount")
	assert.ErrorIs(t, err, domain.ErrHardwareTimeout)
	assert.Equal(t, StateConnected, c.State(), "un timeout no es una avería")
}

func TestClient_RechazoDelPLCNoDerribaElEnlace(t *testing.T) {
	ft := &fakeTransport{}
	ft.writeFn = func(_ context.Context, nodeID string, _ any) error {
		return domain.ErrHardwareRejected
	}
	c := startClient(t, testConfig(), ft)
	waitState(t, c, StateConnected)

	err := c.Write(context.Background(), "ns=2;s=TrafficLight", "GREEN")
	assert.ErrorIs(t, err, domain.ErrHardwareRejected)
	assert.Equal(t, StateConnected, c.State())
}

func TestClient_AveriaDisparaReconexion(t *testing.T) {
	ft := &fakeTransport{}
	ft.readFn = func(_ context.Context, _ string) (any, error) {
		return nil, errors.New("conexión reiniciada por el par")
	}
	c := startClient(t, testConfig(), ft)
	waitState(t, c, StateConnected)

	first := ft.connects.Load()
	_, err := c.Read(context.Background(), "ns=2;s=ItemCount")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrHardwareTimeout)

	// El lazo de gestión debe reconectar solo; esperamos a que haya una
	// conexión nueva, no al estado, que pudo no salir aún de Connected.
	ft.mu.Lock()
	ft.readFn = nil
	ft.mu.Unlock()
	require.Eventually(t, func() bool { return ft.connects.Load() > first },
		2*time.Second, 5*time.Millisecond, "el transporte debió reconectarse")
	waitState(t, c, StateConnected)
}

func TestClient_FailedTrasAgotarReintentosYReset(t *testing.T) {
	ft := &fakeTransport{}
	ft.setConnectErr(errors.New("puerto cerrado"))
	cfg := testConfig()
	cfg.MaxRetries = 3
	c := startClient(t, cfg, ft)
	waitState(t, c, StateFailed)

	// En Failed las llamadas fallan con el error terminal.
	_, err := c.Read(context.Background(), "ns=2;s=ItemCount")
	assert.ErrorIs(t, err, domain.ErrLinkFailed)

	// Failed solo se abandona con Reset.
	ft.setConnectErr(nil)
	assert.Equal(t, StateFailed, c.State())
	c.Reset()
	waitState(t, c, StateConnected)
}

func TestClient_EscriturasSerializadas(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	ft := &fakeTransport{}
	ft.writeFn = func(_ context.Context, _ string, _ any) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}
	c := startClient(t, testConfig(), ft)
	waitState(t, c, StateConnected)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Write(context.Background(), "ns=2;s=ItemCount", int64(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, maxInFlight, "una sola escritura en vuelo")
}
