package plcsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/testutil"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

// fakeLink enlace con el PLC controlable desde el test.
type fakeLink struct {
	mu        sync.Mutex
	connected bool
	nodes     map[string]any
	writes    []string // node ids en orden de escritura
	writeErr  error
}

func newFakeLink() *fakeLink {
	return &fakeLink{connected: true, nodes: map[string]any{}}
}

func (f *fakeLink) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeLink) Read(_ context.Context, nodeID string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[nodeID], nil
}

func (f *fakeLink) Write(_ context.Context, nodeID string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.nodes[nodeID] = value
	f.writes = append(f.writes, nodeID)
	return nil
}

func (f *fakeLink) node(id string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[id]
}

func (f *fakeLink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func testBindings() []entity.NodeBinding {
	return []entity.NodeBinding{
		{Name: entity.BindingItemCount, NodeID: "ns=2;s=ItemCount", Direction: entity.DirectionWrite},
		{Name: entity.BindingTrafficLight, NodeID: "ns=2;s=TrafficLight", Direction: entity.DirectionWrite},
		{Name: entity.BindingHMIStatus, NodeID: "ns=2;s=HMIStatus", Direction: entity.DirectionWrite},
		{Name: entity.BindingHMICommand, NodeID: "ns=2;s=HMICommand", Direction: entity.DirectionBoth},
	}
}

func newLoop(link Link, store *testutil.MemStore, cfg Config) *Loop {
	return NewLoop(link, store.InventoryRepo(), store.CabinetRepo(), testBindings(), cfg, logger.Nop(), nil)
}

func seedStore(capacity int64) *testutil.MemStore {
	store := testutil.NewMemStore()
	store.AddShelf(&entity.Shelf{ID: 1, CabinetID: 1, Name: "A1", Capacity: capacity, CategoryMode: entity.CategoryModeMulti, CategoryIDs: []int64{10}})
	return store
}

func TestCycle_PublicaLasSenales(t *testing.T) {
	link := newFakeLink()
	store := seedStore(100)
	store.SetQuantity(1, 1, 30)
	loop := newLoop(link, store, Config{})

	loop.Cycle(context.Background())

	assert.Equal(t, int64(30), link.node("ns=2;s=ItemCount"))
	assert.Equal(t, entity.TrafficLightGreen, link.node("ns=2;s=TrafficLight"))
	assert.Equal(t, HMIStatusIdle, link.node("ns=2;s=HMIStatus"))
	assert.False(t, loop.Stale())
	assert.False(t, loop.Status().LastCycleAt.IsZero())
}

func TestCycle_EscribeSoloLoQueCambia(t *testing.T) {
	link := newFakeLink()
	store := seedStore(100)
	store.SetQuantity(1, 1, 30)
	loop := newLoop(link, store, Config{})
	ctx := context.Background()

	loop.Cycle(ctx)
	writes := link.writeCount()

	// Sin cambios: ningún nodo se reescribe.
	loop.Cycle(ctx)
	assert.Equal(t, writes, link.writeCount())

	// Cambia el conteo: solo ese nodo se escribe de nuevo.
	store.SetQuantity(1, 1, 35)
	loop.Cycle(ctx)
	assert.Equal(t, writes+1, link.writeCount())
	assert.Equal(t, int64(35), link.node("ns=2;s=ItemCount"))
}

func TestCycle_SemaforoPorUmbralesDeOcupacion(t *testing.T) {
	link := newFakeLink()
	store := seedStore(100)
	loop := newLoop(link, store, Config{YellowThreshold: 0.7, RedThreshold: 0.9})
	ctx := context.Background()

	store.SetQuantity(1, 1, 69)
	loop.Cycle(ctx)
	assert.Equal(t, entity.TrafficLightGreen, link.node("ns=2;s=TrafficLight"))

	store.SetQuantity(1, 1, 70)
	loop.Cycle(ctx)
	assert.Equal(t, entity.TrafficLightYellow, link.node("ns=2;s=TrafficLight"))

	store.SetQuantity(1, 1, 95)
	loop.Cycle(ctx)
	assert.Equal(t, entity.TrafficLightRed, link.node("ns=2;s=TrafficLight"))
}

func TestCycle_EnlaceCaidoMarcaStaleYNoTocaElPLC(t *testing.T) {
	link := newFakeLink()
	link.connected = false
	store := seedStore(100)
	store.SetQuantity(1, 1, 10)
	loop := newLoop(link, store, Config{})

	loop.Cycle(context.Background())

	assert.True(t, loop.Stale())
	assert.Zero(t, link.writeCount(), "sin enlace no hay I/O remoto")

	// Al volver el enlace, el siguiente ciclo recupera el espejo.
	link.mu.Lock()
	link.connected = true
	link.mu.Unlock()
	loop.Cycle(context.Background())
	assert.False(t, loop.Stale())
	assert.Equal(t, int64(10), link.node("ns=2;s=ItemCount"))
}

func TestCycle_ErrorDeEscrituraMarcaStale(t *testing.T) {
	link := newFakeLink()
	link.writeErr = assert.AnError
	store := seedStore(100)
	loop := newLoop(link, store, Config{})

	loop.Cycle(context.Background())
	assert.True(t, loop.Stale())
}

func TestPollCommands_ConsumeYAcusaElComando(t *testing.T) {
	link := newFakeLink()
	link.nodes["ns=2;s=HMICommand"] = "START"
	store := seedStore(100)
	loop := newLoop(link, store, Config{})

	var got []string
	loop.OnCommand(func(cmd string) { got = append(got, cmd) })

	loop.Cycle(context.Background())

	assert.Equal(t, []string{"START"}, got)
	assert.Equal(t, HMIStatusRunning, loop.HMIStatus())
	assert.Equal(t, entity.HMICommandNone, link.node("ns=2;s=HMICommand"),
		"el comando se acusa escribiendo NONE; si no, se repetiría cada ciclo")
}

func TestPollCommands_ComandoNoReconocidoSeIgnora(t *testing.T) {
	link := newFakeLink()
	link.nodes["ns=2;s=HMICommand"] = "AUTODESTRUCT"
	store := seedStore(100)
	loop := newLoop(link, store, Config{})

	called := false
	loop.OnCommand(func(string) { called = true })
	loop.Cycle(context.Background())

	assert.False(t, called)
	assert.Equal(t, "AUTODESTRUCT", link.node("ns=2;s=HMICommand"), "sin acuse para lo no reconocido")
}

func TestHandleCommand_ParadaDeEmergencia(t *testing.T) {
	link := newFakeLink()
	store := seedStore(100)
	store.SetQuantity(1, 1, 5) // ocupación baja: en condiciones normales sería verde
	loop := newLoop(link, store, Config{})
	ctx := context.Background()

	loop.HandleCommand("EMERGENCY_STOP")
	assert.Equal(t, HMIStatusEmergency, loop.HMIStatus())

	loop.Cycle(ctx)
	assert.Equal(t, entity.TrafficLightRed, link.node("ns=2;s=TrafficLight"),
		"la emergencia fuerza rojo aunque la ocupación sea baja")

	// START no saca de emergencia; RESET sí.
	loop.HandleCommand("START")
	assert.Equal(t, HMIStatusEmergency, loop.HMIStatus())
	loop.HandleCommand("RESET")
	assert.Equal(t, HMIStatusIdle, loop.HMIStatus())

	loop.Cycle(ctx)
	assert.Equal(t, entity.TrafficLightGreen, link.node("ns=2;s=TrafficLight"))
}

func TestEnlaceCaido_LasTransaccionesLocalesSiguen(t *testing.T) {
	link := newFakeLink()
	link.connected = false
	store := seedStore(100)
	loop := newLoop(link, store, Config{})

	led := ledger.NewService(store, store.CabinetRepo(), logger.Nop(), nil)
	led.OnCommit(loop.Trigger)

	// Con el PLC caído la transacción local confirma igual.
	res, err := led.Append(context.Background(), ledger.Candidate{
		IdempotencyKey: "k1", Kind: entity.KindLoad, ItemID: 1, CategoryID: 10, ShelfID: 1,
		Quantity: 5, StaffID: 7, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCommitted, res.Tx.Status)
	assert.Equal(t, int64(5), store.Quantity(1, 1))

	loop.Cycle(context.Background())
	assert.True(t, loop.Stale(), "el espejo queda marcado como desactualizado")
	assert.Zero(t, link.writeCount())
}

func TestRun_TriggerProvocaUnCicloInmediato(t *testing.T) {
	link := newFakeLink()
	store := seedStore(100)
	store.SetQuantity(1, 1, 10)
	loop := newLoop(link, store, Config{Interval: time.Hour}) // solo el trigger puede ciclar

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool { return link.node("ns=2;s=ItemCount") == int64(10) },
		time.Second, time.Millisecond)

	store.SetQuantity(1, 1, 12)
	loop.Trigger()
	require.Eventually(t, func() bool { return link.node("ns=2;s=ItemCount") == int64(12) },
		time.Second, time.Millisecond)
}

func TestHandleCommand_LoadYUnloadFijanElModoDeOperacion(t *testing.T) {
	loop := newLoop(newFakeLink(), seedStore(100), Config{})
	assert.Empty(t, loop.OperationMode())

	loop.HandleCommand("LOAD")
	assert.Equal(t, entity.HMICommandLoad, loop.OperationMode())
	assert.Equal(t, HMIStatusRunning, loop.HMIStatus())

	loop.HandleCommand("UNLOAD")
	assert.Equal(t, entity.HMICommandUnload, loop.OperationMode())

	loop.HandleCommand("RESET")
	assert.Empty(t, loop.OperationMode())
}

func TestHandleCommand_LaEmergenciaAnulaElModoDeOperacion(t *testing.T) {
	loop := newLoop(newFakeLink(), seedStore(100), Config{})

	loop.HandleCommand("LOAD")
	loop.HandleCommand("EMERGENCY_STOP")
	assert.Empty(t, loop.OperationMode())

	// En emergencia no se admite fijar un modo.
	loop.HandleCommand("UNLOAD")
	assert.Empty(t, loop.OperationMode())
	assert.Equal(t, HMIStatusEmergency, loop.HMIStatus())
}
