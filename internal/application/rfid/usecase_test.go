package rfid_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/testutil"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

func newService(store *testutil.MemStore) *rfid.Service {
	led := ledger.NewService(store, store.CabinetRepo(), logger.Nop(), nil)
	return rfid.NewService(
		store.ItemRepo(), store.StaffRepo(), store.CabinetRepo(),
		store.InventoryRepo(), store.TrackingRepo(), led, logger.Nop(),
	)
}

func seedStore() *testutil.MemStore {
	store := testutil.NewMemStore()
	store.AddItem(&entity.Item{ID: 1, Name: "Taladro", RFIDTag: "TAG-ITEM", Barcode: "750100", CategoryID: 10})
	store.AddStaff(&entity.Staff{ID: 7, Username: "mrojas", RFIDTag: "TAG-STAFF", Role: entity.RoleOperator, Active: true})
	store.AddStaff(&entity.Staff{ID: 8, Username: "jduarte", RFIDTag: "TAG-BAJA", Role: entity.RoleOperator, Active: false})
	store.AddShelf(&entity.Shelf{ID: 1, CabinetID: 1, Name: "A1", Capacity: 10, CategoryMode: entity.CategoryModeMulti, CategoryIDs: []int64{10}})
	store.AddShelf(&entity.Shelf{ID: 2, CabinetID: 1, Name: "A2", Capacity: 10, CategoryMode: entity.CategoryModeMulti, CategoryIDs: []int64{10}})
	return store
}

func TestAuth(t *testing.T) {
	svc := newService(seedStore())

	staff, err := svc.Auth("TAG-STAFF")
	require.NoError(t, err)
	assert.Equal(t, int64(7), staff.ID)

	_, err = svc.Auth("TAG-INEXISTENTE")
	assert.ErrorIs(t, err, domain.ErrUnknownTag)

	_, err = svc.Auth("TAG-BAJA")
	assert.ErrorIs(t, err, domain.ErrInactiveStaff)

	_, err = svc.Auth("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_SinEstanteConsolidaDondeYaEstaElItem(t *testing.T) {
	store := seedStore()
	store.SetQuantity(1, 2, 3) // el producto ya vive en el estante 2
	svc := newService(store)

	res, err := svc.Load(context.Background(), rfid.OpInput{
		RFIDTag: "TAG-ITEM", Quantity: 2, StaffID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Shelf.ID)
	assert.Equal(t, int64(5), store.Quantity(1, 2))
}

func TestLoad_TagDesconocido(t *testing.T) {
	svc := newService(seedStore())
	_, err := svc.Load(context.Background(), rfid.OpInput{RFIDTag: "NADIE", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownTag)
}

func TestLoad_PorCodigoDeBarras(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	res, err := svc.Load(context.Background(), rfid.OpInput{
		Barcode: "750100", Quantity: 1, ShelfID: 1, StaffID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Shelf.ID)
}

func TestGet_InfiereElUnicoEstanteConElProducto(t *testing.T) {
	store := seedStore()
	store.SetQuantity(1, 2, 5)
	svc := newService(store)

	res, err := svc.Get(context.Background(), rfid.OpInput{
		RFIDTag: "TAG-ITEM", Quantity: 2, StaffID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Shelf.ID)
	assert.Equal(t, int64(3), store.Quantity(1, 2))
}

func TestGet_ProductoRepartidoExigeEstante(t *testing.T) {
	store := seedStore()
	store.SetQuantity(1, 1, 2)
	store.SetQuantity(1, 2, 2)
	svc := newService(store)

	_, err := svc.Get(context.Background(), rfid.OpInput{RFIDTag: "TAG-ITEM", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Con estante explícito sí procede.
	res, err := svc.Get(context.Background(), rfid.OpInput{
		RFIDTag: "TAG-ITEM", Quantity: 1, ShelfID: 1, StaffID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Shelf.ID)
}

func TestGet_SinExistencias(t *testing.T) {
	svc := newService(seedStore())
	_, err := svc.Get(context.Background(), rfid.OpInput{RFIDTag: "TAG-ITEM", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestMove_InfiereOrigenYResuelveDestino(t *testing.T) {
	store := seedStore()
	store.SetQuantity(1, 1, 4)
	svc := newService(store)

	res, err := svc.Move(context.Background(), rfid.OpInput{
		RFIDTag: "TAG-ITEM", Quantity: 4, StaffID: 7,
	})
	require.NoError(t, err)
	// El destino nunca puede ser el estante de origen.
	assert.Equal(t, int64(2), res.Shelf.ID)
	assert.Equal(t, int64(0), store.Quantity(1, 1))
	assert.Equal(t, int64(4), store.Quantity(1, 2))
}

func TestDeriveKey_EsDeterminista(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	k1 := rfid.DeriveKey("TAG-ITEM", "lector-1", ts)
	k2 := rfid.DeriveKey("TAG-ITEM", "lector-1", ts)
	assert.Equal(t, k1, k2)

	assert.NotEqual(t, k1, rfid.DeriveKey("TAG-ITEM", "lector-2", ts))
	assert.NotEqual(t, k1, rfid.DeriveKey("TAG-ITEM", "lector-1", ts.Add(time.Millisecond)))
}

func TestLoad_ReenvioDelLectorNoDuplica(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	in := rfid.OpInput{
		RFIDTag: "TAG-ITEM", Quantity: 2, ShelfID: 1, StaffID: 7,
		ReaderID: "lector-1", Timestamp: time.Now(),
	}
	first, err := svc.Load(context.Background(), in)
	require.NoError(t, err)

	// El lector reenvía la misma lectura: misma clave derivada, mismo resultado.
	second, err := svc.Load(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Tx.ID, second.Tx.ID)
	assert.Equal(t, int64(2), store.Quantity(1, 1))
}

func TestProcessScan_IdentificaYDejaRastro(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	results, err := svc.ProcessScan(context.Background(), "lector-1",
		[]string{"TAG-ITEM", "TAG-STAFF", "TAG-FANTASMA", ""})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "item", results[0].Kind)
	assert.Equal(t, int64(1), results[0].Item.ID)
	assert.Equal(t, "staff", results[1].Kind)
	assert.Equal(t, int64(7), results[1].Staff.ID)
	assert.Equal(t, "unknown", results[2].Kind)

	hist, err := store.TrackingRepo().ListByTag("TAG-ITEM", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.TrackingScanned, hist[0].Status)
}

func TestProcessEvent_EnModoLoadCargaUnaUnidad(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	res, err := svc.ProcessEvent(context.Background(), "lector-1", "TAG-ITEM",
		time.Now(), entity.HMICommandLoad)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, entity.StatusCommitted, res.Tx.Status)
	assert.Equal(t, entity.KindLoad, res.Tx.Kind)
	assert.Equal(t, int64(1), store.Quantity(1, res.Shelf.ID))
}

func TestProcessEvent_EnModoUnloadRetiraUnaUnidad(t *testing.T) {
	store := seedStore()
	store.SetQuantity(1, 2, 4)
	svc := newService(store)

	res, err := svc.ProcessEvent(context.Background(), "lector-1", "TAG-ITEM",
		time.Now(), entity.HMICommandUnload)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, entity.KindUnload, res.Tx.Kind)
	assert.Equal(t, int64(3), store.Quantity(1, 2))
}

func TestProcessEvent_SinModoSoloDejaRastro(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	res, err := svc.ProcessEvent(context.Background(), "lector-1", "TAG-ITEM", time.Now(), "")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, store.Quantity(1, 1))

	hist, err := store.TrackingRepo().ListByTag("TAG-ITEM", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.TrackingScanned, hist[0].Status)
}

func TestProcessEvent_TagDePersonalNoMutaInventario(t *testing.T) {
	store := seedStore()
	svc := newService(store)

	res, err := svc.ProcessEvent(context.Background(), "lector-1", "TAG-STAFF",
		time.Now(), entity.HMICommandLoad)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, store.Quantity(1, 1))
}
