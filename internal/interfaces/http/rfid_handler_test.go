package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/auth"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/plcsync"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	apphttp "github.com/GeorgiDimov1228/warehouse-management/internal/interfaces/http"
	"github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/opcua"
	rfidinfra "github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/testutil"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

// stubReaders provider fijo para el endpoint de estado de lectores.
type stubReaders struct{ statuses []rfidinfra.Status }

func (s stubReaders) Statuses() []rfidinfra.Status { return s.statuses }

// stubLink enlace PLC desconectado; suficiente para montar el router.
type stubLink struct{}

func (stubLink) Connected() bool                              { return false }
func (stubLink) Read(context.Context, string) (any, error)    { return nil, nil }
func (stubLink) Write(context.Context, string, any) error     { return nil }

// stubTransport transporte OPC UA que nunca se conecta (el cliente no corre en el test).
type stubTransport struct{}

func (stubTransport) Connect(context.Context) error                 { return nil }
func (stubTransport) Close() error                                  { return nil }
func (stubTransport) Read(context.Context, string) (any, error)     { return nil, nil }
func (stubTransport) Write(context.Context, string, any) error      { return nil }

// buildAPI monta la aplicación completa sobre el almacén en memoria.
func buildAPI(t *testing.T, store *testutil.MemStore) *fiber.App {
	t.Helper()
	log := logger.Nop()

	ledgerSvc := ledger.NewService(store, store.CabinetRepo(), log, nil)
	svc := rfid.NewService(store.ItemRepo(), store.StaffRepo(), store.CabinetRepo(),
		store.InventoryRepo(), store.TrackingRepo(), ledgerSvc, log)
	authUC := auth.NewUseCase(store.StaffRepo(), auth.JWTConfig{
		Secret:     testJWTSecret,
		ExpMinutes: testExpMin,
		Issuer:     testIssuer,
	})
	client := opcua.NewClient(opcua.Config{Endpoint: "opc.tcp://test:4840"},
		func() opcua.Transport { return stubTransport{} }, log, nil)
	loop := plcsync.NewLoop(stubLink{}, store.InventoryRepo(), store.CabinetRepo(),
		nil, plcsync.Config{}, log, nil)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:          authUC,
		RFIDService:     svc,
		Ledger:          ledgerSvc,
		Readers:         stubReaders{},
		OPCUAClient:     client,
		SyncLoop:        loop,
		InventoryRepo:   store.InventoryRepo(),
		ItemRepo:        store.ItemRepo(),
		CabinetRepo:     store.CabinetRepo(),
		TransactionRepo: store.TransactionRepo(),
		CategoryRepo:    store.CategoryRepo(),
		JWTSecret:       testJWTSecret,
	})
	return app
}

func seedAPI(t *testing.T) *testutil.MemStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto"), bcrypt.MinCost)
	require.NoError(t, err)
	store := testutil.NewMemStore()
	store.AddStaff(&entity.Staff{ID: 1, Username: "maria", PasswordHash: string(hash),
		RFIDTag: "CARD-001", Role: "admin", Active: true})
	store.AddItem(&entity.Item{ID: 10, Name: "Taladro", RFIDTag: "TAG-010", CategoryID: 1})
	store.AddShelf(&entity.Shelf{ID: 5, CabinetID: 1, Name: "A-1", Capacity: 20,
		CategoryMode: entity.CategoryModeMulti, CategoryIDs: []int64{1}})
	return store
}

func postJSON(t *testing.T, app *fiber.App, path, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// authToken autentica con la tarjeta y devuelve el token emitido.
func authToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := postJSON(t, app, "/api/rfid/auth", "", fiber.Map{"rfid_tag": "CARD-001"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestRFIDAuth_EmiteTokenUsable(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	// El token emitido por la tarjeta abre las rutas protegidas.
	resp := getJSON(t, app, "/api/inventory", token)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRFIDAuth_TarjetaDesconocida(t *testing.T) {
	app := buildAPI(t, seedAPI(t))
	resp := postJSON(t, app, "/api/rfid/auth", "", fiber.Map{"rfid_tag": "CARD-999"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoad_SinTokenRetorna401(t *testing.T) {
	app := buildAPI(t, seedAPI(t))
	resp := postJSON(t, app, "/api/rfid/load", "", fiber.Map{"rfid_tag": "TAG-010", "shelf_id": 5})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoad_CargaYReenvioIdempotente(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	body := fiber.Map{"rfid_tag": "TAG-010", "shelf_id": 5, "quantity": 3,
		"idempotency_key": "op-123"}

	resp := postJSON(t, app, "/api/rfid/load", token, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		ShelfID       int64  `json:"shelf_id"`
		Quantity      int64  `json:"quantity"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.Equal(t, "ok", first.Status)
	assert.Equal(t, int64(5), first.ShelfID)
	assert.Equal(t, int64(3), first.Quantity)
	assert.Equal(t, int64(3), store.Quantity(10, 5))

	// Mismo idempotency_key: devuelve la transacción original sin duplicar.
	resp2 := postJSON(t, app, "/api/rfid/load", token, body)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var second struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&second))
	assert.Equal(t, "replayed", second.Status)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, int64(3), store.Quantity(10, 5))
}

func TestGet_SinExistenciasRetorna409(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/rfid/get", token, fiber.Map{"rfid_tag": "TAG-010", "quantity": 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTransactions_ListaElLedger(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/rfid/load", token,
		fiber.Map{"rfid_tag": "TAG-010", "shelf_id": 5, "quantity": 2, "idempotency_key": "op-1"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := getJSON(t, app, "/api/transactions", token)
	defer list.Body.Close()
	require.Equal(t, http.StatusOK, list.StatusCode)

	var txs []struct {
		Kind     string `json:"kind"`
		ItemID   int64  `json:"item_id"`
		Quantity int64  `json:"quantity"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "load", txs[0].Kind)
	assert.Equal(t, int64(10), txs[0].ItemID)
	assert.Equal(t, int64(2), txs[0].Quantity)
}

func TestItemLocation_DevuelveElEstanteActual(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/rfid/load", token,
		fiber.Map{"rfid_tag": "TAG-010", "shelf_id": 5, "quantity": 4, "idempotency_key": "op-loc"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loc := getJSON(t, app, "/api/inventory/items/10/location", token)
	defer loc.Body.Close()
	require.Equal(t, http.StatusOK, loc.StatusCode)

	var out []struct {
		ShelfID  int64 `json:"shelf_id"`
		Quantity int64 `json:"quantity"`
	}
	require.NoError(t, json.NewDecoder(loc.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(5), out[0].ShelfID)
	assert.Equal(t, int64(4), out[0].Quantity)
}

func TestOPCUAStatus_SinEnlaceReportaDesconectadoYStale(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := getJSON(t, app, "/api/opcua/status", token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		State string `json:"state"`
		Stale bool   `json:"stale"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "disconnected", out.State)
	assert.True(t, out.Stale, "sin ciclos de sincronización el espejo debe ser stale")
}

func TestOPCUARead_SinConexionRetorna503(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/opcua/read", token, fiber.Map{"node_id": "ns=2;s=ItemCount"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHMICommand_ComandoInvalidoRetorna400(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/opcua/hmi-command", token, fiber.Map{"command": "EXPLOTAR"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHMICommand_RequiereRolAdmin(t *testing.T) {
	store := seedAPI(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("x"), bcrypt.MinCost)
	require.NoError(t, err)
	store.AddStaff(&entity.Staff{ID: 2, Username: "pedro", PasswordHash: string(hash),
		RFIDTag: "CARD-002", Role: "operator", Active: true})
	app := buildAPI(t, store)

	resp := postJSON(t, app, "/api/rfid/auth", "", fiber.Map{"rfid_tag": "CARD-002"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	cmd := postJSON(t, app, "/api/opcua/hmi-command", body.Token, fiber.Map{"command": "START"})
	defer cmd.Body.Close()
	assert.Equal(t, http.StatusForbidden, cmd.StatusCode)
}

func TestTagHistory_DevuelveLosAvistamientos(t *testing.T) {
	store := seedAPI(t)
	app := buildAPI(t, store)
	token := authToken(t, app)

	resp := postJSON(t, app, "/api/rfid/load", token,
		fiber.Map{"rfid_tag": "TAG-010", "shelf_id": 5, "quantity": 2})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	hist := getJSON(t, app, "/api/rfid/tags/TAG-010/history", token)
	defer hist.Body.Close()
	require.Equal(t, http.StatusOK, hist.StatusCode)

	var entries []struct {
		RFIDTag string `json:"rfid_tag"`
		ShelfID int64  `json:"shelf_id"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "TAG-010", entries[0].RFIDTag)
	assert.Equal(t, int64(5), entries[0].ShelfID)
	assert.Equal(t, entity.TrackingAdded, entries[0].Status)
}

func TestTagHistory_TagSinLecturasDevuelveListaVacia(t *testing.T) {
	app := buildAPI(t, seedAPI(t))
	token := authToken(t, app)

	resp := getJSON(t, app, "/api/rfid/tags/TAG-NUNCA-VISTO/history", token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Empty(t, entries)
}
