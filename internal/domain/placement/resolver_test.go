package placement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/placement"
)

const (
	catFasteners int64 = 1
	catTools     int64 = 2
)

func itemA() *entity.Item {
	return &entity.Item{ID: 100, Name: "Tornillo M6", CategoryID: catFasteners}
}

func shelfSingle(id, cabinet, capacity int64, cat int64) *entity.Shelf {
	return &entity.Shelf{
		ID: id, CabinetID: cabinet, Capacity: capacity,
		CategoryMode: entity.CategoryModeSingle, CategoryIDs: []int64{cat},
	}
}

func shelfMulti(id, cabinet, capacity int64, cats ...int64) *entity.Shelf {
	return &entity.Shelf{
		ID: id, CabinetID: cabinet, Capacity: capacity,
		CategoryMode: entity.CategoryModeMulti, CategoryIDs: cats,
	}
}

// Escenario del contrato: S1 (single "fasteners", cap 10, ya con 3 del item A)
// y S2 (multi que admite "fasteners", vacío). Cargar 2 más de A sin estante
// explícito debe consolidar en S1.
func TestResolve_ConsolidaEnEstanteQueYaTieneElItem(t *testing.T) {
	s1 := shelfSingle(1, 1, 10, catFasteners)
	s2 := shelfMulti(2, 1, 0, catFasteners, catTools)
	records := []*entity.InventoryRecord{{ItemID: 100, ShelfID: 1, Quantity: 3}}

	shelf, err := placement.Resolve(itemA(), 2, 0, []*entity.Shelf{s1, s2}, records)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shelf.ID, "debe preferir el estante que ya contiene el item")
}

// Un estante single de otra categoría nunca es elegible, aunque sea el único.
func TestResolve_NuncaDevuelveEstanteDeCategoriaIncompatible(t *testing.T) {
	s1 := shelfSingle(1, 1, 10, catTools)

	_, err := placement.Resolve(itemA(), 1, 0, []*entity.Shelf{s1}, nil)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)
}

// Single requiere exactamente la categoría del item; multi basta con contenerla.
func TestResolve_ModosDeCategoria(t *testing.T) {
	single := shelfSingle(1, 1, 10, catFasteners)
	multi := shelfMulti(2, 1, 10, catTools, catFasteners)

	shelf, err := placement.Resolve(itemA(), 1, 0, []*entity.Shelf{multi}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shelf.ID)

	shelf, err = placement.Resolve(itemA(), 1, 0, []*entity.Shelf{single}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shelf.ID)
}

// Sin consolidación posible gana el estante con más capacidad restante.
func TestResolve_PrefiereMayorCapacidadRestante(t *testing.T) {
	s1 := shelfSingle(1, 1, 5, catFasteners)
	s2 := shelfSingle(2, 1, 20, catFasteners)
	records := []*entity.InventoryRecord{{ItemID: 999, ShelfID: 2, Quantity: 2}} // otro item

	shelf, err := placement.Resolve(itemA(), 1, 0, []*entity.Shelf{s1, s2}, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shelf.ID) // restante 17 > restante 4
}

// Empate total: desempata el menor ID, siempre el mismo.
func TestResolve_DesempateEstablePorID(t *testing.T) {
	s1 := shelfSingle(7, 1, 10, catFasteners)
	s2 := shelfSingle(3, 1, 10, catFasteners)

	for i := 0; i < 10; i++ {
		shelf, err := placement.Resolve(itemA(), 1, 0, []*entity.Shelf{s1, s2}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), shelf.ID)
	}
}

// Gabinete solicitado primero; si ninguno de sus estantes califica, se
// abre a los otros gabinetes.
func TestResolve_GabineteSolicitadoConFallback(t *testing.T) {
	enCab1 := shelfSingle(1, 1, 10, catFasteners)
	enCab2 := shelfSingle(2, 2, 10, catFasteners)

	// Con capacidad en el gabinete pedido, se queda ahí aunque el otro tenga más espacio.
	records := []*entity.InventoryRecord{{ItemID: 999, ShelfID: 1, Quantity: 8}}
	shelf, err := placement.Resolve(itemA(), 2, 1, []*entity.Shelf{enCab1, enCab2}, records)
	require.NoError(t, err)
	assert.Equal(t, int64(1), shelf.ID)

	// Gabinete pedido lleno: cae al otro.
	records = []*entity.InventoryRecord{{ItemID: 999, ShelfID: 1, Quantity: 10}}
	shelf, err = placement.Resolve(itemA(), 2, 1, []*entity.Shelf{enCab1, enCab2}, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shelf.ID)
}

// La carga hipotética cuenta: un estante con espacio para 1 no acepta 2.
func TestResolve_CapacidadInsuficienteParaLaCantidad(t *testing.T) {
	s1 := shelfSingle(1, 1, 10, catFasteners)
	records := []*entity.InventoryRecord{{ItemID: 100, ShelfID: 1, Quantity: 9}}

	_, err := placement.Resolve(itemA(), 2, 0, []*entity.Shelf{s1}, records)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)
}

// Capacity 0 = sin límite: siempre cabe, pero la consolidación sigue mandando.
func TestResolve_EstanteSinLimite(t *testing.T) {
	limitado := shelfSingle(1, 1, 10, catFasteners)
	ilimitado := shelfMulti(2, 1, 0, catFasteners)

	shelf, err := placement.Resolve(itemA(), 1000, 0, []*entity.Shelf{limitado, ilimitado}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), shelf.ID)
}

func TestResolve_EntradaInvalida(t *testing.T) {
	_, err := placement.Resolve(nil, 1, 0, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = placement.Resolve(itemA(), 0, 0, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
