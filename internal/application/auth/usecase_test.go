package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/auth"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/dto"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/testutil"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/jwt"
)

func newUseCase(t *testing.T) (*auth.UseCase, *testutil.MemStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)

	store := testutil.NewMemStore()
	store.AddStaff(&entity.Staff{
		ID: 1, Username: "mrojas", PasswordHash: string(hash),
		Role: entity.RoleOperator, Active: true,
	})
	store.AddStaff(&entity.Staff{
		ID: 2, Username: "jduarte", PasswordHash: string(hash),
		Role: entity.RoleOperator, Active: false,
	})
	cfg := auth.JWTConfig{Secret: "clave-de-prueba", ExpMinutes: 60, Issuer: "warehouse-test"}
	return auth.NewUseCase(store.StaffRepo(), cfg), store
}

func TestLogin_OK(t *testing.T) {
	uc, _ := newUseCase(t)

	res, err := uc.Login(dto.LoginRequest{Username: "mrojas", Password: "secreto123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(1), res.Staff.ID)
	assert.Equal(t, entity.RoleOperator, res.Staff.Role)

	staffID, role, err := jwt.Parse("clave-de-prueba", res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), staffID)
	assert.Equal(t, entity.RoleOperator, role)
}

func TestLogin_PasswordIncorrecto(t *testing.T) {
	uc, _ := newUseCase(t)
	_, err := uc.Login(dto.LoginRequest{Username: "mrojas", Password: "otra"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_UsuarioInexistente(t *testing.T) {
	uc, _ := newUseCase(t)
	_, err := uc.Login(dto.LoginRequest{Username: "nadie", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_PersonalInactivo(t *testing.T) {
	uc, _ := newUseCase(t)
	_, err := uc.Login(dto.LoginRequest{Username: "jduarte", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLogin_EntradaVacia(t *testing.T) {
	uc, _ := newUseCase(t)
	_, err := uc.Login(dto.LoginRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
