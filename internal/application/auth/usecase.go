package auth

import (
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/dto"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// UseCase login de personal: password para la API, tarjeta RFID para el piso.
type UseCase struct {
	staffRepo repository.StaffRepository
	jwtCfg    JWTConfig
}

// NewUseCase construye el caso de uso de auth.
func NewUseCase(staffRepo repository.StaffRepository, jwtCfg JWTConfig) *UseCase {
	return &UseCase{staffRepo: staffRepo, jwtCfg: jwtCfg}
}

// Login verifica username/password, genera JWT y retorna token + personal.
func (uc *UseCase) Login(in dto.LoginRequest) (*dto.LoginResponse, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	staff, err := uc.staffRepo.GetByUsername(in.Username)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !staff.Active {
		return nil, domain.ErrForbidden
	}
	token, err := uc.TokenFor(staff)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		Staff: *ToStaffResponse(staff),
	}, nil
}

// TokenFor emite un token para un miembro ya autenticado (login por tarjeta).
func (uc *UseCase) TokenFor(staff *entity.Staff) (string, error) {
	return jwt.Generate(uc.jwtCfg.Secret, staff.ID, staff.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
}

// ToStaffResponse proyección pública de un miembro del personal.
func ToStaffResponse(s *entity.Staff) *dto.StaffResponse {
	if s == nil {
		return nil
	}
	return &dto.StaffResponse{
		ID:       s.ID,
		Username: s.Username,
		Role:     s.Role,
		Active:   s.Active,
	}
}
