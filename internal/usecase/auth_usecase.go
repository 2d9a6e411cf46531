package usecase

import (
	"context"
	"errors"
	"fmt"

	"puppychop-api/internal/delivery/dto"
	"puppychop-api/internal/domain/entity"
	"puppychop-api/internal/service"
	"puppychop-api/pkg/jwt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// StaffSubject is the token subject issued for the clinic staff key.
const StaffSubject = "front-desk"

var (
	ErrInvalidCredentials = errors.New("invalid staff api key")
	ErrStaffAuthDisabled  = errors.New("staff authentication is not configured")
)

type AuthUsecase interface {
	IssueStaffToken(ctx context.Context, req *dto.StaffTokenRequest) (*dto.TokenResponse, error)
}

type authUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditService service.AuditService
	jwtService   *jwt.JWTService
	apiKeyHash   string
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditService service.AuditService,
	jwtService *jwt.JWTService,
	apiKeyHash string,
) AuthUsecase {
	return &authUsecase{
		db:           db,
		log:          log,
		auditService: auditService,
		jwtService:   jwtService,
		apiKeyHash:   apiKeyHash,
	}
}

// IssueStaffToken exchanges the staff API key for a short-lived access token.
// The key is compared against its bcrypt hash from configuration.
func (u *authUsecase) IssueStaffToken(ctx context.Context, req *dto.StaffTokenRequest) (*dto.TokenResponse, error) {
	if u.apiKeyHash == "" {
		return nil, ErrStaffAuthDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.apiKeyHash), []byte(req.APIKey)); err != nil {
		u.log.Warnf("Rejected staff token request: %v", err)
		return nil, ErrInvalidCredentials
	}

	accessToken, tokenID, err := u.jwtService.GenerateAccessToken(StaffSubject, jwt.RoleStaff)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.auditService.LogCreate(ctx, tx, "staff:"+StaffSubject, entity.AuditActionStaffLogin, "token", tokenID, nil); err != nil {
		return nil, fmt.Errorf("audit staff login: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit staff login: %w", err)
	}

	u.log.Infof("Staff token issued: token_id=%s", tokenID)
	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}
