package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/peakkart/peakkart-backend/pkg/auth"
	"github.com/peakkart/peakkart-backend/pkg/config"
	dbpkg "github.com/peakkart/peakkart-backend/pkg/db"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service handles account registration and login.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type tenantReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Tenant, error)
}

// loginLimiter throttles credential attempts per account.
type loginLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type service struct {
	users       userRepository
	tenants     tenantReader
	limiter     loginLimiter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	authCfg     config.AuthConfig
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo     userRepository
	TenantReader tenantReader
	LoginLimiter loginLimiter
	JWTConfig    config.JWTConfig
	PasswordCfg  config.PasswordConfig
	AuthCfg      config.AuthConfig
}

// NewService constructs the auth service. TenantReader and LoginLimiter may
// be nil; login then skips tenant claims and rate limiting respectively.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &service{
		users:       params.UserRepo,
		tenants:     params.TenantReader,
		limiter:     params.LoginLimiter,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		authCfg:     params.AuthCfg,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and password are required")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         enums.RoleCustomer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create user")
	}

	return s.respondWithToken(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allowAttempt(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.respondWithToken(ctx, user)
}

func (s *service) allowAttempt(ctx context.Context, email string) error {
	if s.limiter == nil || s.authCfg.LoginRateLimit <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:"+email, int64(s.authCfg.LoginRateLimit), s.authCfg.LoginRateLimitWindow)
	if err != nil {
		// Redis being down must not lock everyone out.
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later")
	}
	return nil
}

// respondWithToken mints the access token, attaching the tenant id for
// tenant-role accounts so tenant endpoints can scope queries.
func (s *service) respondWithToken(ctx context.Context, user *models.User) (*AuthResponse, error) {
	var tenantID *uuid.UUID
	if user.Role == enums.RoleTenant && s.tenants != nil {
		tenant, err := s.tenants.FindByUserID(ctx, user.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load tenant")
		}
		if tenant != nil {
			id := tenant.ID
			tenantID = &id
		}
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		TenantID: tenantID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint token")
	}

	return &AuthResponse{
		AccessToken: token,
		User: UserSummary{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}
