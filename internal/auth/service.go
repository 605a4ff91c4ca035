package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

var (
	// ErrInvalidCredentials is returned for unknown usernames, wrong passwords
	// and deactivated staff alike, so login leaks nothing.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when creating a staff member whose
	// username is taken.
	ErrDuplicateUsername = errors.New("username already in use")
	// ErrStaffNotFound is returned when no staff member has the given id.
	ErrStaffNotFound = errors.New("staff member not found")
	// ErrInvalidRole is returned for roles outside admin/cashier.
	ErrInvalidRole = errors.New("invalid role")
)

// StaffUpdate carries the mutable staff fields; nil means leave unchanged.
type StaffUpdate struct {
	FullName *string
	Role     *string
	Password *string
	Active   *bool
}

type Service interface {
	Login(ctx context.Context, username, password string) (string, *models.Staff, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
	CreateStaff(ctx context.Context, fullName, username, password, role string) (*models.Staff, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error)
	ListStaff(ctx context.Context) ([]*models.Staff, error)
	UpdateStaff(ctx context.Context, id uuid.UUID, upd StaffUpdate) (*models.Staff, error)
	DeactivateStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error)
}

type service struct {
	repo     *Repository
	secret   []byte
	tokenTTL time.Duration
}

func NewService(repo *Repository) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "devsecret-change-me"
	}
	return &service{repo: repo, secret: []byte(secret), tokenTTL: 7 * 24 * time.Hour}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Login(ctx context.Context, username, password string) (string, *models.Staff, error) {
	staff, hash, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if staff == nil || !staff.Active {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(staff.ID, staff.Role)
	if err != nil {
		return "", nil, err
	}
	return token, staff, nil
}

func (s *service) issueToken(staffID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func (s *service) CreateStaff(ctx context.Context, fullName, username, password, role string) (*models.Staff, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	staff, err := s.repo.Create(ctx, fullName, username, string(hash), role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return staff, nil
}

func (s *service) GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListStaff(ctx context.Context) ([]*models.Staff, error) {
	return s.repo.List(ctx)
}

// UpdateStaff applies the non-nil fields. A new password is re-hashed; the
// role, when given, must be a known one.
func (s *service) UpdateStaff(ctx context.Context, id uuid.UUID, upd StaffUpdate) (*models.Staff, error) {
	if upd.Role != nil && !models.ValidRole(*upd.Role) {
		return nil, ErrInvalidRole
	}
	var passwordHash *string
	if upd.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		passwordHash = &h
	}
	return s.repo.Update(ctx, id, upd.FullName, upd.Role, upd.Active, passwordHash)
}

// DeactivateStaff is the soft delete: the row stays for ledger history joins,
// but login is refused from the next attempt on.
func (s *service) DeactivateStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	return s.repo.Deactivate(ctx, id)
}
