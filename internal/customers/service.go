package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

// ErrAlreadyRegistered is returned when the phone number already belongs to a
// customer.
var ErrAlreadyRegistered = errors.New("phone number already registered")

// Repo is the customer storage the registration flow needs.
type Repo interface {
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Create(ctx context.Context, phone, fullName string, age int, sex string) (*models.Customer, error)
}

// CodeVerifier gates registration with one-time passcodes.
type CodeVerifier interface {
	Issue(ctx context.Context, phone string) (string, error)
	Check(phone, submitted string) bool
}

type Service struct {
	repo     Repo
	verifier CodeVerifier
}

func NewService(repo Repo, verifier CodeVerifier) *Service {
	return &Service{repo: repo, verifier: verifier}
}

// RequestCode issues a verification code for an unregistered phone number.
// A delivery failure propagates (otp.ErrNotificationFailed) but the code was
// still issued and stays valid.
func (s *Service) RequestCode(ctx context.Context, phone string) error {
	existing, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyRegistered
	}
	_, err = s.verifier.Issue(ctx, phone)
	return err
}

// VerifyCode checks a submitted code; true at most once per issued code.
func (s *Service) VerifyCode(phone, code string) bool {
	return s.verifier.Check(phone, code)
}

// Register creates the customer with a zero balance. The phone is re-checked
// here because two registrations can race past the request-code check.
func (s *Service) Register(ctx context.Context, phone, fullName string, age int, sex string) (*models.Customer, error) {
	existing, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}
	c, err := s.repo.Create(ctx, phone, fullName, age, sex)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return c, nil
}
