package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/db"
	"github.com/gramacare/gramacare/internal/platform/identity"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

type Service struct {
	profiles Repository
	roles    RoleRepository
	idp      identity.Provider
	tokens   *identity.TokenIssuer
	tx       db.TxRunner
	events   notifier.Publisher
}

func NewService(profiles Repository, roles RoleRepository, idp identity.Provider,
	tokens *identity.TokenIssuer, tx db.TxRunner, events notifier.Publisher) *Service {
	return &Service{profiles: profiles, roles: roles, idp: idp, tokens: tokens, tx: tx, events: events}
}

// CreateAccountInput carries everything needed to open an account.
type CreateAccountInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Profile  Profile `json:"profile"`
}

// Session is the result of a successful authentication.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Account is a freshly created profile plus its first session.
type Account struct {
	Profile *Profile `json:"profile"`
	Session Session  `json:"session"`
}

// CreateAccount signs the identity up with the provider, then writes the
// profile and the role assignment in one transaction. If that transaction
// fails, the identity is deleted again so a credential never exists without
// a profile; a failed compensation surfaces as Orphaned so operators can
// reconcile.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	if in.Role != RoleVillager && in.Role != RoleDoctor {
		return nil, apperr.New(apperr.Validation, "role must be villager or doctor")
	}
	if strings.TrimSpace(in.Profile.Name) == "" {
		return nil, apperr.New(apperr.Validation, "name is required")
	}

	ident, err := s.idp.SignUp(ctx, in.Email, in.Password, in.Profile.Phone)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "sign-up rejected")
	}

	p := in.Profile
	p.ID = ident.ID

	txErr := s.tx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, &p); err != nil {
			return err
		}
		return s.roles.Assign(ctx, p.ID, in.Role)
	})
	if txErr != nil {
		if delErr := s.idp.Delete(ctx, ident.ID); delErr != nil {
			return nil, apperr.Wrap(apperr.Orphaned, delErr,
				"account creation failed and identity %s could not be removed", ident.ID)
		}
		return nil, apperr.Wrap(apperr.Internal, txErr, "account creation failed")
	}

	token, expiresAt, err := s.tokens.Issue(p.ID, in.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "issuing session token")
	}

	s.publish(ctx, notifier.OpInsert, p.ID)

	return &Account{
		Profile: &p,
		Session: Session{UserID: p.ID, Role: in.Role, Token: token, ExpiresAt: expiresAt},
	}, nil
}

// SignIn authenticates with email/password and issues a session carrying
// the stored role.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	ident, err := s.idp.SignIn(ctx, email, password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Authorization, err, "sign-in failed")
	}
	return s.sessionFor(ctx, ident.ID)
}

// SendOTP asks the identity provider to text a one-time code to phone.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return apperr.New(apperr.Validation, "phone is required")
	}
	if err := s.idp.SendOTP(ctx, phone); err != nil {
		return apperr.Wrap(apperr.Validation, err, "could not send code")
	}
	return nil
}

// VerifyOTP exchanges a one-time code for a session.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	ident, err := s.idp.VerifyOTP(ctx, phone, code)
	if err != nil {
		return nil, apperr.Wrap(apperr.Authorization, err, "verification failed")
	}
	return s.sessionFor(ctx, ident.ID)
}

func (s *Service) sessionFor(ctx context.Context, userID uuid.UUID) (*Session, error) {
	role, err := s.roles.RoleOf(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "role")
	}
	token, expiresAt, err := s.tokens.Issue(userID, role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "issuing session token")
	}
	return &Session{UserID: userID, Role: role, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	return p, nil
}

func (s *Service) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	role, err := s.roles.RoleOf(ctx, userID)
	if err != nil {
		return "", apperr.FromDB(err, "role")
	}
	return role, nil
}

// Update applies a partial patch to the caller's own profile. Unpatched
// fields keep their prior values; fields foreign to the caller's role are
// ignored.
func (s *Service) Update(ctx context.Context, callerID, userID uuid.UUID, patch Patch) (*Profile, error) {
	if callerID != userID {
		return nil, apperr.New(apperr.Authorization, "profiles can only be updated by their owner")
	}

	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	role, err := s.roles.RoleOf(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "role")
	}

	patch.apply(p, role)
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperr.New(apperr.Validation, "name cannot be blank")
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, apperr.FromDB(err, "profile")
	}

	s.publish(ctx, notifier.OpUpdate, userID)
	return p, nil
}

func (s *Service) ListAvailableDoctors(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	items, total, err := s.profiles.ListAvailableDoctors(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "doctors")
	}
	return items, total, nil
}

func (s *Service) publish(ctx context.Context, op string, id uuid.UUID) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, notifier.Event{Table: "profiles", Op: op, ID: id.String()})
}
