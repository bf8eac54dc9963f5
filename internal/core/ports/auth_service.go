package ports

import (
	"context"
	"time"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// RegisterInput carries the fields of a staff or generic user registration.
type RegisterInput struct {
	Username   string
	Password   string
	Role       string
	MedicoID   string
	PacienteID string
}

// LoginResult is the stateless outcome of a successful login.
type LoginResult struct {
	Payload   domain.SessionPayload
	Token     string
	ExpiresAt time.Time
}

// RegisterPatientInput carries a public patient signup. Age is a pointer so
// that an absent value can be told apart from zero.
type RegisterPatientInput struct {
	Username      string
	GoogleEmail   string
	Password      string
	DNI           string
	FirstName     string
	LastName      string
	Age           *int
	Sex           string
	HealthInsurer string
	MemberNumber  string
}

// PatientRegistration holds both records created by a patient signup.
type PatientRegistration struct {
	User    domain.UserSummary
	Patient domain.PatientSummary
}

// UpdateUserInput lists the replaceable fields; empty strings are left alone.
type UpdateUserInput struct {
	ID       string
	Username string
	Password string
}

// AuthService defines the account lifecycle use cases.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// EstablishSession stores payload server-side and returns the session id,
	// or "" when the deployment runs without sessions.
	EstablishSession(ctx context.Context, payload domain.SessionPayload) (string, error)
	Logout(ctx context.Context, sessionID string) error
	RegisterPatient(ctx context.Context, in RegisterPatientInput) (*PatientRegistration, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
}
