package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinica-salud/identity-service/internal/pkg/metrics"
	"github.com/clinica-salud/identity-service/internal/core/domain"
	"github.com/clinica-salud/identity-service/internal/core/ports"
)

// AuthService implements registration, login, logout, patient signup and
// user administration. It holds no per-request state.
type AuthService struct {
	users    ports.UserRepository
	patients ports.PatientRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	sessions ports.SessionStore // nil in token-only deployments
	audit    ports.AuditRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithSessions enables server-side sessions.
func WithSessions(store ports.SessionStore) Option {
	return func(s *AuthService) { s.sessions = store }
}

// WithAudit sends account lifecycle events to rec.
func WithAudit(rec ports.AuditRecorder) Option {
	return func(s *AuthService) { s.audit = rec }
}

func NewAuthService(
	users ports.UserRepository,
	patients ports.PatientRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	logger zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		patients: patients,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	var missing []string
	if in.Username == "" {
		missing = append(missing, "username")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, domain.MissingFields("fields", missing)
	}

	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, &domain.ValidationError{Message: "invalid role", Fields: []string{"role"}}
	}
	profile, err := domain.NewProfile(role, in.MedicoID, in.PacienteID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, "register", in.Username); err != nil {
		s.recordFailure(domain.AuditRegister, in.Username, err)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal("register: hash password", err)
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Profile:      profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.recordFailure(domain.AuditRegister, in.Username, err)
			return nil, domain.ErrUserExists
		}
		return nil, domain.Internal("register: create user", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(string(role)).Inc()
	s.record(domain.AuditEvent{Type: domain.AuditRegister, Username: created.Username, UserID: created.ID, Outcome: domain.OutcomeSuccess})
	s.logger.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("user registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.NewValidationError("username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.loginFailed(username)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal("login: find user", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.loginFailed(username)
		return nil, domain.ErrInvalidCredentials
	}

	payload := domain.NewSessionPayload(user)
	token, exp, err := s.tokens.Issue(payload)
	if err != nil {
		return nil, domain.Internal("login: issue token", err)
	}

	metrics.LoginsTotal.WithLabelValues(string(domain.OutcomeSuccess)).Inc()
	s.record(domain.AuditEvent{Type: domain.AuditLogin, Username: user.Username, UserID: user.ID, Outcome: domain.OutcomeSuccess})
	return &ports.LoginResult{Payload: payload, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) loginFailed(username string) {
	metrics.LoginsTotal.WithLabelValues(string(domain.OutcomeFailure)).Inc()
	s.record(domain.AuditEvent{Type: domain.AuditLogin, Username: username, Outcome: domain.OutcomeFailure, Reason: "invalid_credentials"})
}

func (s *AuthService) EstablishSession(ctx context.Context, payload domain.SessionPayload) (string, error) {
	if s.sessions == nil {
		return "", nil
	}
	sid, err := s.sessions.Create(ctx, payload)
	if err != nil {
		return "", domain.Internal("establish session", err)
	}
	return sid, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	ev := domain.AuditEvent{Type: domain.AuditLogout, Outcome: domain.OutcomeSuccess}
	payload, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load session before logout")
	} else if payload != nil {
		ev.Username, ev.UserID = payload.Username, payload.ID
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("user_id", ev.UserID).Msg("failed to destroy session")
		return domain.ErrSessionClose
	}
	s.record(ev)
	return nil
}

// RegisterPatient creates a patient record and the Paciente user linked to
// it. The two writes are not atomic: when the user cannot be created the
// patient is deleted again.
func (s *AuthService) RegisterPatient(ctx context.Context, in ports.RegisterPatientInput) (*ports.PatientRegistration, error) {
	username := in.Username
	if username == "" {
		username = in.GoogleEmail
	}
	if username == "" {
		return nil, &domain.ValidationError{Message: "username or googleEmail is required", Fields: []string{"username"}}
	}
	if missing := missingPatientFields(in); len(missing) > 0 {
		return nil, domain.MissingFields("patient fields", missing)
	}
	if err := domain.CheckPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, "register patient", username); err != nil {
		s.recordFailure(domain.AuditPatientSignup, username, err)
		return nil, err
	}

	patient, err := s.patients.Create(ctx, &domain.Patient{
		DNI:           in.DNI,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Age:           *in.Age,
		Sex:           in.Sex,
		HealthInsurer: in.HealthInsurer,
		MemberNumber:  in.MemberNumber,
		CreatedAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrPatientDNIExists) {
			s.recordFailure(domain.AuditPatientSignup, username, err)
			return nil, domain.ErrPatientDNIExists
		}
		return nil, domain.Internal("register patient: create patient", err)
	}

	password := in.Password
	if password == "" {
		// Federated signups get a secret nobody knows.
		password = uuid.NewString()
	}

	user, err := s.createPatientUser(ctx, username, password, patient.ID)
	if err != nil {
		s.compensatePatient(ctx, patient.ID)
		if errors.Is(err, domain.ErrUserExists) {
			s.recordFailure(domain.AuditPatientSignup, username, err)
			return nil, domain.ErrUserExists
		}
		return nil, domain.Internal("register patient: create user", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(string(domain.RolePatient)).Inc()
	s.record(domain.AuditEvent{Type: domain.AuditPatientSignup, Username: user.Username, UserID: user.ID, Outcome: domain.OutcomeSuccess})
	s.logger.Info().Str("user_id", user.ID).Str("patient_id", patient.ID).Msg("patient registered")

	return &ports.PatientRegistration{User: user.Summary(), Patient: patient.Summary()}, nil
}

func (s *AuthService) createPatientUser(ctx context.Context, username, password, patientID string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Profile:      domain.PatientProfile(patientID),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// compensatePatient removes a patient whose user could not be created. It
// ignores cancellation of the request so a client disconnect does not leave
// the orphan behind.
func (s *AuthService) compensatePatient(ctx context.Context, patientID string) {
	if err := s.patients.Delete(context.WithoutCancel(ctx), patientID); err != nil {
		metrics.SignupCompensationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("patient_id", patientID).Msg("orphaned patient left after failed signup")
		return
	}
	metrics.SignupCompensationsTotal.WithLabelValues("deleted").Inc()
	s.logger.Warn().Str("patient_id", patientID).Msg("patient removed after failed signup")
}

func missingPatientFields(in ports.RegisterPatientInput) []string {
	var missing []string
	if in.DNI == "" {
		missing = append(missing, "DNI")
	}
	if in.FirstName == "" {
		missing = append(missing, "Nombre")
	}
	if in.LastName == "" {
		missing = append(missing, "Apellido")
	}
	if in.Age == nil {
		missing = append(missing, "Edad")
	}
	if in.Sex == "" {
		missing = append(missing, "Sexo")
	}
	if in.HealthInsurer == "" {
		missing = append(missing, "ObraSocial")
	}
	if in.MemberNumber == "" {
		missing = append(missing, "NroAfiliado")
	}
	return missing
}

func (s *AuthService) UpdateUser(ctx context.Context, in ports.UpdateUserInput) error {
	if in.Username == "" && in.Password == "" {
		return &domain.ValidationError{
			Message: "at least one of username or password is required",
			Fields:  []string{"username", "password"},
		}
	}
	if err := domain.CheckPassword(in.Password); err != nil {
		return err
	}

	user, err := s.findByID(ctx, "update user", in.ID)
	if err != nil {
		return err
	}

	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return domain.Internal("update user: hash password", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			return domain.ErrUserExists
		case errors.Is(err, domain.ErrUserNotFound):
			return domain.ErrUserNotFound
		}
		return domain.Internal("update user", err)
	}

	s.record(domain.AuditEvent{Type: domain.AuditUserUpdate, Username: user.Username, UserID: user.ID, Outcome: domain.OutcomeSuccess})
	return nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.findByID(ctx, "delete user", id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return domain.Internal("delete user", err)
	}

	s.record(domain.AuditEvent{Type: domain.AuditUserDelete, Username: user.Username, UserID: user.ID, Outcome: domain.OutcomeSuccess})
	s.logger.Info().Str("user_id", user.ID).Msg("user deleted")
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	return users, nil
}

func (s *AuthService) findByID(ctx context.Context, op, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal(op+": find user", err)
	}
	return user, nil
}

// ensureUsernameFree is a best-effort pre-check; the unique index remains the
// authority under concurrent registrations.
func (s *AuthService) ensureUsernameFree(ctx context.Context, op, username string) error {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return domain.ErrUserExists
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return domain.Internal(op+": find user", err)
	}
}

func (s *AuthService) record(ev domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	ev.OccurredAt = s.now()
	s.audit.Record(ev)
}

func (s *AuthService) recordFailure(t domain.AuditType, username string, err error) {
	reason := "internal"
	switch {
	case errors.Is(err, domain.ErrConflict):
		reason = "conflict"
	case errors.Is(err, domain.ErrValidation):
		reason = "validation"
	}
	s.record(domain.AuditEvent{Type: t, Username: username, Outcome: domain.OutcomeFailure, Reason: reason})
}
