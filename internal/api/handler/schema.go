package handler

import (
	"time"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// Presence of required fields is checked by the service so that every missing
// field is reported at once; tags here only constrain format.

type registerRequest struct {
	Username   string `json:"username" validate:"max=254"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	MedicoID   string `json:"medicoId,omitempty"`
	PacienteID string `json:"pacienteId,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerPatientRequest struct {
	Username      string `json:"username" validate:"max=254"`
	GoogleEmail   string `json:"googleEmail"`
	Password      string `json:"password"`
	DNI           string `json:"DNI" validate:"max=20"`
	FirstName     string `json:"Nombre"`
	LastName      string `json:"Apellido"`
	Age           *int   `json:"Edad" validate:"omitempty,gte=0,lte=150"`
	Sex           string `json:"Sexo"`
	HealthInsurer string `json:"ObraSocial"`
	MemberNumber  string `json:"NroAfiliado"`
}

type updateUserRequest struct {
	Username string `json:"username" validate:"max=254"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      domain.SessionPayload `json:"user"`
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
}

type patientRegistrationResponse struct {
	User    domain.UserSummary    `json:"usuario"`
	Patient domain.PatientSummary `json:"paciente"`
}

type messageResponse struct {
	Message string `json:"message"`
}
