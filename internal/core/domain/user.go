package domain

import (
	"fmt"
	"time"
)

// Role identifies which kind of actor a user is.
type Role string

const (
	RoleAdministrative Role = "Administrativo"
	RoleMedical        Role = "Medico"
	RolePatient        Role = "Paciente"
)

// ParseRole reports whether s names one of the known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdministrative, RoleMedical, RolePatient:
		return r, true
	}
	return "", false
}

// Profile is the role of a user together with the role-specific reference.
// Only Medico profiles can carry a medico reference and only Paciente profiles
// can carry a paciente reference. The zero value is not a valid profile.
type Profile struct {
	role Role
	ref  string
}

// AdministrativeProfile returns the profile of administrative staff.
func AdministrativeProfile() Profile {
	return Profile{role: RoleAdministrative}
}

// MedicalProfile returns a Medico profile. medicoID may be empty.
func MedicalProfile(medicoID string) Profile {
	return Profile{role: RoleMedical, ref: medicoID}
}

// PatientProfile returns a Paciente profile. pacienteID may be empty.
func PatientProfile(pacienteID string) Profile {
	return Profile{role: RolePatient, ref: pacienteID}
}

// NewProfile builds a profile from loosely typed input. A reference given for
// a role that cannot hold it is rejected with a *ValidationError.
func NewProfile(role Role, medicoID, pacienteID string) (Profile, error) {
	switch role {
	case RoleAdministrative:
		if medicoID != "" || pacienteID != "" {
			return Profile{}, NewValidationError("role Administrativo does not accept medicoId or pacienteId")
		}
		return AdministrativeProfile(), nil
	case RoleMedical:
		if pacienteID != "" {
			return Profile{}, NewValidationError("role Medico does not accept pacienteId")
		}
		return MedicalProfile(medicoID), nil
	case RolePatient:
		if medicoID != "" {
			return Profile{}, NewValidationError("role Paciente does not accept medicoId")
		}
		return PatientProfile(pacienteID), nil
	}
	return Profile{}, NewValidationError("invalid role")
}

func (p Profile) Role() Role { return p.role }

// MedicoRef returns the medical profile reference, or "" when there is none.
func (p Profile) MedicoRef() string {
	if p.role != RoleMedical {
		return ""
	}
	return p.ref
}

// PacienteRef returns the patient reference, or "" when there is none.
func (p Profile) PacienteRef() string {
	if p.role != RolePatient {
		return ""
	}
	return p.ref
}

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Profile      Profile   `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserSummary is the projection used when listing users.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Summary projects u to the fields that are safe to expose.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Role: u.Profile.Role()}
}

// MaxPasswordBytes is the longest password bcrypt accepts, counted in bytes.
const MaxPasswordBytes = 72

// CheckPassword rejects passwords the hasher cannot take.
func CheckPassword(password string) error {
	if len(password) > MaxPasswordBytes {
		return &ValidationError{
			Message: fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes),
			Fields:  []string{"password"},
		}
	}
	return nil
}
