package domain

// SessionPayload is the identity snapshot written into a session on login and
// carried as the claim set of issued tokens.
type SessionPayload struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Role       Role    `json:"role"`
	MedicoID   *string `json:"medicoId"`
	PacienteID *string `json:"pacienteId"`
}

// NewSessionPayload builds the payload for u. Missing references are nil so
// they serialise as JSON null.
func NewSessionPayload(u *User) SessionPayload {
	return SessionPayload{
		ID:         u.ID,
		Username:   u.Username,
		Role:       u.Profile.Role(),
		MedicoID:   optional(u.Profile.MedicoRef()),
		PacienteID: optional(u.Profile.PacienteRef()),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
