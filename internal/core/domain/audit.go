package domain

import "time"

type AuditType string

const (
	AuditRegister      AuditType = "register"
	AuditLogin         AuditType = "login"
	AuditLogout        AuditType = "logout"
	AuditPatientSignup AuditType = "patient_signup"
	AuditUserUpdate    AuditType = "user_update"
	AuditUserDelete    AuditType = "user_delete"
)

type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// AuditEvent records an account lifecycle action. It never carries secrets.
type AuditEvent struct {
	Type       AuditType
	Username   string
	UserID     string // empty when the action failed before a user was resolved
	Outcome    AuditOutcome
	Reason     string // short failure kind, e.g. "conflict"
	OccurredAt time.Time
}
