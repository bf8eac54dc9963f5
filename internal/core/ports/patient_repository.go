package ports

import (
	"context"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// PatientRepository persists patient records. A DNI collision is reported as
// domain.ErrPatientDNIExists.
type PatientRepository interface {
	Create(ctx context.Context, patient *domain.Patient) (*domain.Patient, error)
	// Delete removes a patient. It is only used to undo a signup whose user
	// could not be created.
	Delete(ctx context.Context, id string) error
}
