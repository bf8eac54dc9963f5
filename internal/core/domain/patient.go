package domain

import "time"

// Patient holds the demographic data of a clinic patient.
type Patient struct {
	ID            string    `json:"id"`
	DNI           string    `json:"DNI"`
	FirstName     string    `json:"Nombre"`
	LastName      string    `json:"Apellido"`
	Age           int       `json:"Edad"`
	Sex           string    `json:"Sexo"`
	HealthInsurer string    `json:"ObraSocial"`
	MemberNumber  string    `json:"NroAfiliado"`
	CreatedAt     time.Time `json:"-"`
}

// PatientSummary is the part of a patient record returned after signup.
type PatientSummary struct {
	ID        string `json:"id"`
	DNI       string `json:"DNI"`
	FirstName string `json:"Nombre"`
	LastName  string `json:"Apellido"`
}

func (p *Patient) Summary() PatientSummary {
	return PatientSummary{ID: p.ID, DNI: p.DNI, FirstName: p.FirstName, LastName: p.LastName}
}
