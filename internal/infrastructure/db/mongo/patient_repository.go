package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

const collectionPatients = "pacientes"

// PatientRepository implements ports.PatientRepository.
type PatientRepository struct {
	col *mongo.Collection
}

func NewPatientRepository(db *mongo.Database) *PatientRepository {
	return &PatientRepository{col: db.Collection(collectionPatients)}
}

type mongoPatient struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	DNI           string             `bson:"DNI"`
	FirstName     string             `bson:"Nombre"`
	LastName      string             `bson:"Apellido"`
	Age           int                `bson:"Edad"`
	Sex           string             `bson:"Sexo"`
	HealthInsurer string             `bson:"ObraSocial"`
	MemberNumber  string             `bson:"NroAfiliado"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// Create inserts p. A second patient with the same DNI yields ErrPatientDNIExists.
func (r *PatientRepository) Create(ctx context.Context, p *domain.Patient) (*domain.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, mongoPatient{
		DNI:           p.DNI,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Age:           p.Age,
		Sex:           p.Sex,
		HealthInsurer: p.HealthInsurer,
		MemberNumber:  p.MemberNumber,
		CreatedAt:     p.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrPatientDNIExists
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}

	created := *p
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPatientNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

// EnsureIndexes creates the unique DNI index.
func (r *PatientRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "DNI", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
