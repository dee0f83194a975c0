package patient

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, id string, patch *PatientPatch) (*Patient, error)
	Delete(ctx context.Context, id string) error
	// Search matches q case-insensitively against the name; empty q lists all.
	Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int64, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string) error
	// List returns documents newest first; empty patientID lists all.
	List(ctx context.Context, patientID string, limit, offset int) ([]*Document, int64, error)
}
