package patient

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/pkg/timeparam"
)

type Service struct {
	patients  PatientRepository
	documents DocumentRepository
	now       func() time.Time
}

func NewService(p PatientRepository, d DocumentRepository) *Service {
	return &Service{patients: p, documents: d, now: func() time.Time { return time.Now().UTC() }}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, in *PatientInput) (*Patient, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apierr.Invalid("Nome do paciente é obrigatório")
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &Patient{ID: uuid.NewString(), CreatedAt: now}
	patch.Apply(p)
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id string, in *PatientInput) (*Patient, error) {
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}
	return s.patients.Update(ctx, id, patch)
}

// DeletePatient removes the patient only; attached documents are kept.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, q string, limit, offset int) ([]*Patient, int64, error) {
	return s.patients.Search(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) buildPatch(in *PatientInput) (*PatientPatch, error) {
	p := &PatientPatch{
		Name:      trimmed(in.Name),
		Email:     trimmed(in.Email),
		Phone:     trimmed(in.Phone),
		Document:  trimmed(in.Document),
		Address:   in.Address,
		Notes:     in.Notes,
		UpdatedAt: s.now(),
	}
	if p.Name != nil && *p.Name == "" {
		return nil, apierr.Invalid("Nome do paciente é obrigatório")
	}
	if p.Email != nil && *p.Email != "" && !strings.Contains(*p.Email, "@") {
		return nil, apierr.Invalid("Email inválido")
	}
	if p.Email != nil {
		lower := strings.ToLower(*p.Email)
		p.Email = &lower
	}
	if in.BirthDate != nil && strings.TrimSpace(*in.BirthDate) != "" {
		d, err := timeparam.Parse(*in.BirthDate)
		if err != nil {
			return nil, apierr.Invalid("Data de nascimento inválida")
		}
		p.BirthDate = &d
	}
	return p, nil
}

// -- Document --

// AddDocument attaches document metadata to an existing patient.
func (s *Service) AddDocument(ctx context.Context, patientID string, in *DocumentInput) (*Document, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	name, link := strings.TrimSpace(in.Name), strings.TrimSpace(in.URL)
	if name == "" || link == "" {
		return nil, apierr.Invalid("Nome e URL do documento são obrigatórios")
	}
	if u, err := url.Parse(link); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apierr.Invalid("URL do documento inválida")
	}
	if in.Size < 0 {
		return nil, apierr.Invalid("Tamanho do documento inválido")
	}
	d := &Document{
		ID:         uuid.NewString(),
		PatientID:  patientID,
		Name:       name,
		Type:       strings.TrimSpace(in.Type),
		URL:        link,
		Size:       in.Size,
		UploadedAt: s.now(),
	}
	if err := s.documents.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.documents.GetByID(ctx, id)
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	return s.documents.Delete(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, patientID string, limit, offset int) ([]*Document, int64, error) {
	return s.documents.List(ctx, patientID, limit, offset)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
