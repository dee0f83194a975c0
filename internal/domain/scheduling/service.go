package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/timeparam"
)

// DefaultMeetingBaseURL hosts the video rooms when no base URL is configured.
const DefaultMeetingBaseURL = "https://meet.jit.si"

type Service struct {
	appointments   AppointmentRepository
	meetingBaseURL string
	now            func() time.Time
}

func NewService(appt AppointmentRepository, meetingBaseURL string) *Service {
	if meetingBaseURL == "" {
		meetingBaseURL = DefaultMeetingBaseURL
	}
	return &Service{
		appointments:   appt,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// NewMeeting returns a fresh room for tenant: <base>/<tenant>-<uuid>.
func (s *Service) NewMeeting(tenant string) Meeting {
	id := uuid.NewString()
	return Meeting{ID: id, URL: s.meetingBaseURL + "/" + tenant + "-" + id}
}

func (s *Service) CreateAppointment(ctx context.Context, in *AppointmentInput) (*Appointment, error) {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		return nil, db.ErrNoTenant
	}

	if missing := missingFields(in); len(missing) > 0 {
		return nil, apierr.Invalid("Campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	date, err := timeparam.Parse(*in.Date)
	if err != nil {
		return nil, apierr.Invalid("Data inválida")
	}

	now := s.now()
	a := &Appointment{
		ID:           uuid.NewString(),
		Patient:      strings.TrimSpace(*in.Patient),
		Professional: strings.TrimSpace(*in.Professional),
		Service:      strings.TrimSpace(*in.Service),
		Date:         date,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.PatientID != nil {
		a.PatientID = *in.PatientID
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return nil, apierr.Invalid("Duração inválida")
		}
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.Status != nil && *in.Status != "" {
		if !validStatuses[*in.Status] {
			return nil, apierr.Invalid("Status inválido: %s", *in.Status)
		}
		a.Status = *in.Status
	}

	// A client that already holds a room keeps it; otherwise one is
	// provisioned before the single insert.
	if in.MeetingURL != nil && strings.TrimSpace(*in.MeetingURL) != "" {
		a.MeetingURL = strings.TrimSpace(*in.MeetingURL)
		if in.MeetingID != nil {
			a.MeetingID = *in.MeetingID
		}
	} else {
		m := s.NewMeeting(tenant)
		a.MeetingID, a.MeetingURL = m.ID, m.URL
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// UpdateAppointment applies the provided fields. A record without a meeting
// URL gets one in the same write; an existing URL is never replaced and
// client-supplied meeting fields are ignored.
func (s *Service) UpdateAppointment(ctx context.Context, id string, in *AppointmentInput) (*Appointment, error) {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		return nil, db.ErrNoTenant
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}
	return s.appointments.Update(ctx, id, patch, s.NewMeeting(tenant))
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int64, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apierr.Invalid("Status inválido: %s", f.Status)
	}
	return s.appointments.Search(ctx, f, limit, offset)
}

func (s *Service) buildPatch(in *AppointmentInput) (*AppointmentPatch, error) {
	p := &AppointmentPatch{
		Patient:         trimmed(in.Patient),
		PatientID:       in.PatientID,
		Professional:    trimmed(in.Professional),
		Service:         trimmed(in.Service),
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
		UpdatedAt:       s.now(),
	}
	for name, v := range map[string]*string{"patient": p.Patient, "professional": p.Professional, "service": p.Service} {
		if v != nil && *v == "" {
			return nil, apierr.Invalid("Campo %s não pode ser vazio", name)
		}
	}
	if in.Date != nil {
		d, err := timeparam.Parse(*in.Date)
		if err != nil {
			return nil, apierr.Invalid("Data inválida")
		}
		p.Date = &d
	}
	if in.Status != nil {
		if !validStatuses[*in.Status] {
			return nil, apierr.Invalid("Status inválido: %s", *in.Status)
		}
		p.Status = in.Status
	}
	if p.DurationMinutes != nil && *p.DurationMinutes < 0 {
		return nil, apierr.Invalid("Duração inválida")
	}
	return p, nil
}

func missingFields(in *AppointmentInput) []string {
	var missing []string
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"patient", in.Patient},
		{"professional", in.Professional},
		{"service", in.Service},
		{"date", in.Date},
	} {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
