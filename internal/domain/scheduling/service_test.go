package scheduling

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/db"
)

// mockAppointmentRepo stores records per tenant the way the scoped
// collection does: every operation only sees the context tenant's records.
type mockAppointmentRepo struct {
	mu    sync.Mutex
	store map[string]map[string]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[string]map[string]*Appointment)}
}

func (m *mockAppointmentRepo) bucket(ctx context.Context) (map[string]*Appointment, error) {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		return nil, db.ErrNoTenant
	}
	b, ok := m.store[tenant]
	if !ok {
		b = make(map[string]*Appointment)
		m.store[tenant] = b
	}
	return b, nil
}

func (m *mockAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(ctx)
	if err != nil {
		return err
	}
	a.SetTenantPath(db.TenantFromContext(ctx))
	cp := *a
	b[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := b[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(ctx context.Context, id string, patch *AppointmentPatch, meeting Meeting) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := b[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	patch.Apply(a)
	if a.MeetingURL == "" {
		a.MeetingID, a.MeetingURL = meeting.ID, meeting.URL
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(ctx)
	if err != nil {
		return err
	}
	if _, ok := b[id]; !ok {
		return db.ErrNotFound
	}
	delete(b, id)
	return nil
}

func (m *mockAppointmentRepo) Search(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(ctx)
	if err != nil {
		return nil, 0, err
	}
	var out []*Appointment
	for _, a := range b {
		if f.Professional != "" && a.Professional != f.Professional {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	total := int64(len(out))
	if offset >= len(out) {
		return []*Appointment{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func tenantCtx(tenant string) context.Context {
	return db.WithConn(context.Background(), db.NewConn(tenant, nil, nil, 0))
}

func strPtr(s string) *string { return &s }

func validInput() *AppointmentInput {
	return &AppointmentInput{
		Patient:      strPtr("Jane"),
		Professional: strPtr("doc1"),
		Service:      strPtr("Consulta Médica"),
		Date:         strPtr("2024-01-10T10:00"),
	}
}

var meetingURLPattern = regexp.MustCompile(`^https://meet\.jit\.si/acme-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestCreateAppointment_ProvisionsMeeting(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	a, err := svc.CreateAppointment(tenantCtx("acme"), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.MeetingID == "" {
		t.Fatal("expected meetingId")
	}
	if !meetingURLPattern.MatchString(a.MeetingURL) {
		t.Errorf("unexpected meeting url %s", a.MeetingURL)
	}
	if !strings.HasSuffix(a.MeetingURL, a.MeetingID) {
		t.Errorf("meeting url %s does not end with id %s", a.MeetingURL, a.MeetingID)
	}
	if a.Status != StatusPending {
		t.Errorf("expected default status Pending, got %s", a.Status)
	}
	if a.TenantPath != "acme" {
		t.Errorf("expected tenantPath acme, got %s", a.TenantPath)
	}
	if !a.Date.Equal(time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %s", a.Date)
	}
}

func TestCreateAppointment_CustomMeetingBase(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "https://video.example.com/")
	a, err := svc.CreateAppointment(tenantCtx("acme"), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.MeetingURL, "https://video.example.com/acme-") {
		t.Errorf("unexpected meeting url %s", a.MeetingURL)
	}
}

func TestCreateAppointment_KeepsClientMeeting(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	in := validInput()
	in.MeetingID = strPtr("room-1")
	in.MeetingURL = strPtr("https://meet.jit.si/acme-room-1")
	a, err := svc.CreateAppointment(tenantCtx("acme"), in)
	if err != nil {
		t.Fatal(err)
	}
	if a.MeetingURL != "https://meet.jit.si/acme-room-1" || a.MeetingID != "room-1" {
		t.Errorf("expected client meeting kept, got %s %s", a.MeetingID, a.MeetingURL)
	}
}

func TestCreateAppointment_IgnoresClientTenantPath(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	in := validInput()
	in.TenantPath = strPtr("other")
	a, err := svc.CreateAppointment(tenantCtx("acme"), in)
	if err != nil {
		t.Fatal(err)
	}
	if a.TenantPath != "acme" {
		t.Errorf("expected tenantPath acme, got %s", a.TenantPath)
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	tests := []struct {
		name   string
		mutate func(*AppointmentInput)
	}{
		{"missing patient", func(in *AppointmentInput) { in.Patient = nil }},
		{"blank professional", func(in *AppointmentInput) { in.Professional = strPtr("  ") }},
		{"missing date", func(in *AppointmentInput) { in.Date = nil }},
		{"bad date", func(in *AppointmentInput) { in.Date = strPtr("amanhã") }},
		{"bad status", func(in *AppointmentInput) { in.Status = strPtr("Done") }},
		{"negative duration", func(in *AppointmentInput) { d := -5; in.DurationMinutes = &d }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, err := svc.CreateAppointment(tenantCtx("acme"), in)
			var ve *apierr.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateAppointment_NoTenant(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	if _, err := svc.CreateAppointment(context.Background(), validInput()); !errors.Is(err, db.ErrNoTenant) {
		t.Errorf("expected ErrNoTenant, got %v", err)
	}
}

func TestUpdateAppointment_KeepsMeetingURL(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	ctx := tenantCtx("acme")
	a, _ := svc.CreateAppointment(ctx, validInput())

	updated, err := svc.UpdateAppointment(ctx, a.ID, &AppointmentInput{
		Status:     strPtr(StatusConfirmed),
		MeetingURL: strPtr("https://evil.example.com/x"),
		MeetingID:  strPtr("x"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.MeetingURL != a.MeetingURL || updated.MeetingID != a.MeetingID {
		t.Errorf("meeting changed from %s to %s", a.MeetingURL, updated.MeetingURL)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("expected Confirmed, got %s", updated.Status)
	}

	again, _ := svc.UpdateAppointment(ctx, a.ID, &AppointmentInput{Notes: strPtr("retorno")})
	if again.MeetingURL != a.MeetingURL {
		t.Errorf("second update changed meeting url to %s", again.MeetingURL)
	}
}

func TestUpdateAppointment_ProvisionsWhenMissing(t *testing.T) {
	repo := newMockAppointmentRepo()
	svc := NewService(repo, "")
	ctx := tenantCtx("acme")

	legacy := &Appointment{ID: "legacy", Patient: "Ana", Professional: "doc1", Service: "Retorno", Status: StatusPending}
	_ = repo.Create(ctx, legacy)

	first, err := svc.UpdateAppointment(ctx, "legacy", &AppointmentInput{Status: strPtr(StatusConfirmed)})
	if err != nil {
		t.Fatal(err)
	}
	if !meetingURLPattern.MatchString(first.MeetingURL) {
		t.Fatalf("expected provisioned url, got %q", first.MeetingURL)
	}
	second, _ := svc.UpdateAppointment(ctx, "legacy", &AppointmentInput{Status: strPtr(StatusCanceled)})
	if second.MeetingURL != first.MeetingURL {
		t.Errorf("expected url provisioned once, got %s then %s", first.MeetingURL, second.MeetingURL)
	}
}

func TestUpdateAppointment_OtherTenantNotFound(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	a, _ := svc.CreateAppointment(tenantCtx("acme"), validInput())

	_, err := svc.UpdateAppointment(tenantCtx("globex"), a.ID, &AppointmentInput{Status: strPtr(StatusConfirmed)})
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got %v", err)
	}
	if err := svc.DeleteAppointment(tenantCtx("globex"), a.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound on cross-tenant delete, got %v", err)
	}
	if _, err := svc.GetAppointment(tenantCtx("acme"), a.ID); err != nil {
		t.Errorf("record must survive the cross-tenant delete: %v", err)
	}
}

func TestUpdateAppointment_Validation(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	ctx := tenantCtx("acme")
	a, _ := svc.CreateAppointment(ctx, validInput())

	for name, in := range map[string]*AppointmentInput{
		"bad status":  {Status: strPtr("Maybe")},
		"bad date":    {Date: strPtr("x")},
		"empty field": {Patient: strPtr(" ")},
	} {
		var ve *apierr.ValidationError
		if _, err := svc.UpdateAppointment(ctx, a.ID, in); !errors.As(err, &ve) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestListAppointments_TenantIsolationAndFilters(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	acme := tenantCtx("acme")

	for i, prof := range []string{"doc1", "doc2", "doc1"} {
		in := validInput()
		in.Professional = strPtr(prof)
		in.Date = strPtr(time.Date(2024, 1, 10+i, 9, 0, 0, 0, time.UTC).Format(time.RFC3339))
		if _, err := svc.CreateAppointment(acme, in); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = svc.CreateAppointment(tenantCtx("globex"), validInput())

	all, total, err := svc.ListAppointments(acme, AppointmentFilter{}, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 acme appointments, got %d/%d", len(all), total)
	}
	for _, a := range all {
		if a.TenantPath != "acme" {
			t.Errorf("leaked record from tenant %s", a.TenantPath)
		}
	}
	if !all[0].Date.After(all[1].Date) {
		t.Error("expected date descending order")
	}

	doc1, _, _ := svc.ListAppointments(acme, AppointmentFilter{Professional: "doc1"}, 100, 0)
	if len(doc1) != 2 {
		t.Errorf("expected 2 for doc1, got %d", len(doc1))
	}

	from := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	ranged, _, _ := svc.ListAppointments(acme, AppointmentFilter{From: &from}, 100, 0)
	if len(ranged) != 2 {
		t.Errorf("expected 2 from Jan 11, got %d", len(ranged))
	}

	if _, _, err := svc.ListAppointments(acme, AppointmentFilter{Status: "nope"}, 100, 0); err == nil {
		t.Error("expected invalid status filter to be rejected")
	}
}

func TestNewMeeting_Unique(t *testing.T) {
	svc := NewService(newMockAppointmentRepo(), "")
	a, b := svc.NewMeeting("acme"), svc.NewMeeting("acme")
	if a.ID == b.ID || a.URL == b.URL {
		t.Error("expected distinct meetings")
	}
}
