package scheduling

import "context"

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	// Update applies patch and, only when the stored record has no meeting
	// URL yet, assigns meeting. Both happen in one write.
	Update(ctx context.Context, id string, patch *AppointmentPatch, meeting Meeting) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int64, error)
}
