package scheduling

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCanceled  = "Canceled"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCanceled:  true,
}

// Appointment is one booked consultation. MeetingID and MeetingURL are
// provisioned once and never change afterwards.
type Appointment struct {
	ID              string    `bson:"_id" json:"id"`
	TenantPath      string    `bson:"tenantPath" json:"tenantPath"`
	Patient         string    `bson:"patient" json:"patient"`
	PatientID       string    `bson:"patientId,omitempty" json:"patientId,omitempty"`
	Professional    string    `bson:"professional" json:"professional"`
	Service         string    `bson:"service" json:"service"`
	Date            time.Time `bson:"date" json:"date"`
	DurationMinutes int       `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Status          string    `bson:"status" json:"status"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	MeetingID       string    `bson:"meetingId,omitempty" json:"meetingId,omitempty"`
	MeetingURL      string    `bson:"meetingUrl,omitempty" json:"meetingUrl,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (a *Appointment) SetTenantPath(tenant string) { a.TenantPath = tenant }

// Meeting is a provisioned video-call room.
type Meeting struct {
	ID  string
	URL string
}

// AppointmentInput is the request body of create and update. Dates arrive
// as strings because clients send datetime-local values without a zone.
// tenantPath, meetingId and meetingUrl are accepted but only honoured on
// create.
type AppointmentInput struct {
	ID              string  `json:"id"`
	Patient         *string `json:"patient"`
	PatientID       *string `json:"patientId"`
	Professional    *string `json:"professional"`
	Service         *string `json:"service"`
	Date            *string `json:"date"`
	DurationMinutes *int    `json:"durationMinutes"`
	Status          *string `json:"status"`
	Notes           *string `json:"notes"`
	MeetingID       *string `json:"meetingId"`
	MeetingURL      *string `json:"meetingUrl"`
	TenantPath      *string `json:"tenantPath"`
}

// AppointmentPatch holds the validated fields of a partial update.
type AppointmentPatch struct {
	Patient         *string
	PatientID       *string
	Professional    *string
	Service         *string
	Date            *time.Time
	DurationMinutes *int
	Status          *string
	Notes           *string
	UpdatedAt       time.Time
}

// Set renders the patch as a $set document.
func (p *AppointmentPatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Patient != nil {
		set["patient"] = *p.Patient
	}
	if p.PatientID != nil {
		set["patientId"] = *p.PatientID
	}
	if p.Professional != nil {
		set["professional"] = *p.Professional
	}
	if p.Service != nil {
		set["service"] = *p.Service
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	if p.DurationMinutes != nil {
		set["durationMinutes"] = *p.DurationMinutes
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	return set
}

// Apply copies the patch onto a.
func (p *AppointmentPatch) Apply(a *Appointment) {
	if p.Patient != nil {
		a.Patient = *p.Patient
	}
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.Professional != nil {
		a.Professional = *p.Professional
	}
	if p.Service != nil {
		a.Service = *p.Service
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.DurationMinutes != nil {
		a.DurationMinutes = *p.DurationMinutes
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	a.UpdatedAt = p.UpdatedAt
}

// AppointmentFilter narrows a list query.
type AppointmentFilter struct {
	Professional string
	Status       string
	PatientID    string
	From         *time.Time
	To           *time.Time
}
