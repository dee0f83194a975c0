package patient

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type Patient struct {
	ID         string     `bson:"_id" json:"id"`
	TenantPath string     `bson:"tenantPath" json:"tenantPath"`
	Name       string     `bson:"name" json:"name"`
	Email      string     `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string     `bson:"phone,omitempty" json:"phone,omitempty"`
	BirthDate  *time.Time `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Document   string     `bson:"document,omitempty" json:"document,omitempty"`
	Address    string     `bson:"address,omitempty" json:"address,omitempty"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (p *Patient) SetTenantPath(tenant string) { p.TenantPath = tenant }

// PatientInput is the body of create and update; absent fields are nil.
type PatientInput struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birthDate"`
	Document  *string `json:"document"`
	Address   *string `json:"address"`
	Notes     *string `json:"notes"`
}

// PatientPatch holds validated update fields.
type PatientPatch struct {
	Name      *string
	Email     *string
	Phone     *string
	BirthDate *time.Time
	Document  *string
	Address   *string
	Notes     *string
	UpdatedAt time.Time
}

func (p *PatientPatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	putString(set, "name", p.Name)
	putString(set, "email", p.Email)
	putString(set, "phone", p.Phone)
	putString(set, "document", p.Document)
	putString(set, "address", p.Address)
	putString(set, "notes", p.Notes)
	if p.BirthDate != nil {
		set["birthDate"] = *p.BirthDate
	}
	return set
}

func (p *PatientPatch) Apply(pt *Patient) {
	copyString(&pt.Name, p.Name)
	copyString(&pt.Email, p.Email)
	copyString(&pt.Phone, p.Phone)
	copyString(&pt.Document, p.Document)
	copyString(&pt.Address, p.Address)
	copyString(&pt.Notes, p.Notes)
	if p.BirthDate != nil {
		d := *p.BirthDate
		pt.BirthDate = &d
	}
	pt.UpdatedAt = p.UpdatedAt
}

// Document is the metadata of a file attached to a patient. The bytes live
// in external storage reachable through URL.
type Document struct {
	ID         string    `bson:"_id" json:"id"`
	TenantPath string    `bson:"tenantPath" json:"tenantPath"`
	PatientID  string    `bson:"patientId" json:"patientId"`
	Name       string    `bson:"name" json:"name"`
	Type       string    `bson:"type,omitempty" json:"type,omitempty"`
	URL        string    `bson:"url" json:"url"`
	Size       int64     `bson:"size,omitempty" json:"size,omitempty"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

func (d *Document) SetTenantPath(tenant string) { d.TenantPath = tenant }

type DocumentInput struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
}

func putString(set bson.M, key string, v *string) {
	if v != nil {
		set[key] = *v
	}
}

func copyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
