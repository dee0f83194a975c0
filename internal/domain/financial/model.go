package financial

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	BillPending = "Pending"
	BillPaid    = "Paid"
)

var validBillStatuses = map[string]bool{
	BillPending: true,
	BillPaid:    true,
}

// Income is money received by the clinic.
type Income struct {
	ID            string    `bson:"_id" json:"id"`
	TenantPath    string    `bson:"tenantPath" json:"tenantPath"`
	Description   string    `bson:"description" json:"description"`
	Amount        float64   `bson:"amount" json:"amount"`
	Date          time.Time `bson:"date" json:"date"`
	Category      string    `bson:"category,omitempty" json:"category,omitempty"`
	PaymentMethod string    `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Patient       string    `bson:"patient,omitempty" json:"patient,omitempty"`
	AppointmentID string    `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (i *Income) SetTenantPath(tenant string) { i.TenantPath = tenant }

// Bill is an expense owed or paid by the clinic. PaidAt is set the first time
// the bill is marked Paid and cleared when it returns to Pending.
type Bill struct {
	ID          string     `bson:"_id" json:"id"`
	TenantPath  string     `bson:"tenantPath" json:"tenantPath"`
	Description string     `bson:"description" json:"description"`
	Amount      float64    `bson:"amount" json:"amount"`
	DueDate     time.Time  `bson:"dueDate" json:"dueDate"`
	Status      string     `bson:"status" json:"status"`
	Category    string     `bson:"category,omitempty" json:"category,omitempty"`
	Supplier    string     `bson:"supplier,omitempty" json:"supplier,omitempty"`
	PaidAt      *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (b *Bill) SetTenantPath(tenant string) { b.TenantPath = tenant }

type IncomeInput struct {
	ID            string   `json:"id"`
	Description   *string  `json:"description"`
	Amount        *float64 `json:"amount"`
	Date          *string  `json:"date"`
	Category      *string  `json:"category"`
	PaymentMethod *string  `json:"paymentMethod"`
	Patient       *string  `json:"patient"`
	AppointmentID *string  `json:"appointmentId"`
}

// IncomePatch holds the validated fields of an income update.
type IncomePatch struct {
	Description   *string
	Amount        *float64
	Date          *time.Time
	Category      *string
	PaymentMethod *string
	Patient       *string
	AppointmentID *string
	UpdatedAt     time.Time
}

func (p *IncomePatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	putString(set, "description", p.Description)
	putString(set, "category", p.Category)
	putString(set, "paymentMethod", p.PaymentMethod)
	putString(set, "patient", p.Patient)
	putString(set, "appointmentId", p.AppointmentID)
	if p.Amount != nil {
		set["amount"] = *p.Amount
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	return set
}

func (p *IncomePatch) Apply(i *Income) {
	copyString(&i.Description, p.Description)
	copyString(&i.Category, p.Category)
	copyString(&i.PaymentMethod, p.PaymentMethod)
	copyString(&i.Patient, p.Patient)
	copyString(&i.AppointmentID, p.AppointmentID)
	if p.Amount != nil {
		i.Amount = *p.Amount
	}
	if p.Date != nil {
		i.Date = *p.Date
	}
	i.UpdatedAt = p.UpdatedAt
}

type BillInput struct {
	ID          string   `json:"id"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	DueDate     *string  `json:"dueDate"`
	Status      *string  `json:"status"`
	Category    *string  `json:"category"`
	Supplier    *string  `json:"supplier"`
}

// BillPatch holds the validated fields of a bill update.
type BillPatch struct {
	Description *string
	Amount      *float64
	DueDate     *time.Time
	Status      *string
	Category    *string
	Supplier    *string
	UpdatedAt   time.Time
}

// Set renders the plain fields of the patch. Status and paidAt are handled
// by the repository because paidAt depends on the stored value.
func (p *BillPatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	putString(set, "description", p.Description)
	putString(set, "category", p.Category)
	putString(set, "supplier", p.Supplier)
	putString(set, "status", p.Status)
	if p.Amount != nil {
		set["amount"] = *p.Amount
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	return set
}

// Apply copies the patch onto b, keeping an existing paidAt when the bill is
// already paid.
func (p *BillPatch) Apply(b *Bill) {
	copyString(&b.Description, p.Description)
	copyString(&b.Category, p.Category)
	copyString(&b.Supplier, p.Supplier)
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.Status != nil {
		b.Status = *p.Status
		switch {
		case b.Status == BillPending:
			b.PaidAt = nil
		case b.PaidAt == nil:
			at := p.UpdatedAt
			b.PaidAt = &at
		}
	}
	b.UpdatedAt = p.UpdatedAt
}

// DateRange bounds a list or summary. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type BillFilter struct {
	DateRange
	Status string
}

// Summary totals the clinic's cash flow over a period.
type Summary struct {
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	Income       float64    `json:"income"`
	ExpensesPaid float64    `json:"expensesPaid"`
	Pending      float64    `json:"pending"`
	Balance      float64    `json:"balance"`
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
