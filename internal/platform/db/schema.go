package db

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Model names understood by Conn.Model.
const (
	ModelUser          = "User"
	ModelIncome        = "Income"
	ModelBill          = "Bill"
	ModelAppointment   = "Appointment"
	ModelProcedure     = "Procedure"
	ModelPatient       = "Patient"
	ModelDocument      = "Document"
	ModelStock         = "Stock"
	ModelStockMovement = "StockMovement"
	ModelTenant        = "Tenant"
)

// DefaultModels are registered on every tenant connection as soon as it is
// opened. The remaining schemas are bound on first use.
var DefaultModels = []string{ModelUser, ModelIncome, ModelBill}

// Schema describes where an entity lives and how its collection is indexed.
// It is independent of any connection.
type Schema struct {
	Name       string
	Collection string
	Indexes    []mongo.IndexModel
}

// tenantIndex builds an index whose leading key is tenantPath, so every
// tenant-scoped query can use it.
func tenantIndex(name string, keys ...bson.E) mongo.IndexModel {
	d := bson.D{{Key: "tenantPath", Value: 1}}
	d = append(d, keys...)
	return mongo.IndexModel{Keys: d, Options: options.Index().SetName(name)}
}

// Collection names follow the pluralised lower-case names the existing
// clinic databases already use.
var schemas = map[string]Schema{
	ModelUser: {
		Name:       ModelUser,
		Collection: "users",
		Indexes: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "tenantPath", Value: 1}, {Key: "email", Value: 1}},
				Options: options.Index().SetName("UniqueTenantEmail").SetUnique(true),
			},
		},
	},
	ModelIncome: {
		Name:       ModelIncome,
		Collection: "incomes",
		Indexes:    []mongo.IndexModel{tenantIndex("IncomeDate", bson.E{Key: "date", Value: -1})},
	},
	ModelBill: {
		Name:       ModelBill,
		Collection: "bills",
		Indexes: []mongo.IndexModel{
			tenantIndex("BillDueDate", bson.E{Key: "dueDate", Value: -1}),
			tenantIndex("BillStatus", bson.E{Key: "status", Value: 1}),
		},
	},
	ModelAppointment: {
		Name:       ModelAppointment,
		Collection: "appointments",
		Indexes: []mongo.IndexModel{
			tenantIndex("AppointmentDate", bson.E{Key: "date", Value: -1}),
			tenantIndex("AppointmentProfessional", bson.E{Key: "professional", Value: 1}, bson.E{Key: "date", Value: -1}),
			tenantIndex("AppointmentPatient", bson.E{Key: "patientId", Value: 1}),
		},
	},
	ModelProcedure: {
		Name:       ModelProcedure,
		Collection: "procedures",
		Indexes:    []mongo.IndexModel{tenantIndex("ProcedureName", bson.E{Key: "name", Value: 1})},
	},
	ModelPatient: {
		Name:       ModelPatient,
		Collection: "patients",
		Indexes: []mongo.IndexModel{
			tenantIndex("PatientName", bson.E{Key: "name", Value: 1}),
			tenantIndex("PatientEmail", bson.E{Key: "email", Value: 1}),
		},
	},
	ModelDocument: {
		Name:       ModelDocument,
		Collection: "documents",
		Indexes:    []mongo.IndexModel{tenantIndex("DocumentPatient", bson.E{Key: "patientId", Value: 1}, bson.E{Key: "uploadedAt", Value: -1})},
	},
	ModelStock: {
		Name:       ModelStock,
		Collection: "stocks",
		Indexes:    []mongo.IndexModel{tenantIndex("StockName", bson.E{Key: "name", Value: 1})},
	},
	ModelStockMovement: {
		Name:       ModelStockMovement,
		Collection: "stockmovements",
		Indexes:    []mongo.IndexModel{tenantIndex("StockMovementItem", bson.E{Key: "itemId", Value: 1}, bson.E{Key: "date", Value: -1})},
	},
	ModelTenant: {
		Name:       ModelTenant,
		Collection: "tenants",
	},
}

// LookupSchema returns the schema registered under name.
func LookupSchema(name string) (Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// TenantSchemaNames lists every schema that lives in a tenant database.
func TenantSchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		if name == ModelTenant {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
