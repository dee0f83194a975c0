package scheduling

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAppointmentPatch_SetMatchesApply(t *testing.T) {
	date := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	dur := 30
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	p := &AppointmentPatch{
		Patient:         strPtr("Ana"),
		Date:            &date,
		DurationMinutes: &dur,
		Status:          strPtr(StatusConfirmed),
		UpdatedAt:       now,
	}

	set := p.Set()
	want := bson.M{"patient": "Ana", "date": date, "durationMinutes": 30, "status": StatusConfirmed, "updatedAt": now}
	if len(set) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), set)
	}
	for k, v := range want {
		if set[k] != v {
			t.Errorf("set[%s] = %v, want %v", k, set[k], v)
		}
	}

	a := &Appointment{Patient: "Old", Professional: "doc1"}
	p.Apply(a)
	if a.Patient != "Ana" || a.Professional != "doc1" || a.DurationMinutes != 30 || !a.UpdatedAt.Equal(now) {
		t.Errorf("unexpected apply result %+v", a)
	}
}

func TestProvisioningPipeline(t *testing.T) {
	set := bson.M{"notes": "$where", "tenantPath": "other", "updatedAt": time.Unix(0, 0)}
	pipeline := provisioningPipeline(set, Meeting{ID: "m1", URL: "https://meet.jit.si/acme-m1"})
	if len(pipeline) != 1 {
		t.Fatalf("expected one stage, got %d", len(pipeline))
	}
	stage := pipeline[0]["$set"].(bson.M)
	if _, ok := stage["tenantPath"]; ok {
		t.Error("tenantPath must never be updated")
	}
	if lit, ok := stage["notes"].(bson.M); !ok || lit["$literal"] != "$where" {
		t.Errorf("expected notes wrapped in $literal, got %v", stage["notes"])
	}
	if _, ok := stage["meetingUrl"].(bson.M)["$cond"]; !ok {
		t.Error("expected conditional meetingUrl")
	}
}

func TestAppointmentQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := appointmentQuery(AppointmentFilter{Professional: "doc1", Status: StatusPending, From: &from})
	if q["professional"] != "doc1" || q["status"] != StatusPending {
		t.Errorf("unexpected query %v", q)
	}
	r, ok := q["date"].(bson.M)
	if !ok || r["$gte"] != from {
		t.Errorf("expected date range, got %v", q["date"])
	}
	if _, ok := r["$lte"]; ok {
		t.Error("unexpected upper bound")
	}
	if len(appointmentQuery(AppointmentFilter{})) != 0 {
		t.Error("expected empty query for empty filter")
	}
}
