package timeparam

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-10T14:30", time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)},
		{"2024-05-10T14:30:00Z", time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)},
		{"2024-05-10T14:30:00-03:00", time.Date(2024, 5, 10, 17, 30, 0, 0, time.UTC)},
		{"2024-05-10", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{" 2024-05-10 ", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "10/05/2024"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestQuery(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?from=2024-01-01&bad=x", nil), httptest.NewRecorder())

	got, err := Query(c, "from")
	if err != nil || got == nil || got.Year() != 2024 {
		t.Errorf("unexpected from: %v %v", got, err)
	}
	if got, err := Query(c, "to"); got != nil || err != nil {
		t.Errorf("expected nil for missing param, got %v %v", got, err)
	}
	if _, err := Query(c, "bad"); err == nil {
		t.Error("expected error for invalid param")
	}
}

func TestEndOfDay(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if got := EndOfDay("2024-05-10", day); got.Day() != 10 || got.Hour() != 23 {
		t.Errorf("expected end of day, got %s", got)
	}
	exact := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	if got := EndOfDay("2024-05-10T09:00", exact); !got.Equal(exact) {
		t.Errorf("expected date-time bound untouched, got %s", got)
	}
}
