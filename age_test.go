package httpcache

import (
	"testing"
	"time"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestDateMissingHeader(t *testing.T) {
	if _, err := Date(Headers{}); err != ErrNoDateHeader {
		t.Fatalf("expected ErrNoDateHeader, got %v", err)
	}
}

func TestDateParsesRFC1123(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := Headers{{Name: "Date", Value: now.Format(time.RFC1123)}}
	got, err := Date(h)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Fatalf("got %v, want %v", got, now)
	}
}

func TestParseAgeHeaderValid(t *testing.T) {
	h := Headers{{Name: "Age", Value: "42"}}
	age, ok := parseAgeHeader(h, SystemClock)
	if !ok || age != 42*time.Second {
		t.Fatalf("got %v, %v", age, ok)
	}
}

func TestParseAgeHeaderInvalidIgnored(t *testing.T) {
	h := Headers{{Name: "Age", Value: "-5"}}
	if _, ok := parseAgeHeader(h, SystemClock); ok {
		t.Fatal("negative Age must be ignored")
	}
	h = Headers{{Name: "Age", Value: "not-a-number"}}
	if _, ok := parseAgeHeader(h, SystemClock); ok {
		t.Fatal("non-numeric Age must be ignored")
	}
}

func TestCalculateAgeWithoutExtensionHeaders(t *testing.T) {
	clock := fixedClock{t: time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)}
	date := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := Headers{
		{Name: "Date", Value: date.Format(time.RFC1123)},
		{Name: "Age", Value: "5"},
	}
	age, err := calculateAge(h, clock)
	if err != nil {
		t.Fatal(err)
	}
	want := 10*time.Second + 5*time.Second
	if age != want {
		t.Fatalf("got %v, want %v", age, want)
	}
}

func TestCalculateAgeUsesRequestResponseTiming(t *testing.T) {
	date := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	requestTime := date
	responseTime := date.Add(1 * time.Second)
	now := responseTime.Add(4 * time.Second)
	clock := fixedClock{t: now}

	h := Headers{
		{Name: "Date", Value: date.Format(time.RFC1123)},
		{Name: headerXRequestTime, Value: requestTime.Format(time.RFC3339)},
		{Name: headerXResponseTime, Value: responseTime.Format(time.RFC3339)},
	}
	age, err := calculateAge(h, clock)
	if err != nil {
		t.Fatal(err)
	}
	// apparent_age = response_time - date = 1s
	// response_delay = response_time - request_time = 1s
	// corrected_initial_age = max(apparent_age, age_value + response_delay) = max(1s, 1s) = 1s
	// resident_time = now - response_time = 4s
	want := 1*time.Second + 4*time.Second
	if age != want {
		t.Fatalf("got %v, want %v", age, want)
	}
}

func TestFormatAgeNeverNegative(t *testing.T) {
	if got := formatAge(-5 * time.Second); got != "0" {
		t.Fatalf("expected clamped to 0, got %q", got)
	}
	if got := formatAge(90 * time.Second); got != "90" {
		t.Fatalf("got %q", got)
	}
}
