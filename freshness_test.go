package httpcache

import (
	"testing"
	"time"
)

func dateHeader(t time.Time) Headers {
	return Headers{{Name: "Date", Value: t.Format(time.RFC1123)}}
}

func TestGetFreshnessFreshWithinMaxAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-10 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60"})

	if got := getFreshness(resp, Headers{}, clock, false); got != freshnessFresh {
		t.Fatalf("got %v, want fresh", got)
	}
}

func TestGetFreshnessStaleBeyondMaxAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-120 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60"})

	if got := getFreshness(resp, Headers{}, clock, false); got != freshnessStale {
		t.Fatalf("got %v, want stale", got)
	}
}

func TestGetFreshnessRequestNoCacheForcesTransparent(t *testing.T) {
	now := time.Now()
	clock := fixedClock{t: now}
	resp := append(dateHeader(now), Header{Name: "Cache-Control", Value: "max-age=3600"})
	req := Headers{{Name: "Cache-Control", Value: "no-cache"}}

	if got := getFreshness(resp, req, clock, false); got != freshnessTransparent {
		t.Fatalf("got %v, want transparent", got)
	}
}

func TestGetFreshnessResponseNoCacheForcesStale(t *testing.T) {
	now := time.Now()
	clock := fixedClock{t: now}
	resp := append(dateHeader(now), Header{Name: "Cache-Control", Value: "no-cache, max-age=3600"})

	if got := getFreshness(resp, Headers{}, clock, false); got != freshnessStale {
		t.Fatalf("got %v, want stale", got)
	}
}

func TestGetFreshnessOnlyIfCachedForcesFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-1000 * time.Second)
	resp := dateHeader(date)
	req := Headers{{Name: "Cache-Control", Value: "only-if-cached"}}

	if got := getFreshness(resp, req, clock, false); got != freshnessFresh {
		t.Fatalf("got %v, want fresh under only-if-cached", got)
	}
}

func TestGetFreshnessMaxStaleToleratesExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 1, 30, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-90 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60"})
	req := Headers{{Name: "Cache-Control", Value: "max-stale=60"}}

	if got := getFreshness(resp, req, clock, false); got != freshnessFresh {
		t.Fatalf("got %v, want fresh under max-stale tolerance", got)
	}
}

func TestGetFreshnessMustRevalidateIgnoresMaxStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 1, 30, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-90 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60, must-revalidate"})
	req := Headers{{Name: "Cache-Control", Value: "max-stale=60"}}

	if got := getFreshness(resp, req, clock, false); got == freshnessFresh {
		t.Fatal("must-revalidate must not honor client max-stale tolerance")
	}
}

func TestGetFreshnessStaleWhileRevalidateWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 1, 10, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-70 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60, stale-while-revalidate=30"})

	if got := getFreshness(resp, Headers{}, clock, false); got != freshnessStaleWhileRevalidate {
		t.Fatalf("got %v, want stale-while-revalidate", got)
	}
}

func TestGetFreshnessHeuristicFromLastModified(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-30 * time.Second)
	lastModified := now.Add(-600 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Last-Modified", Value: lastModified.Format(time.RFC1123)})

	if got := getFreshness(resp, Headers{}, clock, true); got != freshnessFresh {
		t.Fatalf("got %v, want fresh under heuristic freshness (10%% of 600s = 60s > 30s age)", got)
	}
}

func TestGetFreshnessHeuristicDisabledByDefault(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-30 * time.Second)
	lastModified := now.Add(-600 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Last-Modified", Value: lastModified.Format(time.RFC1123)})

	if got := getFreshness(resp, Headers{}, clock, false); got != freshnessStale {
		t.Fatalf("got %v, want stale when allow_heuristics is false", got)
	}
}

func TestIsActuallyStaleIgnoresMaxStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 1, 30, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-90 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "max-age=60"})

	if !isActuallyStale(resp, clock, false) {
		t.Fatal("response past its real lifetime must be reported as actually stale")
	}
}

func TestCanStaleOnErrorBareDirective(t *testing.T) {
	now := time.Now()
	clock := fixedClock{t: now}
	resp := append(dateHeader(now), Header{Name: "Cache-Control", Value: "stale-if-error"})

	if !canStaleOnError(resp, Headers{}, clock) {
		t.Fatal("bare stale-if-error should accept any staleness")
	}
}

func TestCanStaleOnErrorBudgetExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	date := now.Add(-90 * time.Second)
	resp := append(dateHeader(date), Header{Name: "Cache-Control", Value: "stale-if-error=60"})

	if canStaleOnError(resp, Headers{}, clock) {
		t.Fatal("expired stale-if-error budget must not permit stale serving")
	}
}

func TestCanStaleOnErrorRequestOverride(t *testing.T) {
	now := time.Now()
	clock := fixedClock{t: now}
	resp := dateHeader(now)
	req := Headers{{Name: "Cache-Control", Value: "stale-if-error"}}

	if !canStaleOnError(resp, req, clock) {
		t.Fatal("request-side stale-if-error should also grant the fallback")
	}
}
