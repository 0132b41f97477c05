package httpcache

import "time"

// getFreshness classifies a stored response against a new request's
// directives, per the freshness half of Controller.ConstructResponseFromCache.
func getFreshness(respHeaders, reqHeaders Headers, clock Clock, allowHeuristics bool) Freshness {
	respCC := ParseCacheControl(respHeaders)
	reqCC := ParseCacheControl(reqHeaders)

	if result, done := checkCacheControl(respCC, reqCC); done {
		return result
	}

	date, err := Date(respHeaders)
	if err != nil {
		// No Date means no information suggesting staleness: serve it
		// rather than forcing a revalidation the response carries no
		// validator for.
		return freshnessFresh
	}
	currentAge := clock.Now().Sub(date)
	lifetime := calculateLifetime(respCC, respHeaders, date, clock, allowHeuristics)

	var returnFresh bool
	currentAge, lifetime, returnFresh = adjustAgeForRequestControls(respCC, reqCC, currentAge, lifetime)
	if returnFresh {
		return freshnessFresh
	}
	if lifetime > currentAge {
		return freshnessFresh
	}

	if swr, ok := respCC.Int64("stale-while-revalidate"); ok {
		if lifetime+time.Duration(swr)*time.Second > currentAge {
			return freshnessStaleWhileRevalidate
		}
	}

	return freshnessStale
}

func checkCacheControl(respCC, reqCC CacheControl) (Freshness, bool) {
	if reqCC.Has("no-cache") {
		return freshnessTransparent, true
	}
	if respCC.Has("no-cache") {
		return freshnessStale, true
	}
	if reqCC.Has("only-if-cached") {
		return freshnessFresh, true
	}
	return 0, false
}

func calculateLifetime(respCC CacheControl, respHeaders Headers, date time.Time, clock Clock, allowHeuristics bool) time.Duration {
	if maxAge, ok := respCC.Int64("max-age"); ok {
		return time.Duration(maxAge) * time.Second
	}
	if expiresHeader, ok := respHeaders.Get("Expires"); ok && expiresHeader != "" {
		expires, err := time.Parse(time.RFC1123, expiresHeader)
		if err != nil {
			return 0
		}
		return expires.Sub(date)
	}
	if allowHeuristics {
		if lastModifiedHeader, ok := respHeaders.Get("Last-Modified"); ok {
			lastModified, err := time.Parse(time.RFC1123, lastModifiedHeader)
			if err == nil {
				if age := clock.Now().Sub(lastModified); age > 0 {
					return time.Duration(float64(age) * 0.1)
				}
			}
		}
	}
	return 0
}

func adjustAgeForRequestControls(respCC, reqCC CacheControl, currentAge, lifetime time.Duration) (time.Duration, time.Duration, bool) {
	if maxAge, ok := reqCC.Int64("max-age"); ok {
		lifetime = time.Duration(maxAge) * time.Second
	}
	if minFresh, ok := reqCC.Int64("min-fresh"); ok {
		currentAge += time.Duration(minFresh) * time.Second
	}

	if respCC.Has("must-revalidate") {
		return currentAge, lifetime, false
	}

	if maxStale, hasMaxStale := reqCC["max-stale"]; hasMaxStale {
		if maxStale == "" {
			return currentAge, lifetime, true
		}
		if n, ok := reqCC.Int64("max-stale"); ok {
			currentAge -= time.Duration(n) * time.Second
		}
	}

	return currentAge, lifetime, false
}

// isActuallyStale ignores max-stale client tolerance; used to flag
// (CacheResult.Stale) a response served from the fresh branch that is past
// its freshness lifetime.
func isActuallyStale(respHeaders Headers, clock Clock, allowHeuristics bool) bool {
	respCC := ParseCacheControl(respHeaders)
	date, err := Date(respHeaders)
	if err != nil {
		return false
	}
	currentAge := clock.Now().Sub(date)
	lifetime := calculateLifetime(respCC, respHeaders, date, clock, allowHeuristics)

	if swr, ok := respCC.Int64("stale-while-revalidate"); ok {
		if lifetime+time.Duration(swr)*time.Second > currentAge {
			return false
		}
	}
	return lifetime <= currentAge
}

// parseStaleIfError reports the stale-if-error budget, if any: (lifetime,
// acceptAny, found).
func parseStaleIfError(cc CacheControl) (time.Duration, bool, bool) {
	raw, ok := cc["stale-if-error"]
	if !ok {
		return 0, false, false
	}
	if raw == "" {
		return 0, true, true
	}
	n, valid := cc.Int64("stale-if-error")
	if !valid {
		return 0, false, true
	}
	return time.Duration(n) * time.Second, false, true
}

func checkStaleIfErrorLifetime(respHeaders Headers, lifetime time.Duration, clock Clock) bool {
	date, err := Date(respHeaders)
	if err != nil {
		return false
	}
	return lifetime > clock.Now().Sub(date)
}

// canStaleOnError implements RFC 5861's stale-if-error extension.
func canStaleOnError(respHeaders, reqHeaders Headers, clock Clock) bool {
	respCC := ParseCacheControl(respHeaders)
	reqCC := ParseCacheControl(reqHeaders)

	lifetime := time.Duration(-1)

	if respLifetime, acceptAny, found := parseStaleIfError(respCC); found {
		if acceptAny {
			return true
		}
		lifetime = respLifetime
	}
	if reqLifetime, acceptAny, found := parseStaleIfError(reqCC); found {
		if acceptAny {
			return true
		}
		lifetime = reqLifetime
	}

	if lifetime >= 0 {
		return checkStaleIfErrorLifetime(respHeaders, lifetime, clock)
	}
	return false
}
