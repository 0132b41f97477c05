package httpcache

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNoDateHeader indicates the headers contained no Date header.
var ErrNoDateHeader = errors.New("httpcache: no Date header")

// Date parses the Date header.
func Date(headers Headers) (time.Time, error) {
	raw, ok := headers.Get("Date")
	if !ok || raw == "" {
		return time.Time{}, ErrNoDateHeader
	}
	return time.Parse(time.RFC1123, raw)
}

// parseAgeHeader parses the Age header per RFC 9111 §5.1: first value wins,
// must be a non-negative integer number of seconds.
func parseAgeHeader(headers Headers, clock Clock) (time.Duration, bool) {
	values := headers.Values("Age")
	if len(values) == 0 {
		return 0, false
	}
	raw := strings.TrimSpace(values[0])
	if len(values) > 1 {
		GetLogger().Debug("multiple Age headers, using first", "count", len(values), "first", raw)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		GetLogger().Debug("invalid Age header, ignoring", "value", raw)
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// calculateAge implements RFC 9111 §4.2.3's full age algorithm when the
// response carries X-Httpcache-* timestamp headers (CacheWrapper does not
// set them); otherwise the age is now minus Date plus any Age header.
func calculateAge(respHeaders Headers, clock Clock) (time.Duration, error) {
	dateValue, err := Date(respHeaders)
	if err != nil {
		return 0, err
	}

	responseTimeStr, ok := respHeaders.Get(headerXResponseTime)
	if !ok {
		responseTimeStr, ok = respHeaders.Get(headerXCachedTime)
	}
	if !ok {
		age := clock.Now().Sub(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders, clock); valid {
			age += ageValue
		}
		return age, nil
	}

	responseTime, err := time.Parse(time.RFC3339, responseTimeStr)
	if err != nil {
		age := clock.Now().Sub(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders, clock); valid {
			age += ageValue
		}
		return age, nil
	}

	apparentAge := time.Duration(0)
	if responseTime.After(dateValue) {
		apparentAge = responseTime.Sub(dateValue)
	}

	ageValue, _ := parseAgeHeader(respHeaders, clock)

	responseDelay := time.Duration(0)
	if requestTimeStr, ok := respHeaders.Get(headerXRequestTime); ok {
		if requestTime, err := time.Parse(time.RFC3339, requestTimeStr); err == nil && responseTime.After(requestTime) {
			responseDelay = responseTime.Sub(requestTime)
		}
	}

	correctedAgeValue := ageValue + responseDelay
	correctedInitialAge := apparentAge
	if correctedAgeValue > correctedInitialAge {
		correctedInitialAge = correctedAgeValue
	}

	residentTime := clock.Now().Sub(responseTime)
	return correctedInitialAge + residentTime, nil
}

// formatAge formats a duration as an Age header value.
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
