package httpcache

import (
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilienceConfig holds retry and circuit-breaker policies applied around
// calls to the underlying Transport. Both are disabled unless set.
type ResilienceConfig struct {
	RetryPolicy    retrypolicy.RetryPolicy[*Response]
	CircuitBreaker circuitbreaker.CircuitBreaker[*Response]
}

// RetryPolicyBuilder returns a builder pre-configured to retry on transport
// errors and 5xx responses, up to three retries with exponential backoff.
func RetryPolicyBuilder() retrypolicy.Builder[*Response] {
	return retrypolicy.NewBuilder[*Response]().
		HandleIf(func(r *Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.Status >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a builder pre-configured to open on
// transport errors and 5xx responses.
func CircuitBreakerBuilder() circuitbreaker.Builder[*Response] {
	return circuitbreaker.NewBuilder[*Response]().
		HandleIf(func(r *Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.Status >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// executeWithResilience wraps fn with the configured retry/circuit-breaker
// policies, or calls it directly if none are configured.
func executeWithResilience(resilience *ResilienceConfig, fn func() (*Response, error)) (*Response, error) {
	if resilience == nil {
		return fn()
	}

	var policies []failsafe.Policy[*Response]
	if resilience.RetryPolicy != nil {
		policies = append(policies, resilience.RetryPolicy)
	}
	if resilience.CircuitBreaker != nil {
		policies = append(policies, resilience.CircuitBreaker)
	}
	if len(policies) == 0 {
		return fn()
	}
	return failsafe.With(policies...).Get(fn)
}
