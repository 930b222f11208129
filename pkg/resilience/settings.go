package resilience

import "time"

const (
	defaultBreakerInterval         = time.Minute
	defaultBreakerOpenTimeout      = 30 * time.Second
	defaultBreakerFailureThreshold = 5
	defaultBreakerSuccessThreshold = 1
)

// BuildSettings turns breaker tuning knobs into Settings. Zero or negative
// values take the defaults: a 1m counting window, 30s open before probing,
// five consecutive failures to trip and one success to close.
func BuildSettings(name string, interval, openTimeout time.Duration, failureThreshold, successThreshold int) Settings {
	if interval <= 0 {
		interval = defaultBreakerInterval
	}
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenTimeout
	}
	if failureThreshold <= 0 {
		failureThreshold = defaultBreakerFailureThreshold
	}
	if successThreshold <= 0 {
		successThreshold = defaultBreakerSuccessThreshold
	}

	return Settings{
		Name:             name,
		Interval:         interval,
		Timeout:          openTimeout,
		FailureThreshold: uint32(failureThreshold),
		SuccessThreshold: uint32(successThreshold),
	}
}
