package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
)

const throttledMessage = "you have reached the maximum number of requests or actions allowed within a certain time frame"

// writeThrottled materializa uma decisão de negação conforme a verbosidade
// configurada. Depois dela nenhum handler posterior roda.
//
//	debug:   429, Retry-After, corpo descritivo
//	normal:  429, Retry-After, corpo vazio
//	minimal: 403, sem headers, corpo vazio
func writeThrottled(w http.ResponseWriter, dec domain.Decision, v domain.Verbosity) {
	switch v {
	case domain.VerbosityMinimal:
		w.WriteHeader(http.StatusForbidden)
	case domain.VerbosityDebug:
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(dec.RetryIn), 10))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(throttledMessage))
	default:
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(dec.RetryIn), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}
}

// retryAfterSeconds arredonda sempre para cima: nunca indica um instante de
// retry que já passou.
func retryAfterSeconds(toNext time.Duration) int64 {
	return toNext.Milliseconds()/1000 + 1
}
