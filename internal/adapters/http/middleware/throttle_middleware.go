// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/keys"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
)

// ErrorPolicy define o comportamento quando o backend de contagem falha.
type ErrorPolicy int

const (
	// FailClosed rejeita a requisição com 503 quando o backend falha.
	FailClosed ErrorPolicy = iota
	// FailOpen deixa a requisição passar quando o backend falha.
	FailOpen
)

// Options é a configuração imutável do filtro, resolvida uma única vez na
// montagem das rotas e compartilhada somente-leitura entre requisições.
type Options struct {
	// Strategy deriva a chave de bucket do contexto da requisição. Obrigatória.
	Strategy keys.Strategy
	// Scale é a janela do bucket. Obrigatória.
	Scale time.Duration
	// Limit é a capacidade do bucket na janela. Obrigatória (zero é válido e
	// nega tudo; a ausência é detectada por Scale).
	Limit int64
	// Increment é o custo por requisição. Padrão 1.
	Increment int64
	// ExecCondition decide se o filtro roda para a requisição. Nil = sempre.
	// Quando retorna false nada acontece: sem derivação de chave, sem
	// chamada ao backend, sem incremento.
	ExecCondition func(domain.RequestContext) bool
	// Verbosity controla a resposta de negação. Padrão normal.
	Verbosity domain.Verbosity
	// OnBackendError escolhe fail-open ou fail-closed. Padrão fail-closed.
	OnBackendError ErrorPolicy
	// ErrorResponder, quando definido, substitui a formatação padrão pela
	// resposta customizada: recebe a Decision e responde tanto negações
	// (no lugar da tabela de verbosidade) quanto falhas de backend (no lugar
	// de OnBackendError).
	ErrorResponder func(w http.ResponseWriter, r *http.Request, dec domain.Decision)
}

// NewThrottleMiddleware valida a configuração e compõe o filtro. Configuração
// inválida impede a inicialização: nada é servido com filtro mal montado.
func NewThrottleMiddleware(throttler ports.Throttler, opts Options) (func(http.Handler) http.Handler, error) {
	if throttler == nil {
		return nil, fmt.Errorf("throttler is required")
	}
	if opts.Strategy == nil {
		return nil, fmt.Errorf("key strategy is required")
	}
	if opts.Increment == 0 {
		opts.Increment = 1
	}
	base := domain.ThrottleParams{Scale: opts.Scale, Limit: opts.Limit, Increment: opts.Increment}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid throttle params: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := requestContext(r)

			if opts.ExecCondition != nil && !opts.ExecCondition(rc) {
				next.ServeHTTP(w, r)
				return
			}

			failure := func(dec domain.Decision) {
				if opts.ErrorResponder != nil {
					opts.ErrorResponder(w, r, dec)
					return
				}
				log.Printf("throttle check failed: %v", dec.Err)
				if opts.OnBackendError == FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			}

			res, err := opts.Strategy(rc)
			if err != nil {
				if domain.IsMissingIdentityError(err) {
					// Identidade ausente em estratégia escopada por
					// identidade é erro de uso, não condição por requisição:
					// subir o filtro sobre tráfego não autenticado é
					// misconfiguração a corrigir.
					panic(err)
				}
				failure(domain.Decision{Outcome: domain.BackendFailure, Err: err})
				return
			}

			params := base
			if res.Scale > 0 {
				params.Scale = res.Scale
				params.Limit = res.Limit
			}

			dec := throttler.Check(r.Context(), res.Key, params)
			switch dec.Outcome {
			case domain.Allowed:
				next.ServeHTTP(w, r)
			case domain.Denied:
				if opts.ErrorResponder != nil {
					opts.ErrorResponder(w, r, dec)
					return
				}
				writeThrottled(w, dec, opts.Verbosity)
			case domain.BackendFailure:
				failure(dec)
			}
		})
	}, nil
}

func requestContext(r *http.Request) domain.RequestContext {
	return domain.RequestContext{
		RemoteIP:  extractIP(r),
		Path:      r.URL.Path,
		ClientID:  ClientID(r.Context()),
		SubjectID: SubjectID(r.Context()),
	}
}

func extractIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}
