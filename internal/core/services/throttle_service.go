package services

import (
	"context"
	"fmt"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
)

// ThrottleService implementa a lógica central de decisão de throttling sobre
// um backend token-bucket injetado.
type ThrottleService struct {
	backend ports.Backend
}

// NewThrottleService cria uma nova instância do serviço.
func NewThrottleService(backend ports.Backend) (*ThrottleService, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	return &ThrottleService{backend: backend}, nil
}

var _ ports.Throttler = (*ThrottleService)(nil)

// Check executa exatamente uma tentativa de check-and-increment para a chave
// e normaliza o resultado em uma Decision.
//
// Em caso de negação, uma inspeção secundária com a mesma tupla
// (key, scale, limit) recupera o tempo até o próximo bucket para orientar o
// retry do cliente. Falhas do backend viram BackendFailure: a política de
// fail-open/fail-closed é do chamador, nunca deste serviço.
func (s *ThrottleService) Check(ctx context.Context, key string, params domain.ThrottleParams) domain.Decision {
	if err := params.Validate(); err != nil {
		return domain.Decision{Outcome: domain.BackendFailure, Err: err}
	}

	res, err := s.backend.CheckAndIncrement(ctx, key, params.Scale, params.Limit, params.Increment)
	if err != nil {
		return domain.Decision{Outcome: domain.BackendFailure, Err: err}
	}
	if res.Allowed {
		return domain.Decision{Outcome: domain.Allowed, CurrentCount: res.Count}
	}

	info, err := s.backend.Inspect(ctx, key, params.Scale, params.Limit)
	if err != nil {
		// A negação já aconteceu; sem a inspeção, o pior caso é esperar a
		// janela inteira.
		return domain.Decision{Outcome: domain.Denied, CurrentCount: res.Count, RetryIn: params.Scale}
	}

	return domain.Decision{Outcome: domain.Denied, CurrentCount: res.Count, RetryIn: info.ToNextBucket}
}
