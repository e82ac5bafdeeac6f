// Package domain concentra entidades e estruturas centrais do throttler.
package domain

import (
	"fmt"
	"time"
)

// RequestContext é a visão imutável da requisição usada para derivar a chave
// de throttling. ClientID e SubjectID ficam vazios quando a requisição não
// foi autenticada pela camada anterior do pipeline.
type RequestContext struct {
	RemoteIP  string
	Path      string
	ClientID  string
	SubjectID string
}

// ThrottleParams define a janela, a capacidade e o custo por requisição de um
// bucket.
type ThrottleParams struct {
	Scale     time.Duration
	Limit     int64
	Increment int64
}

// Validate garante os limites exigidos para qualquer verificação.
func (p ThrottleParams) Validate() error {
	// Scale é definido em milissegundos; frações de ms não endereçam janela
	// alguma.
	if p.Scale < time.Millisecond {
		return fmt.Errorf("scale must be at least one millisecond, got %s", p.Scale)
	}
	if p.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", p.Limit)
	}
	if p.Increment < 1 {
		return fmt.Errorf("increment must be >= 1, got %d", p.Increment)
	}
	return nil
}

// KeyResult é o resultado de uma estratégia de derivação de chave.
//
// Scale > 0 indica que a estratégia sobrescreve Scale e Limit para esta
// requisição; caso contrário valem os parâmetros configurados no filtro.
type KeyResult struct {
	Key   string
	Scale time.Duration
	Limit int64
}

// Outcome identifica o resultado de uma verificação de throttling.
type Outcome int

const (
	Allowed Outcome = iota
	Denied
	BackendFailure
)

// Decision é produzida uma vez por requisição e nunca persistida.
//
// CurrentCount só é significativo para Allowed e Denied. RetryIn é o tempo
// até o próximo bucket quando Denied. Err carrega a causa quando
// BackendFailure.
type Decision struct {
	Outcome      Outcome
	CurrentCount int64
	RetryIn      time.Duration
	Err          error
}

// BucketInfo descreve o estado corrente de um bucket, conforme retornado pela
// operação de inspeção do backend.
type BucketInfo struct {
	Count          int64
	CountRemaining int64
	ToNextBucket   time.Duration
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
