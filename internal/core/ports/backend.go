// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
)

// CheckResult é o retorno da operação atômica de check-and-increment.
type CheckResult struct {
	Allowed bool
	Count   int64
}

// Backend é o motor de contagem token-bucket. A identidade de um bucket é a
// tupla (key, scale, limit): mudar scale ou limit para a mesma chave endereça
// um bucket logicamente diferente.
//
// CheckAndIncrement deve ser atômico sob chamadores concorrentes usando a
// mesma chave; essa é a única garantia de corretude compartilhada de que o
// filtro depende.
type Backend interface {
	CheckAndIncrement(ctx context.Context, key string, scale time.Duration, limit, increment int64) (CheckResult, error)
	Inspect(ctx context.Context, key string, scale time.Duration, limit int64) (domain.BucketInfo, error)
}
