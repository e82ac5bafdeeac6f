// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
)

type Throttler interface {
	Check(ctx context.Context, key string, params domain.ThrottleParams) domain.Decision
}
