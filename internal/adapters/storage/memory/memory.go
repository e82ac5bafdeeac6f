// Package memory disponibiliza o backend de contagem em processo, usado como padrão.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
)

type bucket struct {
	window    int64 // índice da janela: unixNano / scaleNano
	count     int64
	createdAt time.Time
	updatedAt time.Time
}

// Backend é um contador de janelas fixas alinhadas ao epoch, local ao
// processo. Seguro para uso concorrente; o estado não é compartilhado entre
// réplicas.
type Backend struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	now          func() time.Time
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

var _ ports.Backend = (*Backend)(nil)

type Option func(*Backend)

// WithIdleTTL define por quanto tempo um bucket sem atividade é mantido.
func WithIdleTTL(d time.Duration) Option {
	return func(b *Backend) { b.idleTTL = d }
}

// WithCleanupEvery define o intervalo do janitor de buckets inativos.
func WithCleanupEvery(d time.Duration) Option {
	return func(b *Backend) { b.cleanupEvery = d }
}

// New cria um backend em memória com estado vazio.
func New(opts ...Option) *Backend {
	b := &Backend{
		buckets:      make(map[string]*bucket),
		now:          time.Now,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CheckAndIncrement incrementa o bucket identificado pela tupla
// (key, scale, limit) e permite a requisição enquanto a contagem da janela
// corrente não exceder limit.
func (b *Backend) CheckAndIncrement(_ context.Context, key string, scale time.Duration, limit, increment int64) (ports.CheckResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	win := now.UnixNano() / int64(scale)
	k := bucketKey(key, scale, limit)

	bk, ok := b.buckets[k]
	if !ok || bk.window != win {
		bk = &bucket{window: win, createdAt: now}
		b.buckets[k] = bk
	}

	bk.count += increment
	bk.updatedAt = now

	return ports.CheckResult{Allowed: bk.count <= limit, Count: bk.count}, nil
}

// Inspect retorna o estado corrente do bucket sem alterá-lo.
func (b *Backend) Inspect(_ context.Context, key string, scale time.Duration, limit int64) (domain.BucketInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	win := now.UnixNano() / int64(scale)
	toNext := time.Duration(int64(scale) - now.UnixNano()%int64(scale))

	bk, ok := b.buckets[bucketKey(key, scale, limit)]
	if !ok || bk.window != win {
		return domain.BucketInfo{CountRemaining: limit, ToNextBucket: toNext}, nil
	}

	remaining := limit - bk.count
	if remaining < 0 {
		remaining = 0
	}
	return domain.BucketInfo{
		Count:          bk.count,
		CountRemaining: remaining,
		ToNextBucket:   toNext,
		CreatedAt:      bk.createdAt,
		UpdatedAt:      bk.updatedAt,
	}, nil
}

// Cleanup remove buckets sem atividade há mais de idleTTL.
func (b *Backend) Cleanup() {
	cutoff := b.now().Add(-b.idleTTL)

	b.mu.Lock()
	defer b.mu.Unlock()

	for k, bk := range b.buckets {
		if bk.updatedAt.Before(cutoff) {
			delete(b.buckets, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa buckets inativos
// periodicamente. Pare cancelando o contexto.
func (b *Backend) StartJanitor(ctx context.Context) {
	if b.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(b.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.Cleanup()
			}
		}
	}()
}

func bucketKey(key string, scale time.Duration, limit int64) string {
	return fmt.Sprintf("%s:%d:%d", key, int64(scale), limit)
}
