// Package redis disponibiliza a implementação do backend de contagem baseada em Redis.
package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
)

//go:embed throttle.lua
var throttleScript string

// checkScript faz o ciclo incrementa/expira/PTTL em uma única rodada atômica
// no servidor, seguro sob chamadores concorrentes em múltiplas réplicas.
var checkScript = redis.NewScript(throttleScript)

type Backend struct {
	client *redis.Client
	prefix string
}

var _ ports.Backend = (*Backend)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix antecede toda chave de bucket. Padrão "throttler:".
	Prefix string
}

func New(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "throttler:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Backend{client: client, prefix: cfg.Prefix}, nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) CheckAndIncrement(ctx context.Context, key string, scale time.Duration, limit, increment int64) (ports.CheckResult, error) {
	k := b.bucketKey(key, scale, limit)

	res, err := checkScript.Run(ctx, b.client, []string{k},
		increment,
		scale.Milliseconds(),
		time.Now().UnixMilli(),
	).Result()
	if err != nil {
		return ports.CheckResult{}, fmt.Errorf("redis check failed: %w", err)
	}

	return parseCheckReply(res, limit)
}

// parseCheckReply valida a resposta do script. Qualquer formato inesperado é
// erro, nunca uma liberação silenciosa.
func parseCheckReply(reply interface{}, limit int64) (ports.CheckResult, error) {
	values, ok := reply.([]interface{})
	if !ok || len(values) != 2 {
		return ports.CheckResult{}, fmt.Errorf("unexpected script reply: %v", reply)
	}
	count, ok := values[0].(int64)
	if !ok {
		return ports.CheckResult{}, fmt.Errorf("unexpected script reply: %v", reply)
	}

	return ports.CheckResult{Allowed: count <= limit, Count: count}, nil
}

func (b *Backend) Inspect(ctx context.Context, key string, scale time.Duration, limit int64) (domain.BucketInfo, error) {
	k := b.bucketKey(key, scale, limit)

	pipe := b.client.Pipeline()
	fields := pipe.HMGet(ctx, k, "count", "created_at", "updated_at")
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.BucketInfo{}, fmt.Errorf("redis inspect failed: %w", err)
	}

	count := fieldInt64(fields.Val(), 0)
	if count == 0 {
		// Bucket inexistente ou expirado: a próxima janela começa no próximo
		// hit, então o pior caso é a janela inteira.
		return domain.BucketInfo{CountRemaining: limit, ToNextBucket: scale}, nil
	}

	toNext := ttl.Val()
	if toNext < 0 {
		toNext = scale
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return domain.BucketInfo{
		Count:          count,
		CountRemaining: remaining,
		ToNextBucket:   toNext,
		CreatedAt:      time.UnixMilli(fieldInt64(fields.Val(), 1)),
		UpdatedAt:      time.UnixMilli(fieldInt64(fields.Val(), 2)),
	}, nil
}

func (b *Backend) bucketKey(key string, scale time.Duration, limit int64) string {
	return fmt.Sprintf("%s%s:%d:%d", b.prefix, key, scale.Milliseconds(), limit)
}

func fieldInt64(values []interface{}, i int) int64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	s, ok := values[i].(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
