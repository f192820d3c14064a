package gatewaywebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/redis"
)

const Scope = "gateway-callback"

// IdempotencyGuard remembers verified gateway callbacks so a redelivered
// notification is acknowledged without touching the order again.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CallbackKey identifies one gateway notification: the order reference, the
// gateway transaction number and the response code it reported.
func CallbackKey(result *gateway.CallbackResult) string {
	if result == nil {
		return ""
	}
	parts := []string{result.OrderID.String(), result.TransactionRef, result.ResponseCode}
	return strings.Join(parts, ":")
}

// CheckAndMark reports whether the key was already seen and marks it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("callback key is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, key), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("callback key is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, key))
}
