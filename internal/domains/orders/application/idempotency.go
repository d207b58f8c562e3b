package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application/types"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

type normalizedPlacement struct {
	Kind       string           `json:"kind"`
	CustomerID string           `json:"customerId"`
	Items      []types.CartItem `json:"items"`
}

// FingerprintPlaceOrder hashes a single-item request, excluding the idempotency key.
func FingerprintPlaceOrder(input types.PlaceOrderInput) (string, error) {
	return fingerprint(normalizedPlacement{
		Kind:       "order",
		CustomerID: strings.TrimSpace(input.CustomerID),
		Items:      []types.CartItem{{ProductID: strings.TrimSpace(input.ProductID), Quantity: input.Quantity}},
	})
}

// FingerprintPlaceCartOrder hashes a cart request after merging and sorting its lines,
// so the same cart in a different order yields the same fingerprint.
func FingerprintPlaceCartOrder(input types.PlaceCartOrderInput) (string, error) {
	return fingerprint(normalizedPlacement{
		Kind:       "cart",
		CustomerID: strings.TrimSpace(input.CustomerID),
		Items:      types.NormalizeCart(input.Items),
	})
}

func fingerprint(value normalizedPlacement) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func fingerprintOf(request any) (string, error) {
	switch input := request.(type) {
	case types.PlaceOrderInput:
		return FingerprintPlaceOrder(input)
	case types.PlaceCartOrderInput:
		return FingerprintPlaceCartOrder(input)
	default:
		return "", fmt.Errorf("unsupported idempotent request %T", request)
	}
}

// replay returns the order previously produced for key, if any. A key reused
// with a different payload is rejected.
func (s *Service) replay(ctx context.Context, key string, request any) (string, *domain.Order, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return "", nil, nil
	}
	hash, err := fingerprintOf(request)
	if err != nil {
		return "", nil, err
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	if record == nil {
		return hash, nil, nil
	}
	if record.RequestHash != hash {
		return "", nil, fmt.Errorf("%w: key %q was used for a different request", ErrIdempotencyConflict, key)
	}
	order, err := s.ledger.Get(ctx, record.OrderID)
	if errors.Is(err, ports.ErrNotFound) {
		// The order was deleted after the key was stored; place a new one.
		if err := s.idempotency.Forget(ctx, key, record.OrderID); err != nil {
			return "", nil, err
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "idempotency key released from deleted order",
			slog.String("order.id", record.OrderID),
		)
		return hash, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "idempotent placement replayed",
		slog.String("order.id", order.ID),
	)
	return hash, order, nil
}

// remember stores key -> order. When a concurrent request with the same key got
// there first, this order is cancelled, its stock released, and the winner is
// returned with fresh=false so no events are emitted twice.
func (s *Service) remember(ctx context.Context, key, hash string, order *domain.Order, reservations []types.Reservation) (*domain.Order, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return order, true, nil
	}
	stored, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OrderID: order.ID})
	if err == nil {
		return order, true, nil
	}
	if !errors.Is(err, ErrIdempotencyConflict) {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist idempotency key",
			slog.String("order.id", order.ID),
			slog.String("error", err.Error()),
		)
		return order, true, nil
	}
	s.cancelDuplicate(ctx, order, reservations)
	if stored == nil || stored.RequestHash != hash {
		return nil, false, fmt.Errorf("%w: key %q was used for a different request", ErrIdempotencyConflict, key)
	}
	winner, err := s.ledger.Get(ctx, stored.OrderID)
	if err != nil {
		return nil, false, err
	}
	return winner, false, nil
}
