package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
)

// codeService stores delegated codes of one kind under prefix+code. Codes are
// multi-use: validation never deletes, expiry and revoke do.
type codeService[T entity.DelegatedClaims] struct {
	store  credstore.Store
	prefix string
	clock  clock.Clocker
}

func newCodeService[T entity.DelegatedClaims](store credstore.Store, prefix string, clk clock.Clocker) *codeService[T] {
	return &codeService[T]{store: store, prefix: prefix, clock: clk}
}

func (c *codeService[T]) key(code string) string { return c.prefix + code }

// save writes dc with a TTL equal to its remaining lifetime.
func (c *codeService[T]) save(ctx context.Context, dc *entity.DelegatedCode[T]) error {
	ttl := dc.ExpiresAt.Sub(c.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("delegated code %s: non-positive lifetime", dc.ResourceID)
	}

	raw, err := json.Marshal(dc)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(dc.Code), string(raw), ttl)
}

// validate returns the stored code. An empty resourceID skips the resource
// check.
func (c *codeService[T]) validate(ctx context.Context, code, resourceID string) (*entity.DelegatedCode[T], error) {
	if code == "" {
		return nil, entity.ErrInvalidOrExpiredCode
	}

	raw, err := c.store.Get(ctx, c.key(code))
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, entity.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}

	var dc entity.DelegatedCode[T]
	if err := json.Unmarshal([]byte(raw), &dc); err != nil {
		return nil, err
	}
	dc.Code = code

	if resourceID != "" && dc.ResourceID != resourceID {
		return nil, entity.ErrResourceMismatch
	}
	if dc.IsExpired(c.clock.Now()) {
		return nil, entity.ErrInvalidOrExpiredCode
	}

	return &dc, nil
}

func (c *codeService[T]) revoke(ctx context.Context, code string) error {
	_, err := c.store.Delete(ctx, c.key(code))
	return err
}

func expiryFrom(now time.Time, hours int) time.Time {
	return now.Add(time.Duration(hours) * time.Hour)
}
