package service

import (
	"context"
	"errors"
	"io"

	"blogapi/internal/model"
	"blogapi/pkg/schema"
)

// TxManager runs fn inside one storage transaction carried by ctx.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// mutation describes one mutating request. Every step is optional except
// apply: a nil locate means nothing to gate, a nil schema means no body.
// The body is only read once the gate has passed.
type mutation[T any] struct {
	actor    *model.User
	body     io.Reader
	schema   *schema.Schema
	locate   func(ctx context.Context) ([]Target, error)
	ownerKey string
	apply    func(ctx context.Context, fields schema.Fields) (T, error)
}

// runMutation locates, gates, validates and applies m inside one
// transaction, stopping at the first failure. Nothing is written unless the
// gate and the schema both pass.
func runMutation[T any](ctx context.Context, tx TxManager, m mutation[T]) (T, error) {
	var out T

	err := tx.Do(ctx, func(ctx context.Context) error {
		var targets []Target
		if m.locate != nil {
			var err error
			if targets, err = m.locate(ctx); err != nil {
				return err
			}
		}

		if err := Check(targets, m.ownerKey, m.actor); err != nil {
			return err
		}

		var fields schema.Fields
		if m.schema != nil {
			var err error
			if fields, err = m.schema.LoadReader(ctx, m.body); err != nil {
				return err
			}
		}

		res, err := m.apply(ctx, fields)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// found turns a storage ErrNotFound into an absent result.
func found[T any](v T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
