package core

import (
	"context"
	"time"
)

// A Store is the transactional content store the workflows operate on.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// A Tx is a store transaction. Getters return ErrNotFound (possibly wrapped) if nothing matches.
type Tx interface {
	Commit() error
	Rollback() error

	GetHandle(ctx context.Context, id string) (*Handle, error)
	GetHandleByPath(ctx context.Context, path string) (*Handle, error)
	GetHandlesIn(ctx context.Context, folder string) ([]*Handle, error) // direct children only
	InsertHandle(ctx context.Context, h *Handle) error
	UpdateHandle(ctx context.Context, h *Handle) error // compare-and-swap on h.Revision, returns ErrConflict and increments h.Revision on success
	DeleteHandle(ctx context.Context, id string) error // including variants, requests and snapshots

	GetVariants(ctx context.Context, handleID string) ([]*Variant, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	InsertVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, v *Variant) error
	DeleteVariant(ctx context.Context, id string) error

	GetRequests(ctx context.Context, handleID string) ([]*Request, error)
	GetRequest(ctx context.Context, id string) (*Request, error)
	GetDueRequests(ctx context.Context, now time.Time) ([]*Request, error) // pending only
	InsertRequest(ctx context.Context, r *Request) error
	UpdateRequest(ctx context.Context, r *Request) error
	DeleteRequest(ctx context.Context, id string) error

	GetSnapshots(ctx context.Context, handleID string) ([]*Snapshot, error) // ascending by Created
	InsertSnapshot(ctx context.Context, s *Snapshot) error                  // sets s.Created and s.Name
}

// WithTx runs fn in a transaction and commits it if fn returns no error.
func WithTx(ctx context.Context, store Store, fn func(tx Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
