package client

import (
	"context"
	"errors"
	"fmt"

	"receiving/internal/docstore"
)

const Collection = "clients"

var ErrNotFound = errors.New("client not found")

type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

// Directory resolves client references. Client management lives elsewhere;
// bookings only need to look clients up.
type Directory interface {
	Lookup(ctx context.Context, id string) (*Client, error)
}

type DocDirectory struct {
	store docstore.Store
}

func NewDocDirectory(store docstore.Store) *DocDirectory {
	return &DocDirectory{store: store}
}

func (d *DocDirectory) Lookup(ctx context.Context, id string) (*Client, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rec, err := d.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	var c Client
	if err := rec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode client %s: %w", id, err)
	}
	c.ID = rec.ID
	return &c, nil
}
