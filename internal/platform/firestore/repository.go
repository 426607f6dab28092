package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
)

// Encoder serialises an entity into a Firestore-compatible value.
type Encoder[T any] func(value T) (any, error)

// Decoder hydrates an entity from a snapshot.
type Decoder[T any] func(snap *firestore.DocumentSnapshot) (T, error)

// QueryBuilder customises a collection query.
type QueryBuilder func(query firestore.Query) firestore.Query

// Collection provides typed access to one Firestore collection.
type Collection[T any] struct {
	provider *Provider
	name     string
	encode   Encoder[T]
	decode   Decoder[T]
}

// NewCollection binds a typed accessor to a collection.
func NewCollection[T any](provider *Provider, name string, encode Encoder[T], decode Decoder[T]) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name), encode: encode, decode: decode}
}

// Create writes a new document, failing with a conflict when it exists.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) error {
	doc, payload, err := c.prepare(ctx, id, value)
	if err != nil {
		return err
	}
	_, err = doc.Create(ctx, payload)
	return WrapError(c.op("create"), err)
}

// Set upserts a document.
func (c *Collection[T]) Set(ctx context.Context, id string, value T) error {
	doc, payload, err := c.prepare(ctx, id, value)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, payload)
	return WrapError(c.op("set"), err)
}

// Update applies partial field updates to an existing document.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := c.doc(ctx, id)
	if err != nil {
		return err
	}
	_, err = doc.Update(ctx, updates)
	return WrapError(c.op("update"), err)
}

// Get fetches and decodes one document.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.doc(ctx, id)
	if err != nil {
		return zero, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return zero, WrapError(c.op("get"), err)
	}
	return c.decode(snap)
}

// Query runs a query and decodes every result in order.
func (c *Collection[T]) Query(ctx context.Context, build QueryBuilder) ([]T, error) {
	coll, err := c.collection(ctx)
	if err != nil {
		return nil, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []T
	for {
		snap, err := iter.Next()
		if isDone(err) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.op("query"), err)
		}
		value, err := c.decode(snap)
		if err != nil {
			return nil, fmt.Errorf("firestore: decode %s/%s: %w", c.name, snap.Ref.ID, err)
		}
		out = append(out, value)
	}
}

func (c *Collection[T]) prepare(ctx context.Context, id string, value T) (*firestore.DocumentRef, any, error) {
	doc, err := c.doc(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payload, err := c.encode(value)
	if err != nil {
		return nil, nil, fmt.Errorf("firestore: encode %s/%s: %w", c.name, id, err)
	}
	return doc, payload, nil
}

func (c *Collection[T]) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if c == nil || c.provider == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	if c.name == "" {
		return nil, errors.New("firestore: collection name is required")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name), nil
}

func (c *Collection[T]) doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: document id is required", c.op("doc"))
	}
	coll, err := c.collection(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}
