package client

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

// CleanupFunc performs the device-local side effect a remote-cleanup event
// asks for, e.g. deleting an externally stored file.
type CleanupFunc func(entityID string, entityPath *string) error

// Reconciler applies the server's event stream to the local cache. Per
// event: apply idempotently, acknowledge the position, then persist it —
// strictly in that order, so a crash mid-apply causes redelivery on
// reconnect instead of silent loss.
type Reconciler struct {
	cache     *Cache
	cursor    CursorStore
	transport Transport
	cleanup   CleanupFunc

	// OnEvent, when set, observes every received event before it is
	// applied. Used by the CLI to show the stream.
	OnEvent func(models.Event)
}

func NewReconciler(cache *Cache, cursor CursorStore, transport Transport, cleanup CleanupFunc) *Reconciler {
	return &Reconciler{
		cache:     cache,
		cursor:    cursor,
		transport: transport,
		cleanup:   cleanup,
	}
}

// LastSeenPosition reads the locally persisted cursor for the connection
// handshake. An empty value means "replay everything".
func LastSeenPosition(cursor CursorStore) string {
	position, err := cursor.Load()
	if err != nil {
		log.Printf("failed to load local cursor, replaying from the beginning: %v", err)
		return models.PositionStart
	}
	return position
}

// Run consumes events until the transport fails or the context is canceled.
func (r *Reconciler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		r.transport.Close()
		return nil
	})

	g.Go(func() error {
		for {
			event, err := r.transport.Receive()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("connection lost: %w", err)
			}
			if err := r.handleEvent(event); err != nil {
				return err
			}
		}
	})

	return g.Wait()
}

func (r *Reconciler) handleEvent(event models.Event) error {
	if r.OnEvent != nil {
		r.OnEvent(event)
	}

	if event.Type == models.EventCleanupRequested {
		r.handleCleanup(event)
	} else {
		r.cache.Apply(event)
	}

	// Cleanup retries arrive without a position; only cursor-bearing
	// events advance the acknowledged position.
	if event.Position == "" {
		return nil
	}

	if err := r.transport.Ack(event.Position); err != nil {
		return fmt.Errorf("failed to ack position %s: %w", event.Position, err)
	}
	if err := r.cursor.Save(event.Position); err != nil {
		return fmt.Errorf("failed to persist cursor: %w", err)
	}
	return nil
}

// handleCleanup runs the requested side effect and confirms it through the
// side channel. A failed cleanup is not acked: the server re-pushes the
// pending record on the next connect.
func (r *Reconciler) handleCleanup(event models.Event) {
	if event.EntityID == nil || r.cleanup == nil {
		return
	}
	if err := r.cleanup(*event.EntityID, event.EntityPath); err != nil {
		log.Printf("cleanup of entity %s failed, will retry on next connect: %v", *event.EntityID, err)
		return
	}
	if err := r.transport.AckCleanup(*event.EntityID); err != nil {
		log.Printf("failed to send cleanup ack for entity %s: %v", *event.EntityID, err)
	}
}
