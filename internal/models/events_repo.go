package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/server/internal/store"
)

// EventsRepo is the transactional metadata surface for event records: writes
// keep the owner's posted-events index in step with the record, delete is
// idempotent, and the read side serves the feed and by-status queries.
type EventsRepo interface {
	CreateOrUpdateEvent(ctx context.Context, eventID, ownerID string, payload store.Document) error
	DeleteEvent(ctx context.Context, eventID, ownerID string) error
	GetEventDoc(ctx context.Context, eventID string) (store.Document, error)
	GetEventDocs(ctx context.Context, eventIDs []string) ([]store.Document, error)
	GetFeedDocs(ctx context.Context, userID string) ([]store.Document, error)
}

// CreateOrUpdateEvent writes the event payload and, for owned events, unions
// eventID into the owner's posted-events set. Everything happens in one
// transaction; the callback stays re-runnable because every decision is
// derived from transaction reads. An existing event receives a partial
// update so the interaction sets it accumulated are never clobbered; a new
// event is seeded with empty ones. The owner record is created on first
// post, and skipped entirely when ownerID is empty.
func (sr *StoreRepo) CreateOrUpdateEvent(ctx context.Context, eventID, ownerID string, payload store.Document) error {
	err := sr.store.RunTransaction(ctx, func(tx store.Tx) error {
		_, err := tx.Get(EventsColName, eventID)
		exists := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var owner store.Document
		ownerExists := false
		if ownerID != "" {
			owner, err = tx.Get(UsersColName, ownerID)
			ownerExists = err == nil
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if exists {
			if err := tx.Update(EventsColName, eventID, payload); err != nil {
				return err
			}
		} else {
			if err := tx.Set(EventsColName, eventID, withInteractionSets(payload)); err != nil {
				return err
			}
		}

		if ownerID == "" {
			return nil
		}
		if !ownerExists {
			return tx.Set(UsersColName, ownerID, store.Document{
				FieldPostedEvents: []string{eventID},
			})
		}
		if containsString(ParseUserIndex(owner).PostedEvents, eventID) {
			return nil
		}
		return tx.AddToSet(UsersColName, ownerID, FieldPostedEvents, eventID)
	})
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent removes the event record and, when an owner is given, pulls
// eventID from the owner's posted-events set with a targeted array remove
// rather than a read-modify-write. Deleting an absent event succeeds.
func (sr *StoreRepo) DeleteEvent(ctx context.Context, eventID, ownerID string) error {
	err := sr.store.RunTransaction(ctx, func(tx store.Tx) error {
		if err := tx.Delete(EventsColName, eventID); err != nil {
			return err
		}
		if ownerID == "" {
			return nil
		}
		return tx.RemoveFromSet(UsersColName, ownerID, FieldPostedEvents, eventID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	return nil
}

func (sr *StoreRepo) GetEventDoc(ctx context.Context, eventID string) (store.Document, error) {
	doc, err := sr.store.Get(ctx, EventsColName, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return doc, nil
}

// GetEventDocs resolves an id list to documents, preserving the input order.
// Ids that no longer resolve are skipped rather than failing the batch, so
// stale index entries never break a status fetch.
func (sr *StoreRepo) GetEventDocs(ctx context.Context, eventIDs []string) ([]store.Document, error) {
	if len(eventIDs) == 0 {
		return []store.Document{}, nil
	}
	found, err := sr.store.FindByIDs(ctx, EventsColName, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	byID := make(map[string]store.Document, len(found))
	for _, doc := range found {
		if id, ok := doc["id"].(string); ok {
			byID[id] = doc
		}
	}
	docs := make([]store.Document, 0, len(found))
	seen := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// GetFeedDocs returns every event the user has neither interacted with nor
// reserved, filtered store-side.
func (sr *StoreRepo) GetFeedDocs(ctx context.Context, userID string) ([]store.Document, error) {
	docs, err := sr.store.FindNotContaining(ctx, EventsColName, []string{FieldInteractions, FieldReservations}, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return docs, nil
}

// withInteractionSets seeds the set fields a fresh event record carries on
// the wire, leaving caller-supplied fields untouched.
func withInteractionSets(payload store.Document) store.Document {
	doc := make(store.Document, len(payload)+3)
	for k, v := range payload {
		doc[k] = v
	}
	for _, field := range []string{FieldLikes, FieldReservations, FieldInteractions} {
		if _, ok := doc[field]; !ok {
			doc[field] = []string{}
		}
	}
	return doc
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
