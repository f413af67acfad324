package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/server/internal/store"
)

// InteractionsRepo mutates the paired membership sets between users and
// events: a set on the event record, a mirror set on the user record, plus
// the shared interactions marker that drives feed exclusion. All mutations
// are idempotent.
type InteractionsRepo interface {
	LikeEvent(ctx context.Context, eventID, userID string) error
	UnlikeEvent(ctx context.Context, eventID, userID string) error
	DislikeEvent(ctx context.Context, eventID, userID string) error
	ReserveEvent(ctx context.Context, eventID, userID string) error
	CancelReservation(ctx context.Context, eventID, userID string) error
	GetUserIndex(ctx context.Context, userID string) (UserIndex, error)
}

// interactionMutation describes one ledger operation: which user-side and
// event-side fields pair up, whether membership is added or removed, and
// whether the shared interactions marker is set.
type interactionMutation struct {
	op              string
	userField       string
	eventField      string
	add             bool
	markInteraction bool
}

func (sr *StoreRepo) LikeEvent(ctx context.Context, eventID, userID string) error {
	return sr.mutateInteraction(ctx, eventID, userID, interactionMutation{
		op:              "like",
		userField:       FieldLikedEvents,
		eventField:      FieldLikes,
		add:             true,
		markInteraction: true,
	})
}

// UnlikeEvent removes the like pairing. The interactions marker is left in
// place: an event the user walked away from must not resurface in their feed.
func (sr *StoreRepo) UnlikeEvent(ctx context.Context, eventID, userID string) error {
	return sr.mutateInteraction(ctx, eventID, userID, interactionMutation{
		op:         "unlike",
		userField:  FieldLikedEvents,
		eventField: FieldLikes,
	})
}

// DislikeEvent records the event on the user's disliked list and marks the
// interaction so the feed stops serving it. Event records carry no dislike
// set; the marker is the whole event-side effect.
func (sr *StoreRepo) DislikeEvent(ctx context.Context, eventID, userID string) error {
	return sr.mutateInteraction(ctx, eventID, userID, interactionMutation{
		op:              "dislike",
		userField:       FieldDislikedEvents,
		add:             true,
		markInteraction: true,
	})
}

func (sr *StoreRepo) ReserveEvent(ctx context.Context, eventID, userID string) error {
	return sr.mutateInteraction(ctx, eventID, userID, interactionMutation{
		op:              "reserve",
		userField:       FieldReservedEvents,
		eventField:      FieldReservations,
		add:             true,
		markInteraction: true,
	})
}

// CancelReservation removes the reservation pairing, keeping the
// interactions marker like UnlikeEvent does.
func (sr *StoreRepo) CancelReservation(ctx context.Context, eventID, userID string) error {
	return sr.mutateInteraction(ctx, eventID, userID, interactionMutation{
		op:         "cancel",
		userField:  FieldReservedEvents,
		eventField: FieldReservations,
	})
}

// GetUserIndex reads the per-user id sets. A user with no record yet simply
// has empty sets; that is not an error.
func (sr *StoreRepo) GetUserIndex(ctx context.Context, userID string) (UserIndex, error) {
	doc, err := sr.store.Get(ctx, UsersColName, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ParseUserIndex(store.Document{}), nil
		}
		return UserIndex{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return ParseUserIndex(doc), nil
}

// mutateInteraction runs the shared two-phase shape: a cheap existence
// pre-check outside any transaction, then a transaction that re-reads both
// records and applies membership-checked writes. Because the pre-check and
// the transaction are not atomic with each other, the transaction treats a
// missing event as "deleted underneath us" and commits nothing.
func (sr *StoreRepo) mutateInteraction(ctx context.Context, eventID, userID string, m interactionMutation) error {
	if _, err := sr.store.Get(ctx, EventsColName, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return fmt.Errorf("failed to check event %s: %w", eventID, err)
	}

	err := sr.store.RunTransaction(ctx, func(tx store.Tx) error {
		event, err := tx.Get(EventsColName, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		user, err := tx.Get(UsersColName, userID)
		userExists := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if m.eventField != "" {
			members := stringSet(event[m.eventField])
			switch {
			case m.add && !containsString(members, userID):
				if err := tx.AddToSet(EventsColName, eventID, m.eventField, userID); err != nil {
					return err
				}
			case !m.add && containsString(members, userID):
				if err := tx.RemoveFromSet(EventsColName, eventID, m.eventField, userID); err != nil {
					return err
				}
			}
		}
		if m.markInteraction && !containsString(stringSet(event[FieldInteractions]), userID) {
			if err := tx.AddToSet(EventsColName, eventID, FieldInteractions, userID); err != nil {
				return err
			}
		}

		if !userExists {
			if !m.add {
				return nil
			}
			return tx.Set(UsersColName, userID, store.Document{
				m.userField: []string{eventID},
			})
		}
		members := stringSet(user[m.userField])
		switch {
		case m.add && !containsString(members, eventID):
			return tx.AddToSet(UsersColName, userID, m.userField, eventID)
		case !m.add && containsString(members, eventID):
			return tx.RemoveFromSet(UsersColName, userID, m.userField, eventID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to %s event %s: %w", m.op, eventID, err)
	}
	return nil
}
