package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/models"
	"github.com/gatherly/server/internal/store"
	"github.com/google/uuid"
)

// EventService is the public surface of the engine: create/update with media
// resolution, delete with namespace cleanup, feed and by-status reads, and
// the interaction operations. It composes the metadata and interaction
// repositories with the media components.
type EventService struct {
	eventsRepo       models.EventsRepo
	interactionsRepo models.InteractionsRepo
	uploader         *media.Uploader
	lifecycle        *media.Lifecycle
}

func NewEventService(eventsRepo models.EventsRepo, interactionsRepo models.InteractionsRepo, uploader *media.Uploader, lifecycle *media.Lifecycle) *EventService {
	return &EventService{
		eventsRepo:       eventsRepo,
		interactionsRepo: interactionsRepo,
		uploader:         uploader,
		lifecycle:        lifecycle,
	}
}

// CreateOrUpdate persists the event after resolving its media. The two media
// legs run concurrently: guest avatars are uploaded or resolved into the
// guest list while new images upload in caller order (existing URLs are kept
// when no new images come in). Only after both legs finish does the merged
// payload reach the metadata store, so a media failure never leaves a record
// pointing at blobs that were never written. Returns the event with its
// final image URLs.
func (es *EventService) CreateOrUpdate(ctx context.Context, event *models.Event, newImages []media.Image, avatars map[string]media.Image) (*models.Event, error) {
	if event == nil {
		return nil, fmt.Errorf("event is nil")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := models.Validate.Struct(event); err != nil {
		return nil, fmt.Errorf("invalid event data: %w", err)
	}

	eventID := event.StoreKey()

	var (
		wg        sync.WaitGroup
		guests    []models.Guest
		guestsErr error
		images    []string
		imagesErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		guests, guestsErr = es.resolveGuestAvatars(ctx, eventID, event.Guests, avatars)
	}()
	go func() {
		defer wg.Done()
		if len(newImages) == 0 {
			images = event.Images
			return
		}
		images, imagesErr = es.uploader.UploadBatch(ctx, newImages, media.EventsFolder, eventID)
	}()
	wg.Wait()
	if guestsErr != nil {
		return nil, guestsErr
	}
	if imagesErr != nil {
		return nil, imagesErr
	}

	event.Guests = guests
	event.Images = images
	if err := es.eventsRepo.CreateOrUpdateEvent(ctx, eventID, event.CreatedBy, event.MetadataDocument()); err != nil {
		return nil, err
	}
	return event, nil
}

// resolveGuestAvatars produces the final guest list in input order. A guest
// with uploaded bytes gets them stored under the event's namespace; a guest
// already carrying an http(s) URL keeps it; anything else is treated as a
// bare storage key and resolved to a serving URL.
func (es *EventService) resolveGuestAvatars(ctx context.Context, eventID string, guests []models.Guest, avatars map[string]media.Image) ([]models.Guest, error) {
	resolved := make([]models.Guest, len(guests))
	for i, g := range guests {
		resolved[i] = g
		if img, ok := avatars[g.ID.String()]; ok {
			url, err := es.uploader.UploadGuestAvatar(ctx, img, media.EventsFolder, eventID, g.ID.String())
			if err != nil {
				return nil, fmt.Errorf("failed to upload avatar for guest %s: %w", g.ID, err)
			}
			resolved[i].ImageURL = url
			continue
		}
		switch {
		case g.ImageURL == "":
		case strings.HasPrefix(g.ImageURL, "http://"), strings.HasPrefix(g.ImageURL, "https://"):
		default:
			url, err := es.uploader.ResolveURL(ctx, g.ImageURL)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve avatar for guest %s: %w", g.ID, err)
			}
			resolved[i].ImageURL = url
		}
	}
	return resolved, nil
}

// Delete removes the event record first, so it vanishes from feeds
// immediately, then sweeps the media namespace. The stored record, not the
// caller, decides which owner index is cleaned. Deleting an event that is
// already gone still sweeps its namespace and succeeds.
func (es *EventService) Delete(ctx context.Context, eventID string) error {
	id, err := models.NormalizeEventID(eventID)
	if err != nil {
		return err
	}

	owner := ""
	doc, err := es.eventsRepo.GetEventDoc(ctx, id)
	if err == nil {
		owner, _ = doc["createdBy"].(string)
	} else if !errors.Is(err, models.ErrEventNotFound) {
		return err
	}

	if err := es.eventsRepo.DeleteEvent(ctx, id, owner); err != nil {
		return err
	}
	return es.lifecycle.DeleteAll(ctx, media.EventsFolder, id)
}

// GetFeed returns every event the user has not interacted with or reserved.
// Corrupt records are skipped, not fatal.
func (es *EventService) GetFeed(ctx context.Context, userID string) ([]*models.Event, error) {
	docs, err := es.eventsRepo.GetFeedDocs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return es.hydrateEvents(ctx, docs), nil
}

// GetByStatus resolves one of the user's id sets (liked, posted, reserved,
// attended) into full event records, preserving the set's order. Stale ids
// pointing at deleted events drop out silently.
func (es *EventService) GetByStatus(ctx context.Context, userID, status string) ([]*models.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	idx, err := es.interactionsRepo.GetUserIndex(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids, ok := idx.IDsForStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStatus, status)
	}
	docs, err := es.eventsRepo.GetEventDocs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return es.hydrateEvents(ctx, docs), nil
}

func (es *EventService) Like(ctx context.Context, eventID, userID string) error {
	id, err := es.normalizePair(eventID, userID)
	if err != nil {
		return err
	}
	return es.interactionsRepo.LikeEvent(ctx, id, userID)
}

func (es *EventService) Unlike(ctx context.Context, eventID, userID string) error {
	id, err := es.normalizePair(eventID, userID)
	if err != nil {
		return err
	}
	return es.interactionsRepo.UnlikeEvent(ctx, id, userID)
}

func (es *EventService) Dislike(ctx context.Context, eventID, userID string) error {
	id, err := es.normalizePair(eventID, userID)
	if err != nil {
		return err
	}
	return es.interactionsRepo.DislikeEvent(ctx, id, userID)
}

func (es *EventService) Reserve(ctx context.Context, eventID, userID string) error {
	id, err := es.normalizePair(eventID, userID)
	if err != nil {
		return err
	}
	return es.interactionsRepo.ReserveEvent(ctx, id, userID)
}

func (es *EventService) CancelReservation(ctx context.Context, eventID, userID string) error {
	id, err := es.normalizePair(eventID, userID)
	if err != nil {
		return err
	}
	return es.interactionsRepo.CancelReservation(ctx, id, userID)
}

func (es *EventService) normalizePair(eventID, userID string) (string, error) {
	id, err := models.NormalizeEventID(eventID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	return id, nil
}

// hydrateEvents parses raw docs tolerantly and fills in images for events
// whose records carry none, from the blobs stored under their namespace.
// Stored URLs win when present. A media listing failure only costs the
// affected events their image refresh; the fetch itself still succeeds.
func (es *EventService) hydrateEvents(ctx context.Context, docs []store.Document) []*models.Event {
	events := make([]*models.Event, 0, len(docs))
	bare := []string{}
	for _, doc := range docs {
		ev := models.ParseEvent(doc)
		if ev == nil {
			continue
		}
		events = append(events, ev)
		if len(ev.Images) == 0 {
			bare = append(bare, ev.StoreKey())
		}
	}
	if len(bare) == 0 {
		return events
	}
	urls, _ := es.lifecycle.RetrieveBatch(ctx, media.EventsFolder, bare)
	for _, ev := range events {
		if len(ev.Images) > 0 {
			continue
		}
		if u, ok := urls[ev.StoreKey()]; ok {
			ev.Images = u
		}
	}
	return events
}
