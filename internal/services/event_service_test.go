package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/media/mediatest"
	"github.com/gatherly/server/internal/models"
	"github.com/gatherly/server/internal/store"
	"github.com/gatherly/server/internal/store/storetest"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	svcEventID = "4e8f1a6b-0c2d-4e7f-9a3b-5d6c7e8f9a01"
	guestID    = "b1c2d3e4-f5a6-4b7c-8d9e-0f1a2b3c4d5e"
)

func newTestService() (*EventService, *storetest.Memory, *mediatest.Fake) {
	mem := storetest.NewMemory()
	fake := mediatest.NewFake()
	repo := models.StoreNewRepo(mem)
	es := NewEventService(repo, repo, media.NewUploader(fake), media.NewLifecycle(fake))
	return es, mem, fake
}

func svcEvent() *models.Event {
	return &models.Event{
		ID:          uuid.MustParse(svcEventID),
		Title:       "Open Air Cinema",
		Description: "Classics under the stars",
		Date:        "2026-09-25",
		TimeRange:   "19:30 - 23:00",
		Location:    "Labadi Beach",
		CreatedBy:   "owner-1",
	}
}

func TestEventService_CreateOrUpdate_UploadsAndSaves(t *testing.T) {
	es, mem, fake := newTestService()
	event := svcEvent()
	event.Guests = []models.Guest{
		{ID: uuid.MustParse(guestID), Name: "Kofi Mensah", Role: "Host"},
	}
	newImages := []media.Image{
		{Data: []byte("poster"), ContentType: "image/jpeg"},
		{Data: []byte("venue"), ContentType: "image/jpeg"},
	}
	avatars := map[string]media.Image{
		guestID: {Data: []byte("face"), ContentType: "image/jpeg"},
	}

	saved, err := es.CreateOrUpdate(context.Background(), event, newImages, avatars)
	require.NoError(t, err)

	wantImages := []string{
		fake.URL(media.EventKey(media.EventsFolder, svcEventID, 0)),
		fake.URL(media.EventKey(media.EventsFolder, svcEventID, 1)),
	}
	assert.Equal(t, wantImages, saved.Images)
	wantAvatar := fake.URL(media.GuestAvatarKey(media.EventsFolder, svcEventID, guestID))
	assert.Equal(t, wantAvatar, saved.Guests[0].ImageURL)

	doc, ok := mem.Doc(models.EventsColName, svcEventID)
	require.True(t, ok)
	assert.Equal(t, wantImages, doc["images"])
	guests, ok := doc["guests"].([]any)
	require.True(t, ok)
	require.Len(t, guests, 1)
	assert.Equal(t, wantAvatar, guests[0].(map[string]any)["imageUrl"])

	owner, ok := mem.Doc(models.UsersColName, "owner-1")
	require.True(t, ok)
	assert.Equal(t, []string{svcEventID}, models.ParseUserIndex(owner).PostedEvents)
}

func TestEventService_CreateOrUpdate_AssignsMissingID(t *testing.T) {
	es, mem, _ := newTestService()
	event := svcEvent()
	event.ID = uuid.Nil

	saved, err := es.CreateOrUpdate(context.Background(), event, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, saved.ID)
	_, ok := mem.Doc(models.EventsColName, saved.StoreKey())
	assert.True(t, ok)
}

func TestEventService_CreateOrUpdate_ValidationStopsEverything(t *testing.T) {
	es, mem, fake := newTestService()
	event := svcEvent()
	event.Title = ""

	_, err := es.CreateOrUpdate(context.Background(), event, testPoster(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid event data")

	var valErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &valErrs)

	assert.Empty(t, mem.Ops, "nothing may reach the store")
	assert.Empty(t, fake.Ops(), "nothing may reach blob storage")
}

func TestEventService_CreateOrUpdate_KeepsStoredImagesWithoutNewOnes(t *testing.T) {
	es, mem, fake := newTestService()
	event := svcEvent()
	event.Images = []string{"https://cdn.example/poster.jpg"}

	saved, err := es.CreateOrUpdate(context.Background(), event, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://cdn.example/poster.jpg"}, saved.Images)
	doc, _ := mem.Doc(models.EventsColName, svcEventID)
	assert.Equal(t, []string{"https://cdn.example/poster.jpg"}, doc["images"])
	assert.Empty(t, fake.Ops(), "no new bytes, no uploads")
}

func TestEventService_CreateOrUpdate_GuestAvatarSources(t *testing.T) {
	es, _, fake := newTestService()
	event := svcEvent()
	keepID := uuid.MustParse("11111111-2222-4333-8444-555555555555")
	bareID := uuid.MustParse("99999999-8888-4777-a666-555555555555")
	blankID := uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")
	event.Guests = []models.Guest{
		{ID: keepID, Name: "Keeps URL", Role: "DJ", ImageURL: "https://cdn.example/keep.jpg"},
		{ID: bareID, Name: "Bare Key", Role: "MC", ImageURL: "avatars/legacy-7"},
		{ID: blankID, Name: "No Avatar", Role: "Vendor"},
	}

	saved, err := es.CreateOrUpdate(context.Background(), event, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/keep.jpg", saved.Guests[0].ImageURL)
	assert.Equal(t, fake.URL("avatars/legacy-7"), saved.Guests[1].ImageURL)
	assert.Equal(t, "", saved.Guests[2].ImageURL)
}

func TestEventService_CreateOrUpdate_UploadFailureAbortsSave(t *testing.T) {
	es, mem, fake := newTestService()
	fake.FailPuts[media.EventKey(media.EventsFolder, svcEventID, 0)] = errors.New("quota exceeded")

	_, err := es.CreateOrUpdate(context.Background(), svcEvent(), testPoster(), nil)
	require.Error(t, err)

	var batchErr *media.BatchError
	assert.ErrorAs(t, err, &batchErr)
	assert.Zero(t, mem.CountOps("tx begin"), "a failed batch must not produce a metadata write")
}

func TestEventService_Delete_RemovesRecordIndexAndMedia(t *testing.T) {
	es, mem, fake := newTestService()
	event := svcEvent()
	mem.Seed(models.EventsColName, svcEventID, event.Document())
	mem.Seed(models.UsersColName, "owner-1", store.Document{
		models.FieldPostedEvents: []string{svcEventID, "other"},
	})
	fake.Seed(media.EventKey(media.EventsFolder, svcEventID, 0), []byte("poster"))
	fake.Seed(media.GuestAvatarKey(media.EventsFolder, svcEventID, guestID), []byte("face"))

	err := es.Delete(context.Background(), svcEventID)
	require.NoError(t, err)

	_, ok := mem.Doc(models.EventsColName, svcEventID)
	assert.False(t, ok)
	owner, _ := mem.Doc(models.UsersColName, "owner-1")
	assert.Equal(t, []string{"other"}, models.ParseUserIndex(owner).PostedEvents)
	assert.Empty(t, fake.Keys())
}

func TestEventService_Delete_MissingRecordStillSweepsMedia(t *testing.T) {
	es, _, fake := newTestService()
	fake.Seed(media.EventKey(media.EventsFolder, svcEventID, 0), []byte("orphan"))

	err := es.Delete(context.Background(), svcEventID)
	require.NoError(t, err)
	assert.Empty(t, fake.Keys(), "orphaned blobs are cleaned even without a record")
}

func TestEventService_Delete_RejectsMalformedID(t *testing.T) {
	es, mem, fake := newTestService()

	err := es.Delete(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrInvalidEventID)
	assert.Empty(t, mem.Ops)
	assert.Empty(t, fake.Ops())
}

func TestEventService_GetFeed_HydratesAndSkipsCorrupt(t *testing.T) {
	es, mem, fake := newTestService()
	storedID := "1aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c0d"
	bareID := "2aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c0e"
	seenID := "3aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c0f"

	mem.Seed(models.EventsColName, storedID, feedDoc(storedID, map[string]any{
		"images": []string{"https://cdn.example/stored.jpg"},
	}))
	mem.Seed(models.EventsColName, bareID, feedDoc(bareID, nil))
	mem.Seed(models.EventsColName, seenID, feedDoc(seenID, map[string]any{
		models.FieldInteractions: []string{"u1"},
	}))
	mem.Seed(models.EventsColName, "corrupt", store.Document{"id": "corrupt"})
	fake.Seed(media.EventKey(media.EventsFolder, bareID, 0), []byte("a"))

	events, err := es.GetFeed(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, events, 2)
	byID := map[string]*models.Event{}
	for _, ev := range events {
		byID[ev.StoreKey()] = ev
	}
	require.Contains(t, byID, storedID)
	require.Contains(t, byID, bareID)
	assert.Equal(t, []string{"https://cdn.example/stored.jpg"}, byID[storedID].Images,
		"stored URLs win over a fresh listing")
	assert.Equal(t, []string{fake.URL(media.EventKey(media.EventsFolder, bareID, 0))}, byID[bareID].Images)
}

func TestEventService_GetFeed_MediaOutageDoesNotFailFetch(t *testing.T) {
	es, mem, fake := newTestService()
	bareID := "2aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c0e"
	mem.Seed(models.EventsColName, bareID, feedDoc(bareID, nil))
	fake.FailList = errors.New("api down")

	events, err := es.GetFeed(context.Background(), "u1")
	require.NoError(t, err, "a media outage only costs the image refresh")
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Images)
}

func TestEventService_GetByStatus(t *testing.T) {
	es, mem, _ := newTestService()
	likedID := "1aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c0d"
	mem.Seed(models.EventsColName, likedID, feedDoc(likedID, nil))
	mem.Seed(models.UsersColName, "u1", store.Document{
		models.FieldLikedEvents: []string{likedID, "5aaa2bbb-3ccc-4ddd-8eee-9fff0a0b0c00"},
	})

	events, err := es.GetByStatus(context.Background(), "u1", models.StatusLiked)
	require.NoError(t, err)

	require.Len(t, events, 1, "stale ids drop out silently")
	assert.Equal(t, likedID, events[0].StoreKey())
}

func TestEventService_GetByStatus_UnknownStatus(t *testing.T) {
	es, _, _ := newTestService()

	_, err := es.GetByStatus(context.Background(), "u1", "archived")
	assert.ErrorIs(t, err, models.ErrUnknownStatus)
}

func TestEventService_GetByStatus_EmptyUser(t *testing.T) {
	es, _, _ := newTestService()

	_, err := es.GetByStatus(context.Background(), "   ", models.StatusLiked)
	assert.Error(t, err)
}

func TestEventService_InteractionsNormalizeInput(t *testing.T) {
	es, mem, _ := newTestService()
	mem.Seed(models.EventsColName, svcEventID, svcEvent().Document())

	require.NoError(t, es.Like(context.Background(), svcEventID, "u1"))
	doc, _ := mem.Doc(models.EventsColName, svcEventID)
	likes, _ := doc[models.FieldLikes].([]string)
	assert.Contains(t, likes, "u1")

	assert.ErrorIs(t, es.Like(context.Background(), "bad-id", "u1"), models.ErrInvalidEventID)
	assert.Error(t, es.Reserve(context.Background(), svcEventID, "  "), "blank user id is rejected")
}

func testPoster() []media.Image {
	return []media.Image{{Data: []byte("poster"), ContentType: "image/jpeg"}}
}

func feedDoc(id string, extra map[string]any) store.Document {
	doc := store.Document{
		"id":          id,
		"title":       "Event " + id[:4],
		"description": "desc",
		"date":        "2026-10-01",
		"timeRange":   "10:00 - 12:00",
		"location":    "Accra",
	}
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}
