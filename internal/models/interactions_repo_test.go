package models

import (
	"context"
	"errors"
	"testing"

	"github.com/gatherly/server/internal/store"
	"github.com/gatherly/server/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBareEvent(mem *storetest.Memory) {
	mem.Seed(EventsColName, testEventID, store.Document{"id": testEventID})
}

func TestStoreRepo_LikeEvent(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	err := repo.LikeEvent(context.Background(), testEventID, "u1")
	require.NoError(t, err)

	event, _ := mem.Doc(EventsColName, testEventID)
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldLikes]))
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldInteractions]))

	user, ok := mem.Doc(UsersColName, "u1")
	require.True(t, ok, "user record materializes on first interaction")
	assert.Equal(t, []string{testEventID}, ParseUserIndex(user).LikedEvents)
}

func TestStoreRepo_LikeEvent_Idempotent(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	require.NoError(t, repo.LikeEvent(context.Background(), testEventID, "u1"))
	writesAfterFirst := mem.CountOps("tx.addToSet") + mem.CountOps("tx.set")

	require.NoError(t, repo.LikeEvent(context.Background(), testEventID, "u1"))
	writesAfterSecond := mem.CountOps("tx.addToSet") + mem.CountOps("tx.set")

	assert.Equal(t, writesAfterFirst, writesAfterSecond, "a repeated like must write nothing")

	event, _ := mem.Doc(EventsColName, testEventID)
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldLikes]))
	user, _ := mem.Doc(UsersColName, "u1")
	assert.Equal(t, []string{testEventID}, ParseUserIndex(user).LikedEvents)
}

func TestStoreRepo_UnlikeEvent_KeepsInteractionMarker(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	mem.Seed(EventsColName, testEventID, store.Document{
		"id":              testEventID,
		FieldLikes:        []string{"u1", "u2"},
		FieldInteractions: []string{"u1", "u2"},
	})
	mem.Seed(UsersColName, "u1", store.Document{
		FieldLikedEvents: []string{testEventID},
	})

	err := repo.UnlikeEvent(context.Background(), testEventID, "u1")
	require.NoError(t, err)

	event, _ := mem.Doc(EventsColName, testEventID)
	assert.Equal(t, []string{"u2"}, stringSet(event[FieldLikes]))
	assert.Equal(t, []string{"u1", "u2"}, stringSet(event[FieldInteractions]),
		"an unliked event must not resurface in the user's feed")

	user, _ := mem.Doc(UsersColName, "u1")
	assert.Empty(t, ParseUserIndex(user).LikedEvents)
}

func TestStoreRepo_UnlikeEvent_WithoutPriorLike(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	err := repo.UnlikeEvent(context.Background(), testEventID, "u1")
	require.NoError(t, err)

	_, ok := mem.Doc(UsersColName, "u1")
	assert.False(t, ok, "a removal must not materialize a user record")
	assert.Zero(t, mem.CountOps("tx.removeFromSet"))
}

func TestStoreRepo_DislikeEvent_MarksWithoutEventSet(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	err := repo.DislikeEvent(context.Background(), testEventID, "u1")
	require.NoError(t, err)

	event, _ := mem.Doc(EventsColName, testEventID)
	_, hasDislikes := event["dislikes"]
	assert.False(t, hasDislikes, "event records carry no dislike set")
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldInteractions]))

	user, _ := mem.Doc(UsersColName, "u1")
	assert.Equal(t, []string{testEventID}, ParseUserIndex(user).DislikedEvents)
}

func TestStoreRepo_ReserveAndCancel(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	require.NoError(t, repo.ReserveEvent(context.Background(), testEventID, "u1"))

	event, _ := mem.Doc(EventsColName, testEventID)
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldReservations]))
	user, _ := mem.Doc(UsersColName, "u1")
	assert.Equal(t, []string{testEventID}, ParseUserIndex(user).ReservedEvents)

	require.NoError(t, repo.CancelReservation(context.Background(), testEventID, "u1"))

	event, _ = mem.Doc(EventsColName, testEventID)
	assert.Empty(t, stringSet(event[FieldReservations]))
	assert.Equal(t, []string{"u1"}, stringSet(event[FieldInteractions]),
		"cancelling keeps the feed-exclusion marker")
	user, _ = mem.Doc(UsersColName, "u1")
	assert.Empty(t, ParseUserIndex(user).ReservedEvents)
}

func TestStoreRepo_Interaction_MissingEvent(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)

	err := repo.LikeEvent(context.Background(), testEventID, "u1")
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Zero(t, mem.CountOps("tx begin"), "the pre-check fails before any transaction starts")
}

func TestStoreRepo_Interaction_EventDeletedBetweenPhases(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)

	// The event passes the pre-check, then vanishes before the transaction.
	mem.BeforeTransaction = func(m *storetest.Memory) {
		_ = m.Delete(context.Background(), EventsColName, testEventID)
	}

	err := repo.LikeEvent(context.Background(), testEventID, "u1")
	require.NoError(t, err, "a concurrent delete makes the interaction a no-op, not a failure")

	_, ok := mem.Doc(UsersColName, "u1")
	assert.False(t, ok, "no user-side write may land for a vanished event")
	assert.Zero(t, mem.CountOps("tx.addToSet"))
	assert.Zero(t, mem.CountOps("tx.set"))
}

func TestStoreRepo_Interaction_WrapsTransactionError(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	seedBareEvent(mem)
	mem.FailOps["tx"] = errors.New("connection reset")

	err := repo.ReserveEvent(context.Background(), testEventID, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reserve event")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStoreRepo_GetUserIndex(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)
	mem.Seed(UsersColName, "u1", store.Document{
		FieldLikedEvents:  []string{"e1"},
		FieldPostedEvents: []string{"e2", "e3"},
	})

	idx, err := repo.GetUserIndex(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, idx.LikedEvents)
	assert.Equal(t, []string{"e2", "e3"}, idx.PostedEvents)
	assert.Empty(t, idx.ReservedEvents)
}

func TestStoreRepo_GetUserIndex_MissingUser(t *testing.T) {
	mem := storetest.NewMemory()
	repo := StoreNewRepo(mem)

	idx, err := repo.GetUserIndex(context.Background(), "ghost")
	require.NoError(t, err, "a user with no record simply has empty sets")
	assert.NotNil(t, idx.LikedEvents)
	assert.Empty(t, idx.LikedEvents)
	assert.Empty(t, idx.PostedEvents)
}
