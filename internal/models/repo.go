package models

import (
	"github.com/gatherly/server/internal/store"
	"github.com/go-playground/validator/v10"
)

var Validate = validator.New()

// StoreRepo hosts every repository method backed by the document store. It
// holds the narrow store contract rather than a driver client so repository
// logic runs unchanged against the in-memory store in tests.
type StoreRepo struct {
	store store.Store
}

func StoreNewRepo(st store.Store) *StoreRepo {
	return &StoreRepo{store: st}
}
