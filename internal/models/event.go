package models

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	EventsColName = "events"
	UsersColName  = "users"
)

// Price detail pricing models.
const (
	PriceTypeFixed    = "fixed"
	PriceTypeVariable = "variable"
)

// Event set fields mutated by the interaction ledger.
const (
	FieldLikes        = "likes"
	FieldReservations = "reservations"
	FieldInteractions = "interactions"
)

type Event struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title" validate:"required"`
	Description  string        `json:"description" validate:"required"`
	Date         string        `json:"date" validate:"required"`
	TimeRange    string        `json:"timeRange" validate:"required"`
	Location     string        `json:"location" validate:"required"`
	Hashtags     []string      `json:"hashtags"`
	Guests       []Guest       `json:"guests"`
	PriceDetails []PriceDetail `json:"priceDetails"`
	Likes        []string      `json:"likes"`
	Reservations []string      `json:"reservations"`
	Interactions []string      `json:"interactions"`
	// CreatedBy is the posting user's id. Empty means the event is
	// platform-generated and has no owner index to maintain.
	CreatedBy string   `json:"createdBy"`
	Images    []string `json:"images"`

	StripeProductID          string `json:"stripeProductId,omitempty"`
	StripeConnectedAccountID string `json:"stripeConnectedAccountId,omitempty"`
}

type Guest struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name" validate:"required"`
	Role     string    `json:"role" validate:"required"`
	ImageURL string    `json:"imageUrl"`
}

type PriceDetail struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`

	Link          string `json:"link,omitempty"`
	StripePriceID string `json:"stripePriceId,omitempty"`
}

// StoreKey returns the lowercase-normalized document key for the event.
func (e *Event) StoreKey() string {
	return e.ID.String()
}

// NormalizeEventID parses a raw event id and returns its canonical
// lowercase form, the form every store key uses.
func NormalizeEventID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventID, raw)
	}
	return id.String(), nil
}

// Document builds the wire-contract field map persisted for the event.
// Optional stripe references are omitted when empty rather than stored as
// empty strings.
func (e *Event) Document() map[string]any {
	guests := make([]any, 0, len(e.Guests))
	for _, g := range e.Guests {
		guests = append(guests, g.document())
	}
	prices := make([]any, 0, len(e.PriceDetails))
	for _, p := range e.PriceDetails {
		prices = append(prices, p.document())
	}

	doc := map[string]any{
		"id":           e.StoreKey(),
		"title":        e.Title,
		"description":  e.Description,
		"date":         e.Date,
		"timeRange":    e.TimeRange,
		"location":     e.Location,
		"hashtags":     copyStrings(e.Hashtags),
		"guests":       guests,
		"priceDetails": prices,
		"likes":        copyStrings(e.Likes),
		"reservations": copyStrings(e.Reservations),
		"interactions": copyStrings(e.Interactions),
		"createdBy":    e.CreatedBy,
		"images":       copyStrings(e.Images),
	}
	if e.StripeProductID != "" {
		doc["stripeProductId"] = e.StripeProductID
	}
	if e.StripeConnectedAccountID != "" {
		doc["stripeConnectedAccountId"] = e.StripeConnectedAccountID
	}
	return doc
}

// MetadataDocument is Document without the interaction sets. Caller-driven
// saves carry this payload: the sets belong to the interaction ledger and
// must never be writable through a create or update.
func (e *Event) MetadataDocument() map[string]any {
	doc := e.Document()
	delete(doc, FieldLikes)
	delete(doc, FieldReservations)
	delete(doc, FieldInteractions)
	return doc
}

func (g Guest) document() map[string]any {
	return map[string]any{
		"id":       g.ID.String(),
		"name":     g.Name,
		"role":     g.Role,
		"imageUrl": g.ImageURL,
	}
}

func (p PriceDetail) document() map[string]any {
	doc := map[string]any{
		"id":       p.ID,
		"title":    p.Title,
		"price":    p.Price,
		"currency": p.Currency,
		"type":     p.Type,
	}
	if p.Link != "" {
		doc["link"] = p.Link
	}
	if p.StripePriceID != "" {
		doc["stripePriceId"] = p.StripePriceID
	}
	return doc
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
