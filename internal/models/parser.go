package models

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// ParseEvent converts a raw store document into an Event. It returns nil,
// never an error, when a required scalar is missing or mistyped, so one
// corrupt record cannot abort a batch fetch. Collection fields parse
// tolerantly: a malformed guest or price row is dropped individually and its
// valid siblings survive. Set fields come back non-nil and deduplicated,
// images keep their stored order.
func ParseEvent(raw map[string]any) *Event {
	idStr, ok := stringField(raw, "id")
	if !ok {
		return nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}

	e := &Event{ID: id}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"title", &e.Title},
		{"description", &e.Description},
		{"date", &e.Date},
		{"timeRange", &e.TimeRange},
		{"location", &e.Location},
	} {
		v, ok := stringField(raw, f.key)
		if !ok {
			return nil
		}
		*f.dst = v
	}

	e.Hashtags = stringSet(raw["hashtags"])
	e.Likes = stringSet(raw[FieldLikes])
	e.Reservations = stringSet(raw[FieldReservations])
	e.Interactions = stringSet(raw[FieldInteractions])
	e.Images = stringList(raw["images"])
	e.Guests = parseGuests(raw["guests"])
	e.PriceDetails = parsePriceDetails(raw["priceDetails"])
	e.CreatedBy = optString(raw, "createdBy")
	e.StripeProductID = optString(raw, "stripeProductId")
	e.StripeConnectedAccountID = optString(raw, "stripeConnectedAccountId")
	return e
}

// ParseUserIndex reads the id sets off a raw user record. It never fails: a
// missing or mistyped field is simply an empty set.
func ParseUserIndex(raw map[string]any) UserIndex {
	return UserIndex{
		PostedEvents:   stringSet(raw[FieldPostedEvents]),
		LikedEvents:    stringSet(raw[FieldLikedEvents]),
		ReservedEvents: stringSet(raw[FieldReservedEvents]),
		DislikedEvents: stringSet(raw[FieldDislikedEvents]),
	}
}

func parseGuests(v any) []Guest {
	items, _ := v.([]any)
	guests := make([]Guest, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		idStr, ok := stringField(m, "id")
		if !ok {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		name, ok := stringField(m, "name")
		if !ok {
			continue
		}
		role, ok := stringField(m, "role")
		if !ok {
			continue
		}
		// imageUrl may be absent, but when present it must be a string.
		imageURL := ""
		if v, present := m["imageUrl"]; present {
			s, ok := v.(string)
			if !ok {
				continue
			}
			imageURL = s
		}
		guests = append(guests, Guest{
			ID:       id,
			Name:     name,
			Role:     role,
			ImageURL: imageURL,
		})
	}
	return guests
}

func parsePriceDetails(v any) []PriceDetail {
	items, _ := v.([]any)
	prices := make([]PriceDetail, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		price, ok := numeric(m["price"])
		if !ok {
			continue
		}
		prices = append(prices, PriceDetail{
			ID:            optString(m, "id"),
			Title:         optString(m, "title"),
			Price:         price,
			Currency:      optString(m, "currency"),
			Type:          optString(m, "type"),
			Link:          optString(m, "link"),
			StripePriceID: optString(m, "stripePriceId"),
		})
	}
	return prices
}

// stringField returns the value under key when it is a non-empty string.
func stringField(raw map[string]any, key string) (string, bool) {
	s, ok := raw[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func optString(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// stringSet keeps string members only and collapses duplicates, preserving
// first-occurrence order.
func stringSet(v any) []string {
	items := stringList(v)
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// stringList keeps string members only, duplicates and order intact. Slices
// arrive as []any from the store driver and as []string from documents built
// in-process; both are accepted.
func stringList(v any) []string {
	switch items := v.(type) {
	case []string:
		out := make([]string, len(items))
		copy(out, items)
		return out
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// numeric normalizes the price encodings seen in stored records: plain
// numbers, json.Number, or a decimal carried as a string.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
