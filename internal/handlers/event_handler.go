package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gatherly/server/internal/helpers"
	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/models"
	"github.com/gatherly/server/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// imagePayload carries one image as base64 bytes.
type imagePayload struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

type guestPayload struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Role     string        `json:"role"`
	ImageURL string        `json:"imageUrl"`
	Avatar   *imagePayload `json:"avatar"`
}

type priceDetailPayload struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Type          string  `json:"type"`
	Link          string  `json:"link"`
	StripePriceID string  `json:"stripePriceId"`
}

// eventPayload is the write-side request body. Existing image URLs ride in
// images; fresh uploads ride in newImages and replace them.
type eventPayload struct {
	ID                       string               `json:"id"`
	Title                    string               `json:"title"`
	Description              string               `json:"description"`
	Date                     string               `json:"date"`
	TimeRange                string               `json:"timeRange"`
	Location                 string               `json:"location"`
	Hashtags                 []string             `json:"hashtags"`
	Guests                   []guestPayload       `json:"guests"`
	PriceDetails             []priceDetailPayload `json:"priceDetails"`
	Images                   []string             `json:"images"`
	NewImages                []imagePayload       `json:"newImages"`
	StripeProductID          string               `json:"stripeProductId"`
	StripeConnectedAccountID string               `json:"stripeConnectedAccountId"`
}

// toDomain converts the request body into the domain event plus the decoded
// media payloads. Guests without an id get one here so their avatars have a
// stable storage key.
func (p *eventPayload) toDomain(callerID string) (*models.Event, []media.Image, map[string]media.Image, error) {
	id := uuid.Nil
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %q", models.ErrInvalidEventID, p.ID)
		}
		id = parsed
	}

	avatars := map[string]media.Image{}
	guests := make([]models.Guest, 0, len(p.Guests))
	for _, g := range p.Guests {
		guestID := uuid.New()
		if g.ID != "" {
			parsed, err := uuid.Parse(g.ID)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("invalid guest id %q", g.ID)
			}
			guestID = parsed
		}
		guests = append(guests, models.Guest{
			ID:       guestID,
			Name:     g.Name,
			Role:     g.Role,
			ImageURL: g.ImageURL,
		})
		if g.Avatar != nil {
			img, err := g.Avatar.decode()
			if err != nil {
				return nil, nil, nil, fmt.Errorf("guest %s avatar: %w", guestID, err)
			}
			avatars[guestID.String()] = img
		}
	}

	prices := make([]models.PriceDetail, 0, len(p.PriceDetails))
	for _, pd := range p.PriceDetails {
		prices = append(prices, models.PriceDetail{
			ID:            pd.ID,
			Title:         pd.Title,
			Price:         pd.Price,
			Currency:      pd.Currency,
			Type:          pd.Type,
			Link:          pd.Link,
			StripePriceID: pd.StripePriceID,
		})
	}

	newImages := make([]media.Image, 0, len(p.NewImages))
	for i, img := range p.NewImages {
		decoded, err := img.decode()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("image %d: %w", i, err)
		}
		newImages = append(newImages, decoded)
	}

	event := &models.Event{
		ID:                       id,
		Title:                    p.Title,
		Description:              p.Description,
		Date:                     p.Date,
		TimeRange:                p.TimeRange,
		Location:                 p.Location,
		Hashtags:                 p.Hashtags,
		Guests:                   guests,
		PriceDetails:             prices,
		CreatedBy:                callerID,
		Images:                   p.Images,
		StripeProductID:          p.StripeProductID,
		StripeConnectedAccountID: p.StripeConnectedAccountID,
	}
	return event, newImages, avatars, nil
}

func (p *imagePayload) decode() (media.Image, error) {
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return media.Image{}, fmt.Errorf("invalid base64 image data: %w", err)
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return media.Image{Data: data, ContentType: contentType}, nil
}

func CreateEventHandler(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var payload eventPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		event, newImages, avatars, err := payload.toDomain(userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		created, err := es.CreateOrUpdate(c.Request.Context(), event, newImages, avatars)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(created, "Event created successfully"))
	}
}

func UpdateEventHandler(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		eventID, err := models.NormalizeEventID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		var payload eventPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}
		// The path decides which event is written.
		payload.ID = eventID

		event, newImages, avatars, err := payload.toDomain(userID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		updated, err := es.CreateOrUpdate(c.Request.Context(), event, newImages, avatars)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(updated, "Event updated successfully"))
	}
}

func DeleteEventHandler(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			return
		}

		if err := es.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Event deleted successfully"))
	}
}

func GetFeedHandler(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		events, err := es.GetFeed(c.Request.Context(), userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(events, ""))
	}
}

func GetEventsByStatusHandler(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		status := c.Query("status")
		if status == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("status query parameter is required"))
			return
		}

		events, err := es.GetByStatus(c.Request.Context(), userID, status)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(events, ""))
	}
}

func LikeEventHandler(es *services.EventService) gin.HandlerFunc {
	return interactionHandler(es.Like, "Event liked")
}

func UnlikeEventHandler(es *services.EventService) gin.HandlerFunc {
	return interactionHandler(es.Unlike, "Event unliked")
}

func DislikeEventHandler(es *services.EventService) gin.HandlerFunc {
	return interactionHandler(es.Dislike, "Event disliked")
}

func ReserveEventHandler(es *services.EventService) gin.HandlerFunc {
	return interactionHandler(es.Reserve, "Event reserved")
}

func CancelReservationHandler(es *services.EventService) gin.HandlerFunc {
	return interactionHandler(es.CancelReservation, "Reservation cancelled")
}

// interactionHandler wraps the shared shape of the five interaction routes:
// authenticated caller, event id from the path, no body.
func interactionHandler(action func(ctx context.Context, eventID, userID string) error, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		if err := action(c.Request.Context(), c.Param("id"), userID); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, message))
	}
}

// currentUserID pulls the authenticated user's id out of the claims the auth
// middleware stored. It writes the failure response itself so callers can
// just return.
func currentUserID(c *gin.Context) (string, bool) {
	userClaims, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return "", false
	}
	claims, ok := userClaims.(*helpers.Claims)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid user claims"))
		return "", false
	}
	return claims.UserID(), true
}

// respondServiceError maps service failures onto HTTP statuses: missing
// events are 404, bad input is 400, media backend trouble is 502, anything
// else is 500.
func respondServiceError(c *gin.Context, err error) {
	var batchErr *media.BatchError
	var valErrs validator.ValidationErrors
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrInvalidEventID), errors.Is(err, models.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
	case errors.As(err, &valErrs):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
	case errors.As(err, &batchErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
	}
}
