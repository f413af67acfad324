package main

import (
	"context"
	"flag"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/connect"
	"github.com/gatherly/server/internal/container"
	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/models"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds the events collection with sample data so a fresh environment has
// something to render. Event ids are fixed, so reruns update the same
// documents instead of piling up duplicates.

var sampleEvents = []models.Event{
	{
		ID:          uuid.MustParse("0a6f3c52-9a1d-4f06-8a43-2f1f4a6a9b01"),
		Title:       "Sunset Rooftop Mixer",
		Description: "Drinks, music and city views. Bring a friend.",
		Date:        "2026-09-12",
		TimeRange:   "18:00 - 22:00",
		Location:    "Osu, Accra",
		Hashtags:    []string{"networking", "music"},
		PriceDetails: []models.PriceDetail{
			{ID: "standard", Title: "Standard", Price: 50, Currency: "GHS", Type: models.PriceTypeFixed},
		},
	},
	{
		ID:          uuid.MustParse("3b8e7d14-5c2a-4e91-b7d8-6c0a1e2f4c02"),
		Title:       "Makers Market",
		Description: "Local artists and food vendors, all day.",
		Date:        "2026-09-20",
		TimeRange:   "10:00 - 17:00",
		Location:    "Jamestown, Accra",
		Hashtags:    []string{"market", "art", "food"},
	},
	{
		ID:          uuid.MustParse("9c1d2e3f-7b46-4a85-9e10-8d4b5f6a7d03"),
		Title:       "Trail Run & Breakfast",
		Description: "Easy 8k through the botanical gardens, breakfast after.",
		Date:        "2026-10-03",
		TimeRange:   "06:30 - 09:30",
		Location:    "Aburi",
		Hashtags:    []string{"running", "outdoors"},
		PriceDetails: []models.PriceDetail{
			{ID: "entry", Title: "Entry", Price: 0, Currency: "GHS", Type: models.PriceTypeFixed},
			{ID: "donation", Title: "Donation", Price: 20, Currency: "GHS", Type: models.PriceTypeVariable},
		},
	},
}

func main() {
	owner := flag.String("owner", "seed-user", "user id recorded as the event owner")
	friend := flag.String("friend", "seed-friend", "user id used for sample interactions")
	interactions := flag.Bool("interactions", true, "record sample likes and reservations")
	imagesDir := flag.String("images", "", "directory of image files to upload with the first event")
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var uploads []media.Image
	if *imagesDir != "" {
		uploads, err = loadImages(*imagesDir)
		if err != nil {
			logger.Error("Failed to read images directory", "dir", *imagesDir, "error", err)
			os.Exit(1)
		}
		logger.Info("Loaded images", "dir", *imagesDir, "count", len(uploads))
	}

	cld, err := connect.CloudinaryCredentials()
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}

	mongoClient, err := connect.MongoDBConnect()
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := connect.MongoDBDisconnect(); err != nil {
			logger.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	appContainer := container.NewContainer(logger, cld, mongoClient, cfg.MongoDBDatabase, cfg.JWTSecret)
	es := appContainer.EventService

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for i := range sampleEvents {
		event := sampleEvents[i]
		event.CreatedBy = *owner
		var newImages []media.Image
		if i == 0 {
			newImages = uploads
		}
		if _, err := es.CreateOrUpdate(ctx, &event, newImages, nil); err != nil {
			logger.Error("Failed to seed event", "title", event.Title, "error", err)
			os.Exit(1)
		}
		logger.Info("Seeded event", "id", event.StoreKey(), "title", event.Title)
	}

	if *interactions {
		first := sampleEvents[0].StoreKey()
		second := sampleEvents[1].StoreKey()
		if err := es.Like(ctx, first, *friend); err != nil {
			logger.Error("Failed to seed like", "event", first, "error", err)
			os.Exit(1)
		}
		if err := es.Reserve(ctx, second, *friend); err != nil {
			logger.Error("Failed to seed reservation", "event", second, "error", err)
			os.Exit(1)
		}
		logger.Info("Seeded interactions", "user", *friend)
	}

	logger.Info("Seeding complete", "events", len(sampleEvents))
}

// loadImages reads every image file in dir, inferring the content type from
// the file extension. Subdirectories and non-image files are skipped.
func loadImages(dir string) ([]media.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images []media.Image
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contentType := mime.TypeByExtension(filepath.Ext(entry.Name()))
		if !strings.HasPrefix(contentType, "image/") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		images = append(images, media.Image{Data: data, ContentType: contentType})
	}
	return images, nil
}
