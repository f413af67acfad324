package container

import (
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/models"
	"github.com/gatherly/server/internal/services"
	"github.com/gatherly/server/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Logger     *slog.Logger
	Cloudinary *cloudinary.Cloudinary
	// Database clients
	MongoDBClient *mongo.Client
	EventService  *services.EventService
	JWTSecret     string
}

// NewContainer creates a new dependency injection container
func NewContainer(
	logger *slog.Logger,
	cloudinary *cloudinary.Cloudinary,
	mongoDBClient *mongo.Client,
	dbName, jwtSecret string,
) *Container {
	// Initialize repositories
	st := store.NewMongoStore(mongoDBClient, dbName)
	repo := models.StoreNewRepo(st)
	blobs := media.NewCloudinaryStore(cloudinary)
	eventService := services.NewEventService(repo, repo, media.NewUploader(blobs), media.NewLifecycle(blobs))

	return &Container{
		Logger:        logger,
		Cloudinary:    cloudinary,
		MongoDBClient: mongoDBClient,
		EventService:  eventService,
		JWTSecret:     jwtSecret,
	}
}
