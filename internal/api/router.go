package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/memora/internal/api/handlers"
	"github.com/your-org/memora/internal/api/ws"
	"github.com/your-org/memora/internal/auth"
	"github.com/your-org/memora/internal/queue"
	"github.com/your-org/memora/internal/questions"
	"github.com/your-org/memora/internal/storage"
)

type RouterConfig struct {
	DB        *storage.PostgresStore
	MinIO     *storage.MinIOStore
	Producer  *queue.Producer
	Hub       *ws.Hub
	Questions *questions.Client
	// EmbedFn extracts a face embedding from image bytes. Optional;
	// provided by the external recognition service integration.
	EmbedFn func(imageData []byte) ([]float32, float32, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints (no token yet)
	authH := handlers.NewAuthHandler(cfg.DB)
	r.POST("/v1/auth/register", authH.Register)
	r.POST("/v1/auth/login", authH.Login)

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.TokenMiddleware(cfg.DB))

	v1.GET("/auth/me", authH.Me)

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Patients
	patientH := handlers.NewPatientHandler(cfg.DB)
	v1.POST("/patients", patientH.Create)
	v1.GET("/patients", patientH.List)
	v1.GET("/patients/:id", patientH.Get)
	v1.GET("/patients/:id/events", patientH.Events)

	// Memories & photos
	memoryH := handlers.NewMemoryHandler(cfg.DB, cfg.MinIO, cfg.Questions)
	v1.POST("/patients/:id/memories", memoryH.Create)
	v1.GET("/patients/:id/memories", memoryH.List)
	v1.GET("/patients/:id/memories/:memoryId", memoryH.Get)
	v1.DELETE("/patients/:id/memories/:memoryId", memoryH.Delete)
	v1.POST("/patients/:id/memories/:memoryId/photos", memoryH.AddPhoto)
	v1.GET("/patients/:id/photo", memoryH.Photo)
	v1.GET("/patients/:id/tagged-photos", memoryH.TaggedPhotos)
	v1.POST("/patients/:id/questions", memoryH.Questions)

	// Family members & reference faces
	familyH := handlers.NewFamilyHandler(cfg.DB, cfg.MinIO)
	familyH.EmbedFn = cfg.EmbedFn
	v1.POST("/patients/:id/family", familyH.Create)
	v1.GET("/patients/:id/family", familyH.List)
	v1.GET("/patients/:id/family/:memberId", familyH.Get)
	v1.POST("/patients/:id/family/:memberId/faces", familyH.AddFace)
	v1.GET("/patients/:id/family/:memberId/faces", familyH.ListFaces)
	v1.DELETE("/patients/:id/family/:memberId/faces", familyH.DeleteFaces)

	// Therapy sessions
	sessionH := handlers.NewSessionHandler(cfg.DB)
	v1.POST("/patients/:id/sessions", sessionH.Create)
	v1.GET("/patients/:id/sessions", sessionH.List)

	// Patient transfers
	transferH := handlers.NewTransferHandler(cfg.DB, cfg.Producer)
	v1.POST("/transfers", transferH.Create)
	v1.GET("/transfers", transferH.List)
	v1.POST("/transfers/:id/accept", transferH.Accept)
	v1.POST("/transfers/:id/reject", transferH.Reject)
	v1.POST("/transfers/:id/cancel", transferH.Cancel)
	v1.GET("/transfers/:id/briefing", transferH.Briefing)

	return r
}
