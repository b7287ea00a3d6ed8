package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
	"github.com/your-org/memora/internal/portal"
	"github.com/your-org/memora/internal/queue"
	"github.com/your-org/memora/internal/recognition"
	"github.com/your-org/memora/internal/related"
	"github.com/your-org/memora/internal/session"
	"github.com/your-org/memora/internal/slideshow"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	portalURL := flag.String("portal", "http://localhost:8080", "portal base URL")
	listenPort := flag.Int("port", 8090, "local control API port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Memora companion", "portal", *portalURL, "port", *listenPort)

	// Local session state
	state, err := session.OpenStateStore(cfg.Companion.StatePath)
	if err != nil {
		slog.Error("open state store", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	sessions := session.NewManager()
	if sctx, err := state.Load(); err == nil {
		sessions.Set(sctx)
		slog.Info("rehydrated patient session", "patient", sctx.PatientName)
	} else if errors.Is(err, session.ErrNoSavedSession) {
		slog.Info("no saved session, waiting for caregiver login")
	} else {
		slog.Warn("load saved session", "error", err)
	}

	// NATS producer for recognition attempt outcomes
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core recognition flow
	gateway := recognition.NewHTTPGateway(cfg.Recognition)
	recog := recognition.NewSession(gateway, sessions, cfg.Companion.PhraseInterval)

	client := portal.NewClient(*portalURL, sessions)
	aggregator := related.NewAggregator(client, sessions)

	show := slideshow.NewController(cfg.Companion.SlideshowInterval)

	recog.OnMatch = func(sctx session.Context, identity models.Identity) {
		aggregator.Load(ctx, sctx, identity)
	}
	recog.OnReset = func() {
		aggregator.Clear()
		show.Close()
	}
	recog.OnChange = func(snap recognition.Snapshot) {
		if snap.Phase != recognition.PhaseResolved || snap.Result == nil {
			return
		}
		sctx, _ := sessions.Snapshot()
		if !sctx.Valid() {
			return
		}
		publishOutcome(ctx, producer, sctx.PatientID, snap.Result)
	}
	aggregator.OnBundle = func(b related.Bundle) {
		show.SetPhotos(b.TaggedPhotos)
	}

	// Local control API for the device UI
	router := controlRouter(ctx, state, sessions, recog, aggregator, show)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *listenPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("companion control API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down companion...")
	cancel()
	recog.Reset()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("companion stopped")
}

// publishOutcome reports one resolved recognition attempt to the portal
// via NATS. Best effort; a publish failure never disturbs the flow.
func publishOutcome(ctx context.Context, producer *queue.Producer, patientID uuid.UUID, result *models.RecognitionResult) {
	event := models.RecognitionEvent{
		PatientID: patientID,
		Matched:   result.Matched,
		ErrorKind: result.ErrorKind,
		Timestamp: time.Now(),
	}
	if result.Identity != nil {
		id := result.Identity.ID
		event.IdentityID = &id
		event.Name = result.Identity.Name
		event.Confidence = result.Identity.Confidence
	}

	pubCtx, pubCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pubCancel()
	if err := producer.PublishRecognition(pubCtx, patientID.String(), event); err != nil {
		slog.Warn("publish recognition event failed", "error", err)
	}
}

func controlRouter(ctx context.Context, state *session.StateStore, sessions *session.Manager, recog *recognition.Session, aggregator *related.Aggregator, show *slideshow.Controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Session
	r.POST("/session", func(c *gin.Context) {
		var req struct {
			PatientID   string `json:"patient_id" binding:"required,uuid"`
			PatientName string `json:"patient_name" binding:"required"`
			Token       string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sctx := session.Context{
			PatientID:   uuid.MustParse(req.PatientID),
			PatientName: req.PatientName,
			Token:       req.Token,
		}
		sessions.Set(sctx)
		if err := state.Save(sctx); err != nil {
			slog.Warn("persist session state", "error", err)
		}
		recog.Reset()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.DELETE("/session", func(c *gin.Context) {
		sessions.Clear()
		if err := state.Clear(); err != nil {
			slog.Warn("clear session state", "error", err)
		}
		recog.Reset()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Recognition
	r.POST("/capture", func(c *gin.Context) {
		image, err := io.ReadAll(io.LimitReader(c.Request.Body, 16<<20))
		if err != nil || len(image) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image body required"})
			return
		}
		// The attempt outlives this request: 202 is returned before the
		// gateway round trip finishes, so the capture runs on the daemon
		// context, not the request context.
		recog.Capture(ctx, image)
		c.JSON(http.StatusAccepted, gin.H{"status": "capturing"})
	})

	r.POST("/reset", func(c *gin.Context) {
		recog.Reset()
		c.JSON(http.StatusOK, gin.H{"status": "idle"})
	})

	r.GET("/state", func(c *gin.Context) {
		snap := recog.Snapshot()
		resp := gin.H{
			"phase":           snap.Phase.String(),
			"phrase":          snap.Phrase,
			"transient_error": snap.TransientError,
			"reauth_required": snap.ReauthRequired,
			"result":          snap.Result,
			"slideshow": gin.H{
				"index":   show.Index(),
				"playing": show.Playing(),
				"total":   show.Len(),
				"current": show.Current(),
			},
		}
		if bundle := aggregator.Current(); bundle != nil {
			resp["related"] = bundle
		}
		c.JSON(http.StatusOK, resp)
	})

	// Slideshow
	r.POST("/slideshow/next", func(c *gin.Context) {
		show.Advance(1)
		c.JSON(http.StatusOK, gin.H{"index": show.Index()})
	})
	r.POST("/slideshow/prev", func(c *gin.Context) {
		show.Advance(-1)
		c.JSON(http.StatusOK, gin.H{"index": show.Index()})
	})
	r.POST("/slideshow/toggle", func(c *gin.Context) {
		show.TogglePlay()
		c.JSON(http.StatusOK, gin.H{"playing": show.Playing()})
	})
	r.POST("/slideshow/jump", func(c *gin.Context) {
		var req struct {
			Index int `json:"index"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		show.JumpTo(req.Index)
		c.JSON(http.StatusOK, gin.H{"index": show.Index()})
	})
	r.POST("/slideshow/close", func(c *gin.Context) {
		show.Close()
		c.JSON(http.StatusOK, gin.H{"status": "closed"})
	})

	return r
}
