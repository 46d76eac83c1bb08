// Package httpapi assembles the Gin engine: the middleware chain, the PIN
// gate, service wiring and the versioned JSON API.
//
// While the gate is locked only /health, /metrics, /swagger and the auth
// endpoints answer; everything else gets 423.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/medremind-core/internal/config"
	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/http/handlers"
	"github.com/tbourn/medremind-core/internal/http/middleware"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/services"
)

// Used to sign session cookies when the gate is off and SESSION_SECRET is
// unset. Config refuses to enable the gate without a real secret.
const devSessionSecret = "medremind-dev-session-secret-000"

const maxBodyBytes = 1 << 20

// medicationRepoShim satisfies services.MedicationRepo with the repo package
// functions.
type medicationRepoShim struct{}

func (medicationRepoShim) ListMedications(ctx context.Context, s repo.Store) []domain.Medication {
	return repo.ListMedications(ctx, s)
}

func (medicationRepoShim) GetMedication(ctx context.Context, s repo.Store, id string) (*domain.Medication, error) {
	return repo.GetMedication(ctx, s, id)
}

func (medicationRepoShim) AddMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error) {
	return repo.AddMedication(ctx, s, m)
}

func (medicationRepoShim) UpdateMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error) {
	return repo.UpdateMedication(ctx, s, m)
}

func (medicationRepoShim) DeleteMedication(ctx context.Context, s repo.Store, id string) error {
	return repo.DeleteMedication(ctx, s, id)
}

// RegisterRoutes installs the middleware chain on r and mounts every
// endpoint. The order of r.Use calls is significant: tracing and correlation
// come first so later layers can log with the request id, idempotent replays
// are detected before the rate limiter so they bypass it, and the PIN gate
// runs last so 423 responses still carry CORS and security headers.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{handlers.HeaderPIN, handlers.HeaderResetCode},
		}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.Metrics(),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, doseReplayLookup(db)))
	r.Use(middleware.NewRateLimiter(middleware.RateOptions{
		RPS:          cfg.RateRPS,
		Burst:        cfg.RateBurst,
		Key:          middleware.KeyByRoute(),
		PINRoutes:    []string{joinPath(apiBase, "/auth/unlock"), joinPath(apiBase, "/auth/reset")},
		PINPerMinute: cfg.AuthRatePerMin,
	}).Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:     cfg.Security.EnableHSTS,
		HSTSMaxAge:     cfg.Security.HSTSMaxAge,
		NoStore:        true,
		EnablePolicy:   true,
		StaticPrefixes: []string{"/swagger"},
	}))

	secret := cfg.Auth.SessionSecret
	if secret == "" {
		secret = devSessionSecret
	}
	r.Use(
		middleware.Sessions(middleware.SessionOptions{
			Secret: []byte(secret),
			MaxAge: cfg.Auth.SessionMaxAge,
			Secure: cfg.Security.EnableHSTS,
		}),
		middleware.RequirePINUnlock(middleware.GateOptions{
			Enabled: cfg.Auth.GateEnabled,
			Exempt:  []string{joinPath(apiBase, "/auth"), "/health", "/metrics", "/swagger"},
		}),
	)

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	mountAPI(groupWithPrefix(r, apiBase), newHandlers(db, cfg))
}

// newHandlers builds the services over one store and hands them to the
// handler set.
func newHandlers(db *gorm.DB, cfg config.Config) *handlers.Handlers {
	store := repo.NewGormStore(db)
	h := handlers.New(
		services.NewMedicationService(store, medicationRepoShim{}),
		&services.DoseService{Store: store, DB: db, IdempotencyTTL: cfg.IdempotencyTTL},
		&services.ScheduleService{Store: store, Location: cfg.Location},
		&services.ReminderService{
			Store:    store,
			Notifier: services.LogNotifier{},
			Location: cfg.Location,
			Window:   cfg.ReminderWindow,
		},
		&services.AuthService{Store: store, ResetCode: cfg.Auth.ResetCode},
	)
	if cfg.Location != nil {
		h.Location = cfg.Location
	}
	if cfg.ReminderWindow > 0 {
		h.ReminderWindow = cfg.ReminderWindow
	}
	h.GateEnabled = cfg.Auth.GateEnabled
	return h
}

func mountAPI(api *gin.RouterGroup, h *handlers.Handlers) {
	meds := api.Group("/medications")
	meds.GET("", h.ListMedications)
	meds.POST("", h.AddMedication)
	meds.GET("/:id", h.GetMedication)
	meds.PATCH("/:id", h.UpdateMedication)
	meds.DELETE("/:id", h.DeleteMedication)
	meds.POST("/:id/refill", h.RefillMedication)

	api.POST("/doses", h.RecordDose)
	api.GET("/doses", h.ListDoses)

	api.GET("/schedule", h.GetSchedule)
	api.GET("/reminders/due", h.DueReminders)
	api.POST("/reminders/dispatch", h.DispatchReminders)
	api.GET("/refills", h.ListRefillAlerts)

	api.DELETE("/data", h.ClearData)

	auth := api.Group("/auth")
	auth.GET("/status", h.AuthStatus)
	auth.POST("/pin", h.CreatePIN)
	auth.POST("/unlock", h.Unlock)
	auth.POST("/lock", h.Lock)
	auth.POST("/reset", h.ResetPIN)
}

// doseReplayLookup reports whether key already recorded a dose.
func doseReplayLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, services.IdempotencyScopeDoses, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return true, nil
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail and
// the JSON binders turn that into a 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix treats "" and "/" as the engine root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
