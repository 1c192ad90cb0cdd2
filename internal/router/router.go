package router

import (
	"database/sql"
	"net/http"
	"time"

	"medication-adherence/docs"
	mem "medication-adherence/internal/adapters/storage/memory"
	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/carelinks"
	"medication-adherence/internal/domain/confirmations"
	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/domain/risk"
	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Clock  *clock.Clock       // nil => reloj real en UTC
	Logger *logger.ZeroLogger // nil => sin logs

	// Candado del cierre diario; nil => candado en proceso.
	Locker adherence.Locker

	RequestTimeout time.Duration // 0 => 15s
	RiskWindow     time.Duration // 0 => 30 días
}

// App agrupa el handler HTTP y los servicios que también usan la CLI,
// el cierre diario y el consumidor de lecturas.
type App struct {
	Handler http.Handler

	Medications   *medications.Service
	Doses         *doses.Service
	Confirmations *confirmations.Service
	Adherence     *adherence.Service
	Readings      *readings.Service
	CareLinks     *carelinks.Service
	Risk          *risk.Service
}

func NewRouter(opts Options) http.Handler {
	return New(opts).Handler
}

func New(opts Options) *App {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var (
		medRepo  medications.Repository
		confRepo confirmations.Repository
		factRepo adherence.Repository
		recRepo  readings.Repository
		linkRepo carelinks.Repository
	)

	if opts.DB != nil {
		medRepo = pg.NewMedicationsRepo(opts.DB)
		confRepo = pg.NewConfirmationsRepo(opts.DB)
		factRepo = pg.NewAdherenceRepo(opts.DB)
		recRepo = pg.NewReadingsRepo(opts.DB)
		linkRepo = pg.NewCareLinksRepo(opts.DB)
	} else {
		medRepo = mem.NewMedicationRepo()
		confRepo = mem.NewConfirmationRepo()
		factRepo = mem.NewAdherenceRepo()
		recRepo = mem.NewReadingRepo()
		linkRepo = mem.NewCareLinkRepo()
	}

	// Services por módulo
	medsSvc := medications.NewService(medRepo)
	medsSvc.SetNow(clk.Now)

	confSvc := confirmations.NewService(confRepo, medsSvc, clk)
	dosesSvc := doses.NewService(medsSvc, confSvc, clk)
	adhSvc := adherence.NewService(factRepo, dosesSvc, opts.Locker, clk)

	recSvc := readings.NewService(recRepo)
	recSvc.SetNow(clk.Now)

	linksSvc := carelinks.NewService(linkRepo)
	linksSvc.SetNow(clk.Now)

	riskSvc := risk.NewService(adhSvc, recSvc, linksSvc, clk, opts.RiskWindow)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log.Zerolog()))
	r.Use(middleware.Recover(log.Zerolog()))
	r.Use(chimw.Timeout(timeout))

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	docs.SwaggerInfo.BasePath = "/"
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Rutas por módulo; carelinks decide quién ve o gestiona a cada adulto mayor
	medications.RegisterRoutes(r, medsSvc, linksSvc)
	doses.RegisterRoutes(r, dosesSvc, linksSvc)
	confirmations.RegisterRoutes(r, confSvc)
	adherence.RegisterRoutes(r, adhSvc, linksSvc)
	readings.RegisterRoutes(r, recSvc, linksSvc)
	risk.RegisterRoutes(r, riskSvc, linksSvc)
	carelinks.RegisterRoutes(r, linksSvc)

	return &App{
		Handler:       r,
		Medications:   medsSvc,
		Doses:         dosesSvc,
		Confirmations: confSvc,
		Adherence:     adhSvc,
		Readings:      recSvc,
		CareLinks:     linksSvc,
		Risk:          riskSvc,
	}
}
