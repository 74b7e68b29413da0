// Package httpapi exposes the loremgate services over HTTP/JSON.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/loremgate/internal/cryptox"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/metrics"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	"github.com/dmitrijs2005/loremgate/internal/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Registrar interface {
	RequestRegistration(ctx context.Context, name, email, password string) (*services.RegistrationTicket, error)
	RefreshRegistrationCode(ctx context.Context, oldCode int) (*services.RegistrationTicket, error)
	ConfirmRegistration(ctx context.Context, code int) (int, error)
}

type Meter interface {
	Words(ctx context.Context, appCode, count int) ([]string, error)
	Paragraphs(ctx context.Context, appCode, count int) ([]string, error)
}

type Accounts interface {
	WebLogin(ctx context.Context, accountName string, webCode int32) (*services.LoginResult, error)
	GetClientInfo(ctx context.Context, accountName string, webCode int32) (*models.ClientInfo, error)
	GetClientInfoBySession(ctx context.Context, token string) (*models.ClientInfo, error)
	Deregister(ctx context.Context, appCode int, password string) error
}

type SecretIssuer interface {
	GenerateWrappedSecret() (cryptox.WrappedSecret, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Registration Registrar
	Metering     Meter
	Accounts     Accounts
	Secrets      SecretIssuer
}

type Server struct {
	svc      Services
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewServer(svc Services, m *metrics.Metrics, l logging.Logger) *Server {
	return &Server{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
		logger:   l.With("module", "httpapi"),
	}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler(cfg *config.Config) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, s.loggingMiddleware, s.metricsMiddleware)

	r.HandleFunc("/getWords", s.getWords).Methods(http.MethodGet)
	r.HandleFunc("/getParagraphs", s.getParagraphs).Methods(http.MethodGet)
	r.HandleFunc("/enc", s.generateSecret).Methods(http.MethodGet)
	r.HandleFunc("/deregisterClient", s.deregister).Methods(http.MethodPost)
	r.HandleFunc("/webClientLoginAllowed", s.webLogin).Methods(http.MethodPost)
	r.HandleFunc("/getClientInfo", s.getClientInfo).Methods(http.MethodPost)
	r.HandleFunc("/clientInfo", s.clientInfoBySession).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.RegistrationRate > 0 {
		limiter := NewIPRateLimiter(cfg.RegistrationRate, cfg.RegistrationBurst, s.logger)
		limit = func(h http.HandlerFunc) http.Handler { return limiter.Handler(h) }
	}
	r.Handle("/registerClient", limit(s.registerClient)).Methods(http.MethodPost)
	r.Handle("/updateRegistrationCode", limit(s.updateRegistrationCode)).Methods(http.MethodGet)
	r.Handle("/confirmClientRegistration", limit(s.confirmRegistration)).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	return c.Handler(r)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
