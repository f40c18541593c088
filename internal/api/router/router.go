package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/havenhealth/member-chat-platform/internal/http/handlers"
	httpmiddleware "github.com/havenhealth/member-chat-platform/internal/http/middleware"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	MemberAuthSecret   string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// WidgetScriptURL, when set, serves a public /widget.js redirect so the
	// portal page has a stable same-origin script path.
	WidgetScriptURL string

	// Requests per second and burst for the chat API, per IP. Zero disables
	// rate limiting.
	RateLimit      float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WidgetScriptURL != "" {
			public.Get("/widget.js", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, cfg.WidgetScriptURL, http.StatusFound)
			})
		}
	})

	// Member-authenticated chat API
	if cfg.ChatHandler != nil {
		r.Route("/api/chat", func(r chi.Router) {
			if cfg.RateLimit > 0 {
				r.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))
			}
			r.Use(httpmiddleware.MemberJWT(cfg.MemberAuthSecret))

			r.Get("/state", cfg.ChatHandler.State)
			r.Get("/messages", cfg.ChatHandler.Messages)
			r.Get("/hours", cfg.ChatHandler.Hours)
			r.Get("/terms", cfg.ChatHandler.Terms)
			r.Get("/embed", cfg.ChatHandler.Embed)
			r.Get("/stream", cfg.ChatHandler.Stream)
			r.Post("/start", cfg.ChatHandler.Start)
			r.Post("/open", cfg.ChatHandler.Open)
			r.Post("/end", cfg.ChatHandler.End)
			r.Post("/messages", cfg.ChatHandler.SendMessage)
			r.Post("/switch-plan", cfg.ChatHandler.SwitchPlan)
			r.Post("/reset", cfg.ChatHandler.Reset)
			r.Post("/refresh", cfg.ChatHandler.Refresh)
			r.Post("/cobrowse/start", cfg.ChatHandler.StartCobrowse)
			r.Post("/cobrowse/end", cfg.ChatHandler.EndCobrowse)
		})
	}

	return r
}
