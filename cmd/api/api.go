package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golbarg/docs" //this is required to generate swagger docs
	"golbarg/internal/auth"
	"golbarg/internal/domain/storage"
	"golbarg/internal/mailer"
	"golbarg/internal/notifications"
	"golbarg/internal/payments"
	"golbarg/internal/ratelimiter"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	payments      *payments.Manager
	push          notifications.PushSender
	rateLimiter   ratelimiter.Limiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	payment     paymentConfig
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret        string
	refreshSecret string
	iss           string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type paymentConfig struct {
	callbackURL string
	zarinpal    zarinpalConfig
	mellat      mellatConfig
}

type zarinpalConfig struct {
	merchantID  string
	requestURL  string
	verifyURL   string
	startPayURL string
}

type mellatConfig struct {
	terminalID  string
	username    string
	password    string
	gatewayURL  string
	startPayURL string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Payment gateway entry point. The provider redirects the parent's
		// browser back here, so it must stay reachable without a token.
		r.HandleFunc("/payment-gateway", app.paymentGatewayHandler)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})
		r.Put("/users/activate/{token}", app.activateUserHandler)

		// Published news and the gallery back the public marketing site.
		r.Get("/news", app.listNewsHandler)
		r.Get("/news/{newsID}", app.getNewsHandler)
		r.Get("/gallery", app.listGalleryHandler)

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/me", app.getProfileHandler)
			r.Put("/", app.updateUserHandler)
			r.Post("/avatar", app.uploadAvatarHandler)
			r.Post("/logout", app.logoutHandler)
			r.Post("/push-tokens", app.savePushTokenHandler)
			r.Delete("/push-tokens", app.removePushTokenHandler)
		})

		r.Route("/children", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.listChildrenHandler)
			r.Route("/{childID}", func(r chi.Router) {
				r.Get("/", app.getChildHandler)
				r.Get("/reports", app.listReportsHandler)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/mine", app.myPaymentsHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireAdmin)

			r.Post("/users", app.adminCreateParentHandler)
			r.Get("/users", app.adminListParentsHandler)

			r.Route("/children", func(r chi.Router) {
				r.Post("/", app.createChildHandler)
				r.Get("/", app.adminListChildrenHandler)
				r.Route("/{childID}", func(r chi.Router) {
					r.Patch("/", app.updateChildHandler)
					r.Delete("/", app.deleteChildHandler)
					r.Post("/avatar", app.uploadChildAvatarHandler)
					r.Post("/reports", app.createReportHandler)
				})
			})
			r.Delete("/reports/{reportID}", app.deleteReportHandler)

			r.Route("/news", func(r chi.Router) {
				r.Post("/", app.createNewsHandler)
				r.Get("/", app.adminListNewsHandler)
				r.Route("/{newsID}", func(r chi.Router) {
					r.Patch("/", app.updateNewsHandler)
					r.Put("/publish", app.publishNewsHandler)
					r.Delete("/", app.deleteNewsHandler)
				})
			})

			r.Route("/gallery", func(r chi.Router) {
				r.Post("/", app.uploadGalleryItemHandler)
				r.Route("/{itemID}", func(r chi.Router) {
					r.Put("/featured", app.setGalleryFeaturedHandler)
					r.Delete("/", app.deleteGalleryItemHandler)
				})
			})

			r.Get("/payments", app.adminListPaymentsHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
