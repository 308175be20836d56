package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"templatecanvas/core"
	"templatecanvas/handlers/api/sessions"
	"templatecanvas/handlers/api/templates"
	"templatecanvas/session"
	"templatecanvas/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func setupRouter(store core.TemplateStore, manager *session.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	corsOptions := cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "" {
				return false
			}
			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}
			switch parsed.Scheme {
			case "http", "https":
				switch parsed.Hostname() {
				case "localhost", "127.0.0.1", "[::1]":
					return true
				}
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOptions))

	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", templates.HandleList(store))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", templates.HandleGet(store))
			r.Delete("/", templates.HandleDelete(store))
		})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", sessions.HandleOpen(manager))
		r.Post("/upload", sessions.HandleUpload(manager))
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Delete("/", sessions.HandleClose(manager))
			r.Get("/scene", sessions.HandleGetScene(manager))
			r.Post("/undo", sessions.HandleUndo(manager))
			r.Post("/redo", sessions.HandleRedo(manager))
			r.Post("/background", sessions.HandleLoadBackground(manager))
			r.Post("/save", sessions.HandleSave(manager))
			r.Get("/export", sessions.HandleExport(manager))

			r.Route("/layers", func(r chi.Router) {
				r.Post("/", sessions.HandleAddLayer(manager))
				r.Route("/{layerId}", func(r chi.Router) {
					r.Patch("/", sessions.HandleUpdateLayer(manager))
					r.Delete("/", sessions.HandleRemoveLayer(manager))
					r.Post("/format", sessions.HandleFormat(manager))
					r.Put("/text", sessions.HandleCommitText(manager))
					r.Post("/revert", sessions.HandleRevertText(manager))
					r.Post("/reorder", sessions.HandleReorder(manager))
					r.Post("/duplicate", sessions.HandleDuplicate(manager))
					r.Put("/visibility", sessions.HandleSetVisibility(manager))
					r.Put("/lock", sessions.HandleSetLocked(manager))
				})
			})
		})
	})

	return r
}

func waitForShutdown() {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down")
	os.Exit(0)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment")
	}

	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3003", "Set the server listen address")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	store := stores.GetStore()
	manager := session.NewManager(store)

	r := setupRouter(store, manager)

	logrus.WithField("addr", *listenAddr).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown()
}
