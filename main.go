package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"whiteboard/app"
	"whiteboard/brush"
	"whiteboard/config"
	"whiteboard/handlers/api/canvases"
	"whiteboard/handlers/websocket"
	authmw "whiteboard/middleware"
	"whiteboard/stores"
)

func setupRouter(board canvases.Board, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	corsOptions := cors.Options{
		AllowedOrigins: []string{"tauri://localhost"},
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
			case "tauri":
				return parsed.Hostname() == "localhost"
			}

			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	r.Use(cors.Handler(corsOptions))

	r.Route("/api", func(r chi.Router) {
		r.Get("/canvas", canvases.HandleGetCanvas(board))
		r.Get("/canvases", canvases.HandleListCanvases(board))
		r.Get("/brushes", canvases.HandleListBrushes(board))

		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthJWT(jwtSecret))
			r.Put("/canvas/attributes/{key}", canvases.HandleSetAttribute(board))
			r.Post("/tools/{name}", canvases.HandleSelectTool(board))
			r.Post("/input", canvases.HandleInput(board))
			r.Put("/strokes/{id}", canvases.HandleUpdateStroke(board))
		})
	})

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server) {
	SignalC := make(chan os.Signal, 1)
	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-SignalC

	logrus.Info("Shutting down...")
	ioo.Close(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown failed")
	}
}

func loadTemplates(cfg config.Config) []brush.Attributes {
	if cfg.BrushesPath == "" {
		return nil
	}
	templates, err := brush.LoadTemplates(cfg.BrushesPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load brush templates")
	}
	return templates
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	issueToken := flag.String("issue-token", "", "Print a bearer token for the given subject and exit.")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if *issueToken != "" {
		if cfg.JWTSecret == "" {
			logrus.Fatal("JWT_SECRET must be set to issue tokens")
		}
		token, err := authmw.IssueToken([]byte(cfg.JWTSecret), *issueToken, 7*24*time.Hour)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to issue token")
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()
	store, err := stores.Open(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open store")
	}

	board, err := app.New(ctx, app.Options{
		Store:      store,
		Templates:  loadTemplates(cfg),
		CanvasName: cfg.CanvasName,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize whiteboard")
	}

	r := setupRouter(board, []byte(cfg.JWTSecret))
	ioo := websocket.SetupSocketIO(board, board.Bus)
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo)
}
