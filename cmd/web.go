/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"preflight/db"
	"preflight/graph"
	"preflight/logging"
	"preflight/routes"
	"preflight/static"
	"preflight/templates"
)

var CmdStart = &cli.Command{
	Name:    "start",
	Aliases: []string{"run"},
	Usage:   "Start the web console",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "port",
			Value: "8080",
			Usage: "the web server port",
		},
		&cli.StringFlag{
			Name:    "database-url",
			Sources: cli.EnvVars("DATABASE_URL"),
			Usage:   "PostgreSQL connection string; omit to keep saved credentials in memory only",
		},
		&cli.StringFlag{
			Name:  "graph-api-base",
			Usage: "override the Graph API base URL (for testing against a stub)",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Value: false,
			Usage: "enables development mode (for templates)",
		},
	},
	Action: start,
}

func start(ctx context.Context, cmd *cli.Command) error {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	logging.Init()
	logger := logging.Logger(logging.SourceApp)

	var store routes.CredentialStore = routes.NewMemoryStore()
	if databaseURL := cmd.String("database-url"); databaseURL != "" {
		// db reads the connection string from the environment.
		os.Setenv("DATABASE_URL", databaseURL)

		logger.Info("Connecting to database")
		if err := db.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		logger.Info("Syncing database schema")
		if err := db.SyncSchema(); err != nil {
			return fmt.Errorf("failed to sync schema: %w", err)
		}

		store = db.SettingsStore{}
	} else {
		logger.Info("No database configured, saved credentials are kept in memory")
	}

	graphBase := cmd.String("graph-api-base")
	if graphBase == "" {
		graphBase = graph.DefaultBaseURL
	}
	console := routes.NewConsole(store, graphBase)

	if cmd.Bool("dev") {
		flamego.SetEnv(flamego.EnvTypeDev)
	}
	f := flamego.New()

	fs, err := template.EmbedFS(templates.Templates, ".", []string{".html"})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	f.Use(flamego.Recovery())
	f.Use(session.Sessioner())
	f.Use(csrf.Csrfer())
	f.Use(template.Templater(template.Options{
		FileSystem: fs,
	}))
	f.Use(flamego.Static(flamego.StaticOptions{
		FileSystem: http.FS(static.Static),
	}))
	f.Use(routes.RequestLogger)
	f.Use(routes.CSRFInjector())
	f.Use(routes.FlashInjector())
	f.Use(routes.NoCacheHeaders())

	// Public routes (no authentication required)
	f.Get("/login", routes.LoginForm)
	f.Post("/login", routes.Login)

	// Protected routes (require authentication)
	f.Group("", func() {
		f.Get("/", console.Home)
		f.Get("/logout", routes.Logout)

		f.Get("/config", console.ConfigPage)
		f.Post("/config/load", console.LoadConfig)
		f.Post("/config/save", console.SaveConfig)
		f.Get("/api/config", console.APIConfig)

		f.Get("/numbers", console.NumbersPage)
		f.Post("/numbers/add", console.AddNumber)
		f.Post("/numbers/reload", console.ReloadNumbers)
		f.Post("/numbers/verify", console.VerifyNumber)
		f.Post("/numbers/{id}/request_code", console.RequestCode)
		f.Post("/numbers/{id}/register", console.RegisterNumber)
		f.Post("/numbers/{id}/delete", console.DeleteNumber)

		f.Get("/manual", console.ManualPage)
		f.Post("/manual/verify", console.ManualVerify)

		f.Get("/status", console.StatusPage)

		f.Get("/registration", console.RegistrationPage)
		f.Post("/registration/load", console.LoadWABAs)
		f.Post("/registration/select", console.SelectWABA)
		f.Post("/registration/numbers", console.LoadWABANumbers)
		f.Post("/registration/{id}/register", console.RegisterWABANumber)

		f.Get("/signup", console.SignupPage)
		f.Post("/signup/select", console.SelectSignupNumber)
		f.Post("/signup/remove", console.RemoveSignupNumber)
		f.Post("/signup/event", console.SignupEvent)
	}, routes.RequireAuth)

	port := cmd.String("port")
	logger.Info("Starting web server", "port", port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%s", port),
		Handler:      f,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return srv.ListenAndServe()
}
