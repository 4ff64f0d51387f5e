package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacksonzamorano/nebula"
	nebula_db "github.com/jacksonzamorano/nebula/nebula-db"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

type serveFlags struct {
	config    string
	host      string
	port      string
	static    string
	mount     string
	templates string
	debug     bool
	workers   int32
	logLevel  int
	logFile   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula",
		Short: "Minimal HTTP application server",
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	flags := serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a static directory and a health route",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nebula.LoadConfig(flags.config)
			if err != nil {
				return err
			}
			applyFlags(cmd, flags, &cfg)
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&flags.host, "host", "", "host to bind")
	cmd.Flags().StringVarP(&flags.port, "port", "p", "", "port to listen on")
	cmd.Flags().StringVar(&flags.static, "static", "", "directory to serve static files from")
	cmd.Flags().StringVar(&flags.mount, "mount", "", "URL segment the static directory is mounted at")
	cmd.Flags().StringVar(&flags.templates, "templates", "", "templates directory")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "log handler failures")
	cmd.Flags().Int32Var(&flags.workers, "workers", 0, "number of worker goroutines")
	cmd.Flags().IntVar(&flags.logLevel, "log-requests", 0, "request logging level (0-2)")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	return cmd
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, flags serveFlags, cfg *nebula.Config) {
	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Host = flags.host
	}
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("static") {
		cfg.StaticDir = flags.static
	}
	if changed("mount") {
		cfg.StaticMount = flags.mount
	}
	if changed("templates") {
		cfg.TemplatesDir = flags.templates
	}
	if changed("debug") {
		cfg.Debug = flags.debug
	}
	if changed("workers") {
		cfg.WorkerCount = flags.workers
	}
	if changed("log-requests") {
		cfg.LogRequestsLevel = flags.logLevel
	}
	if changed("log-file") {
		cfg.LogFile = flags.logFile
	}
}

// logOutput returns the rotating writer for cfg.LogFile, or nil to keep stderr.
func logOutput(cfg nebula.Config) *lumberjack.Logger {
	if cfg.LogFile == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

func serve(cfg nebula.Config) error {
	if out := logOutput(cfg); out != nil {
		defer out.Close()
		log.SetOutput(out)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := nebula.NewApplicationFromConfig[struct{}](cfg, ctx)
	if err != nil {
		return err
	}
	err = app.Route("/health", func(req *nebula.RouteRequest[struct{}]) (*nebula.HttpResponse, error) {
		return nebula.Jsonify(map[string]any{"status": "ok"}, nebula.StatusOK)
	})
	if err != nil {
		return err
	}

	if os.Getenv("DATABASE_HOST") != "" {
		dbCfg := nebula_db.DatabaseFromEnvironmentWithFallback("localhost", 5432, "postgres", "", "postgres")
		pool, err := nebula_db.Connect(ctx, dbCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		accessLog := nebula_db.NewAccessLog(pool, os.Getenv("DATABASE_ACCESS_LOG_TABLE"))
		if err := accessLog.Migrate(ctx); err != nil {
			return err
		}
		if err := app.AfterRequest(nebula_db.Hook[struct{}](accessLog)); err != nil {
			return err
		}
		err = app.Route("/requests", func(req *nebula.RouteRequest[struct{}]) (*nebula.HttpResponse, error) {
			limit := 50
			if n := req.QueryInt32("limit"); n != nil && *n > 0 {
				limit = int(*n)
			}
			records, err := accessLog.Recent(req.Context, limit)
			if err != nil {
				return nil, err
			}
			return nebula.Jsonify(records, nebula.StatusOK)
		})
		if err != nil {
			return err
		}
		log.Printf("Recording requests to %s:%s/%s", dbCfg.Host, dbCfg.Port, dbCfg.Database)
	}

	return app.Start()
}
