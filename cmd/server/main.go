package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/logger"
	"github.com/agenthands/funnelgraph/internal/server"
)

var (
	configPath string
	port       string
	formatJSON bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "funnelgraph",
		Short:         "Campaign strategy graph and ad creative generation server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default $CONFIG_PATH or config/config.toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	serve.Flags().StringVar(&port, "port", "", "listen port, overrides config and $PORT")

	formats := &cobra.Command{
		Use:   "formats",
		Short: "List the creative formats by strategy group",
		RunE:  runFormats,
	}
	formats.Flags().BoolVar(&formatJSON, "json", false, "print as JSON")

	root.AddCommand(serve, formats)
	return root
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	return config.Load(path)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}

	log, err := logger.New(cfg.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, log)
	if err != nil {
		log.Error("server setup failed", "error", err)
		return err
	}
	defer func() {
		if srv.Campaign.Driver != nil {
			_ = srv.Campaign.Driver.Close(context.Background())
		}
	}()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "campaign_id", srv.Campaign.ID)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := srv.Close(shutdownCtx); err != nil {
		log.Warn("background actions still running at exit", "error", err)
	}
	return nil
}

func runFormats(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(model.FormatGroups)
	}
	for _, g := range model.FormatGroups {
		fmt.Fprintln(out, g.Name)
		for _, f := range g.Formats {
			aspect := f.AspectRatio()
			if f.IsCarousel() {
				aspect += ", carousel"
			}
			fmt.Fprintf(out, "  - %s (%s)\n", f, aspect)
		}
	}
	return nil
}
