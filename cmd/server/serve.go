package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chakravarthigit/law-backend/internal/api"
	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/chakravarthigit/law-backend/internal/conversation"
	"github.com/chakravarthigit/law-backend/internal/core"
	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/search"
	"github.com/chakravarthigit/law-backend/internal/store"
)

func serveCMD() *cobra.Command {
	var port string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				config.AppConfig.HTTPPort = port
			}
			return runServer()
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port (overrides HTTP_PORT)")
	return serve
}

func runServer() error {
	cfg := config.AppConfig

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dbStore.StartHealthMonitor(ctx, cfg.DBHealthInterval)

	index, err := search.Open(cfg.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	client, closeClient, err := llm.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}
	defer closeClient()
	log.Printf("Using completion provider %s", client.Name())

	manager := conversation.NewManager(
		conversation.NewDurableStore(dbStore),
		conversation.NewTransientStore(),
		dbStore.Ready,
	)
	users := core.NewUserService(dbStore)
	chats := core.NewChatService(manager, dbStore, client, cfg.ChatTimeout)
	research := core.NewResearchService(client)
	documents := core.NewDocumentService(dbStore, index, client, cfg.UploadDir, cfg.MaxUploadBytes)

	// An in-memory index starts empty on every boot.
	if cfg.IndexPath == "" {
		n, err := documents.Reindex(ctx)
		if err != nil {
			log.Printf("Failed to build search index: %v", err)
		} else {
			log.Printf("Indexed %d documents", n)
		}
	}

	apiHandler := api.NewAPIHandler(users, chats, research, documents, dbStore.Ready)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // completions can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting gracefully")
	return nil
}
