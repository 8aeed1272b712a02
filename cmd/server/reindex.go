package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/chakravarthigit/law-backend/internal/core"
	"github.com/chakravarthigit/law-backend/internal/search"
	"github.com/chakravarthigit/law-backend/internal/store"
)

func reindexCMD() *cobra.Command {
	var indexPath string
	reindex := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the document search index from the database and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexPath == "" {
				indexPath = config.AppConfig.IndexPath
			}
			if indexPath == "" {
				return errors.New("no index path: set INDEX_PATH or pass --index")
			}

			dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer dbStore.Close()

			index, err := search.Open(indexPath)
			if err != nil {
				return err
			}
			defer index.Close()

			log.Println("Starting document reindex...")
			documents := core.NewDocumentService(dbStore, index, nil, config.AppConfig.UploadDir, config.AppConfig.MaxUploadBytes)
			n, err := documents.Reindex(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			log.Printf("Reindex complete. Indexed %d documents.", n)
			return nil
		},
	}
	reindex.Flags().StringVar(&indexPath, "index", "", "index directory (overrides INDEX_PATH)")
	return reindex
}
