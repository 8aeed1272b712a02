package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/chakravarthigit/law-backend/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:   "law-backend",
		Short: "CARA legal assistant API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()

			log.SetFlags(log.LstdFlags | log.Lshortfile)
			if config.AppConfig.Debug() {
				log.Println("Service starting in DEBUG mode")
			}
		},
	}

	serve := serveCMD()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, reindexCMD())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
