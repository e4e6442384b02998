package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mongodb "github.com/avvvet/cardfit-services/internal/db"
	"github.com/avvvet/cardfit-services/internal/ranksvc/db"
	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
)

var importCmd = &cobra.Command{
	Use:     "import",
	Short:   "Upsert a catalog file into the Postgres or Mongo card store",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		return runImport(cmd.Context(), cmd, config)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("cards", "c", "", "catalog json file")
	importCmd.Flags().StringP("store", "s", "postgres", "target store: postgres or mongo")
	importCmd.Flags().String("postgres-url", os.Getenv("POSTGRES_URL"), "postgres connection url")
	importCmd.Flags().String("mongodb-uri", os.Getenv("MONGODB_URI"), "mongodb connection uri")
}

// openWriter connects to the target store. The returned func releases it.
func openWriter(ctx context.Context, config *Config) (store.CardWriter, func(), error) {
	switch config.Store {
	case "postgres":
		if config.PostgresURL == "" {
			return nil, nil, fmt.Errorf("--postgres-url is required")
		}
		pool, err := db.Connect(config.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresCardStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	case "mongo":
		if config.MongoURI == "" {
			return nil, nil, fmt.Errorf("--mongodb-uri is required")
		}
		mdb, err := mongodb.ConnectToDB(ctx, config.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		if err := mongodb.CreateUniqueIndex(ctx, mdb, store.CardsCollection, "id"); err != nil {
			log.Warnf("unable to ensure cards index: %s", err)
		}
		return store.NewMongoCardStore(mdb), func() { _ = mongodb.Disconnect(context.Background(), mdb) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", config.Store)
	}
}

func runImport(ctx context.Context, cmd *cobra.Command, config *Config) error {
	cards, err := loadCatalog(ctx, config.Cards)
	if err != nil {
		return err
	}

	w, closeStore, err := openWriter(ctx, config)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := w.UpsertCards(ctx, cards)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d cards into %s\n", n, config.Store)
	return nil
}
