package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	Long: `Apply the relational schema, and the pgvector schema when the pgvector
backend is selected. Every statement is idempotent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logging.Sync(logger) }()

		ctx := cmd.Context()
		db, err := connectDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Vector.Backend == config.VectorBackendPGVector {
			if err := pgvector.New(db.DB, logger).InitSchema(ctx); err != nil {
				return err
			}
		}

		logger.Info("schema applied", zap.String("vector_backend", cfg.Vector.Backend))
		cmd.Println("schema applied")
		return nil
	},
}
