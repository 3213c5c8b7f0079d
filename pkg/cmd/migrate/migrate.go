package migrate

import (
	"github.com/spf13/cobra"

	"github.com/racedecoder/f1-warehouse-go/log"
	"github.com/racedecoder/f1-warehouse-go/pkg/cmd/bootstrap"
	"github.com/racedecoder/f1-warehouse-go/pkg/config"
	"github.com/racedecoder/f1-warehouse-go/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply the warehouse schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := bootstrap.SetupLogger()
			if err != nil {
				return err
			}
			if err := migrate.MigrateDb(config.DB); err != nil {
				logger.Error("migration failed", log.ErrorField(err))
				return err
			}
			logger.Info("database migrated")
			return nil
		},
	}
	return cmd
}
