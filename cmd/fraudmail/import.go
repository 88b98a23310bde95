package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/znz-systems/fraudmail/internal/email"
	"github.com/znz-systems/fraudmail/internal/mailimport"
	"github.com/znz-systems/fraudmail/internal/store/postgres"
)

func importMboxCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-mbox",
		Usage: "Register the messages of an mbox file as emails of one client and company",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "client-id", Required: true, Usage: "client owning the emails"},
			&cli.StringFlag{Name: "company", Required: true, Usage: "company name, already registered for the client"},
			&cli.StringFlag{Name: "provider", Required: true, Usage: "smtp_provider recorded on every email"},
			&cli.StringFlag{Name: "file", Required: true, Usage: "mbox file to read"},
			&cli.IntFlag{Name: "batch-size", Value: 100, Usage: "emails committed per transaction"},
		},
		Action: runImportMbox,
	}
}

func runImportMbox(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	db, err := postgres.NewDB(cfg.DSN(), postgres.PoolOptions{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	emailService := email.NewService(postgres.NewEmailStore(db), postgres.NewCompanyStore(db), emailOptions(cfg))
	importer, err := mailimport.NewImporter(emailService, mailimport.Options{
		ClientID:  cmd.Int("client-id"),
		Company:   cmd.String("company"),
		Provider:  cmd.String("provider"),
		BatchSize: int(cmd.Int("batch-size")),
	}, slog.Default())
	if err != nil {
		return err
	}

	res, err := importer.Import(ctx, f)
	fmt.Fprintf(cmd.Root().Writer, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	return err
}
