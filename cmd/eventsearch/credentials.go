package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/observe"
	"github.com/PeterSurowski/ai-event-search/store"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage agent credentials",
}

var credentialsIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a credential scoped to a set of services",
	Long: `Issue a new credential and print its secret once.

Only the SHA-256 digest of the secret is stored, so the secret cannot be
shown again. Pass --service once per service, or --service '*' for access
to every service.

Examples:
  eventsearch credentials issue --name checkout-agent --service checkout --service payments
  eventsearch credentials issue --name oncall-bot --service '*' --ttl 720h`,
	Args: cobra.NoArgs,
	RunE: runCredentialsIssue,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsIssueCmd)

	f := credentialsIssueCmd.Flags()
	f.String("name", "", "Human-readable credential name (required)")
	f.StringSlice("service", nil, "Service the credential may read (repeatable, required)")
	f.String("created-by", "", "Operator issuing the credential")
	f.Duration("ttl", 0, "Lifetime of the credential; 0 never expires")
	_ = credentialsIssueCmd.MarkFlagRequired("name")
	_ = credentialsIssueCmd.MarkFlagRequired("service")
}

func runCredentialsIssue(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	name, _ := f.GetString("name")
	services, _ := f.GetStringSlice("service")
	createdBy, _ := f.GetString("created-by")
	ttl, _ := f.GetDuration("ttl")

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := observe.NewLoggerWithWriter(cfg.Observe.Logging.Level, cmd.ErrOrStderr())

	db, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	secretValue, rec, err := auth.Issue(auth.IssueRequest{
		Name:               name,
		AuthorizedServices: services,
		CreatedBy:          createdBy,
		TTL:                ttl,
	}, time.Now())
	if err != nil {
		return err
	}
	if err := store.NewCredentialStore(db).Create(ctx, rec); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	logger.Info(ctx, "credential issued",
		observe.F("credential_id", rec.ID),
		observe.F("name", rec.Name),
		observe.F("authorized_services", rec.AuthorizedServices))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:       %s\n", rec.ID)
	fmt.Fprintf(out, "name:     %s\n", rec.Name)
	fmt.Fprintf(out, "services: %v\n", rec.AuthorizedServices)
	if rec.ExpiresAt != nil {
		fmt.Fprintf(out, "expires:  %s\n", rec.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "secret:   %s\n", secretValue)
	fmt.Fprintln(out, "\nStore the secret now; it cannot be shown again.")
	return nil
}
