package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/sarathi/internal/adapter/repository/postgres"
	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/auth"
	"github.com/iho/sarathi/internal/infrastructure/postgres"
	"github.com/iho/sarathi/internal/usecase"
)

func tokenCmd() *cobra.Command {
	var (
		userID string
		phone  string
		admin  bool
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("a signing secret is required (--secret or JWT_SECRET)")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(domain.Actor{UserID: userID, Phone: phone, IsAdmin: admin})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to embed")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number to embed")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant admin")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// userCreator is the slice of the user repository the CLI writes through.
type userCreator interface {
	Create(ctx context.Context, user *domain.User) error
}

type newUserInput struct {
	ID        string
	Phone     string
	StateCode string
	Balance   string
	Admin     bool
	Region    string
}

func createUser(ctx context.Context, repo userCreator, idGen usecase.IDGenerator, in newUserInput, now time.Time) (*domain.User, error) {
	phone, err := domain.NormalizePhone(in.Phone, in.Region)
	if err != nil {
		return nil, err
	}

	balance := domain.DefaultBalance
	if in.Balance != "" {
		balance, err = decimal.NewFromString(in.Balance)
		if err != nil || balance.IsNegative() {
			return nil, fmt.Errorf("%w: opening balance %q", domain.ErrInvalidAmount, in.Balance)
		}
	}

	id := in.ID
	if id == "" {
		id = idGen.Generate()
	}

	user := &domain.User{
		ID:             id,
		Phone:          phone,
		StateCode:      in.StateCode,
		IsAdmin:        in.Admin,
		Balance:        decimal.NewNullDecimal(balance),
		OpeningBalance: balance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User administration (direct database access)",
	}

	var (
		databaseURL string
		in          newUserInput
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user with an opening balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, databaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := createUser(ctx, postgresRepo.NewUserRepository(pool), postgresRepo.NewULIDGenerator(), in, time.Now().UTC())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"id":         user.ID,
				"phone":      user.Phone,
				"state_code": user.StateCode,
				"is_admin":   user.IsAdmin,
				"balance":    user.OpeningBalance,
			})
		},
	}

	create.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	create.Flags().StringVar(&in.ID, "id", "", "User id (generated when empty)")
	create.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	create.Flags().StringVar(&in.StateCode, "state", "", "Two-letter state code")
	create.Flags().StringVar(&in.Balance, "balance", "", "Opening balance (defaults to the standard starting balance)")
	create.Flags().BoolVar(&in.Admin, "admin", false, "Create as admin")
	create.Flags().StringVar(&in.Region, "region", envOr("DEFAULT_REGION", "IN"), "Region for numbers without a country code")
	_ = create.MarkFlagRequired("phone")

	cmd.AddCommand(create)
	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations (direct database access)",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&path, "path", envOr("MIGRATIONS_PATH", "file://migrations"), "Migrations directory or source URL")

	logger := func(cmd *cobra.Command) zerolog.Logger {
		return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).With().Timestamp().Logger()
	}
	requireURL := func() error {
		if databaseURL == "" {
			return errors.New("a database URL is required (--database-url or DATABASE_URL)")
		}
		return nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireURL(); err != nil {
				return err
			}
			return postgres.RunMigrations(databaseURL, path, logger(cmd))
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireURL(); err != nil {
				return err
			}
			return postgres.RunMigrationsDown(databaseURL, path, logger(cmd))
		},
	}

	cmd.AddCommand(up, down)
	return cmd
}
