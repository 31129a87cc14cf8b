package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/config"
	"verisight-backend/internal/shared/storage/db"
	"verisight-backend/internal/users"
)

type createUserFlags struct {
	username  string
	password  string
	email     string
	firstName string
	lastName  string
	migrate   bool
}

func newRootCommand() *cobra.Command {
	var f createUserFlags

	cmd := &cobra.Command{
		Use:           "create-user",
		Short:         "Create a local VeriSight account and print a session token",
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.username == "" || f.password == "" {
				return errors.New("--username and --password are required")
			}
			ctx := cmd.Context()
			cfg := config.Load()

			sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultCLIOptions()))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer sqlDB.Close()
			if f.migrate {
				if err := db.RunMigrations(ctx, sqlDB); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
			}

			signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env, cfg.SessionTTL)
			if err != nil {
				return err
			}
			svc := users.NewService(&users.PGRepo{DB: sqlDB}, signer, cfg.AdminUserIDs)
			return createUser(cmd, svc, f)
		},
	}

	cmd.Flags().StringVarP(&f.username, "username", "u", "", "username of the new account")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password of the new account")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&f.migrate, "migrate", false, "apply migrations before creating the account")
	return cmd
}

func createUser(cmd *cobra.Command, svc *users.Service, f createUserFlags) error {
	ctx := cmd.Context()
	user, err := svc.Register(ctx, users.RegisterInput{
		Username:  f.username,
		Password:  f.password,
		Email:     f.email,
		FirstName: f.firstName,
		LastName:  f.lastName,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	token, err := svc.OpenSession(ctx, user)
	if err != nil {
		return err
	}
	printUser(cmd.OutOrStdout(), user, token)
	return nil
}

func printUser(w io.Writer, user users.User, token string) {
	fmt.Fprintf(w, "id:       %s\n", user.ID)
	fmt.Fprintf(w, "username: %s\n", user.Username)
	fmt.Fprintf(w, "token:    %s\n", token)
}
