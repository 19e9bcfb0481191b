package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/auth"
	"github.com/zenga/cms/internal/server/storage"
	"github.com/zenga/cms/internal/server/storage/sqlite"
)

func newCreateAdminCommand(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-admin <email> [password]",
		Short: "Create an administrator account",
		Long: `Creates a local administrator account with the given email.
The password is prompted for when it is not passed as an argument.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), cfg)

			var password string
			if len(args) == 2 {
				password = args[1]
			} else {
				password, err = opts.promptPassword()
				if err != nil {
					return err
				}
			}

			store, err := sqlite.New(ctx, cfg.DatabasePath, sqlite.WithOwnerOpenID(cfg.OwnerOpenID))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			accounts, err := auth.NewService(store, nil, logger, cfg.BcryptCost)
			if err != nil {
				return err
			}

			user, err := accounts.CreateUserWithPassword(ctx, args[0], password, name, models.RoleAdmin)
			if err != nil {
				if errors.Is(err, storage.ErrUserAlreadyExists) {
					return fmt.Errorf("user with email %s already exists", args[0])
				}
				return err
			}

			opts.console.Printf("✓ Administrator created\n")
			opts.console.Printf("User ID: %d\n", user.ID)
			opts.console.Printf("Email:   %s\n", user.EmailOrEmpty())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name of the administrator (default: local part of the email)")

	return cmd
}

// promptPassword спрашивает пароль дважды
func (o *options) promptPassword() (string, error) {
	password, err := o.console.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := o.console.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}
