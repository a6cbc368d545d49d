package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/indrealty/realty-cms/pkg/realtycms/api"
	repopg "github.com/indrealty/realty-cms/pkg/realtycms/repo/postgres"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.Pool == nil {
				return errors.New("migrate requires DATABASE_URL")
			}
			if err := repopg.Migrate(cmd.Context(), rt.Pool); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s\n", cfg.DBSchema)
			return nil
		},
	}
}

// NewUserCommand creates the user command group
func NewUserCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage CMS users",
	}
	cmd.AddCommand(newUserCreateCommand(open))
	cmd.AddCommand(newUserPromoteCommand(open))
	return cmd
}

func newUserCreateCommand(open opener) *cobra.Command {
	var req realtycms.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			if req.UID == "" {
				req.UID = req.Username
			}
			user, err := rt.Services.Users.CreateUser(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create user: %s", errorText(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id: %s, admin: %t)\n", user.Username, user.ID, user.IsAdmin)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&req.UID, "uid", "", "identity provider uid (defaults to the username)")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "display name")
	cmd.Flags().BoolVar(&req.IsAdmin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserPromoteCommand(open opener) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant or revoke admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			user, err := rt.Services.Users.SetAdmin(cmd.Context(), args[0], !revoke)
			if err != nil {
				return fmt.Errorf("promote: %s", errorText(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s admin: %t\n", user.Username, user.IsAdmin)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke admin rights instead")
	return cmd
}

// NewTokenCommand creates the token command group
func NewTokenCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(open))
	return cmd
}

func newTokenIssueCommand(open opener) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a bearer token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.Auth == nil {
				return errors.New("token issue requires JWT_SECRET")
			}
			user, err := rt.Services.Users.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("token issue: %s", errorText(err))
			}
			token, err := api.IssueToken(rt.Auth, user.Username, ttl)
			if err != nil {
				return fmt.Errorf("token issue: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}

func errorText(err error) string {
	if msg := realtycms.Message(err); msg != "" {
		return msg
	}
	return err.Error()
}
