package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/encounter-api/internal/config"
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/auth"
)

// tokenCmd issues a signed token for local testing. Identity management
// lives outside this service.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			roleFlag, _ := cmd.Flags().GetString("role")
			idFlag, _ := cmd.Flags().GetString("id")

			cfg, err := config.LoadConfig(file)
			if err != nil {
				return err
			}

			role := model.Role(strings.ToUpper(roleFlag))
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", roleFlag)
			}
			id := uuid.New()
			if idFlag != "" {
				if id, err = uuid.Parse(idFlag); err != nil {
					return fmt.Errorf("invalid id: %w", err)
				}
			}

			svc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
			token, err := svc.GenerateAccessToken(model.Actor{ID: id, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("role", string(model.RoleDoctor), "actor role")
	cmd.Flags().String("id", "", "actor id (random when empty)")
	return cmd
}
