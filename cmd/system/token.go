package system

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/database"
	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
	redispkg "github.com/Alijeyrad/counsel_backend/pkg/redis"
)

// NewTokenCommand issues an access token bound to a fresh Redis session.
// Login flows live outside this service; operators and integration tests
// use this to obtain tokens.
func NewTokenCommand() *cobra.Command {
	var userArg string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userArg)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandTimeout(cmd, cfg)
			defer cancel()

			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer drv.Close()

			u, err := repo.NewClient(drv).GetUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			rdb, err := redispkg.New(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			mgr, err := pasetotoken.NewPasetoManager(cfg)
			if err != nil {
				return err
			}

			sid := uuid.New()
			ttl := time.Duration(cfg.Authentication.SessionTTLMinutes) * time.Minute
			if err := redispkg.NewSessions(rdb).Create(ctx, sid, u.ID, ttl); err != nil {
				return fmt.Errorf("create session: %w", err)
			}

			token, err := mgr.IssueAccess(u.ID, string(u.Role), &sid)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userArg, "user", "", "User ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
