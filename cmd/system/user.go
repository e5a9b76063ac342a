package system

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/service/user"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	"github.com/Alijeyrad/counsel_backend/pkg/database"
)

func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage platform users",
	}
	cmd.AddCommand(newUserAddCommand())
	return cmd
}

func newUserAddCommand() *cobra.Command {
	var (
		req  user.CreateRequest
		role string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user and grant its platform role",
		Example: `  counsel system user add --name "Sara Ahmadi" --phone 09121234567 --role client --student
  counsel system user add --name "Dr. Karimi" --email karimi@example.com --role counselor --price 1500000`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			enforcer, cleanup, err := authorize.NewEnforcer(database.NewDSN(cfg.CasbinDatabase), false)
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			authz, err := authorize.NewAuthorization(enforcer)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}

			req.Role = repo.Role(role)
			svc := user.New(repo.NewClient(drv), authz)
			u, err := svc.Create(ctx, req)
			if err != nil {
				return err
			}

			fmt.Printf("Created %s %s (%s)\n", u.Role, u.ID, u.FullName)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Mobile number")
	cmd.Flags().StringVar(&role, "role", string(repo.RoleClient), "Role: client, counselor, psychiatrist, admin or management")
	cmd.Flags().BoolVar(&req.IsStudent, "student", false, "Mark a client as a student")
	cmd.Flags().Int64Var(&req.SessionPrice, "price", 0, "Base session price for professionals")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
