package system

import (
	"fmt"

	"github.com/spf13/cobra"

	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
)

func NewKeygenCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a PASETO key for authentication.paseto",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := pasetotoken.GenerateKeys(pasetotoken.Mode(mode))
			if err != nil {
				return err
			}
			if keys.Mode == pasetotoken.ModeLocal {
				fmt.Printf("local_key_hex: %s\n", keys.Hex())
			} else {
				fmt.Printf("secret_key_hex: %s\n", keys.Hex())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(pasetotoken.ModePublic), "Key mode: local or public")

	return cmd
}
