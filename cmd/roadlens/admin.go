package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"roadlens/internal/auth"
)

func newAdminCmd(jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminHashTokenCmd(jsonOutput))
	return cmd
}

func newAdminHashTokenCmd(jsonOutput *bool) *cobra.Command {
	var tokenStdin bool

	cmd := &cobra.Command{
		Use:   "hash-token",
		Short: "Hash an admin token for auth.admin_token_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !tokenStdin {
				return fmt.Errorf("--token-stdin is required")
			}
			raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
			if err != nil {
				return err
			}
			hash, err := auth.HashAdminToken(strings.TrimSpace(string(raw)))
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]string{"admin_token_hash": hash})
			}
			fmt.Fprintln(os.Stderr, "store with: roadlens config set --global auth.admin_token_hash '<hash>'")
			return writePlain("%s\n", hash)
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read the plaintext token from stdin")
	return cmd
}
