package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// openSession migrates on open.
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", s.backend.Driver)
			return nil
		},
	}
}

func newRendererKeyCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "renderer-key",
		Short: "Store the renderer API key in the database",
		Long:  "Store the renderer API key so the api and worker can start without RENDERER_API_KEY. Postgres only.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key = strings.TrimSpace(key)
			if key == "" {
				key = strings.TrimSpace(os.Getenv("RENDERER_API_KEY"))
			}
			if key == "" {
				return errors.New("renderer api key is required via --key or RENDERER_API_KEY")
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if s.backend.Credentials == nil {
				return fmt.Errorf("%s store does not keep credentials; set RENDERER_API_KEY instead", s.backend.Driver)
			}
			if err := s.backend.Credentials.SetRendererAPIKey(cmd.Context(), key); err != nil {
				return fmt.Errorf("store renderer api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "renderer API key stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "renderer API key (falls back to RENDERER_API_KEY)")
	return cmd
}
