package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/config"
	"github.com/GriffinCanCode/imageviewer/internal/providers/remote"
)

func newLoginCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <url>",
		Short: "Check and save sync service credentials",
		Long: `Log in to a sync service and save the URL and password so later
commands keep sessions there.

The password is read from --password or VIEWER_SYNC_PASSWORD. Credentials
are written to VIEWER_CREDENTIALS, or to imageviewer/credentials.yaml in the
user config directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = a.cfg.Sync.Password
			}
			if password == "" {
				return errors.New("no password given")
			}

			client, err := remote.Login(cmd.Context(), remote.Options{
				URL:     args[0],
				Timeout: a.cfg.Sync.Timeout,
				Logger:  a.log,
			}, password)
			if err != nil {
				return err
			}

			path := a.credentialsPath()
			creds := config.Credentials{URL: client.BaseURL(), Password: password}
			if err := config.SaveCredentials(path, creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in to %s, credentials saved to %s\n", creds.URL, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Sync service password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget saved sync service credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.credentialsPath()
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			return nil
		},
	}
}
