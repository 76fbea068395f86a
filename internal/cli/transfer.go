package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/imageviewer/internal/domain/session"
)

func newExportCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every session to a portable JSON file",
		Args:  cobra.NoArgs,
		RunE: a.withAPI(func(cmd *cobra.Command, _ []string, api *session.API) error {
			file, err := api.Export(cmd.Context())
			if err != nil {
				return err
			}
			path, err := writeFile(dir, file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&dir, "out", "o", ".", "Directory to write the export into")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace every session with the contents of an export",
		Long: `Replace every session with the contents of an export file.

With a sync service configured this deletes every session stored there
before the imported ones are uploaded.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := api.Import(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d sessions\n", api.Len())
			return nil
		}),
	}
}

func newFlattenCmd(a *app) *cobra.Command {
	var zoom float64

	cmd := &cobra.Command{
		Use:   "flatten <index>",
		Short: "Render each image of a session with its transforms applied",
		Args:  cobra.ExactArgs(1),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if err := api.Flatten(cmd.Context(), i, a.zoom(cmd, zoom)); err != nil {
				return err
			}
			s, err := api.Session(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flattened %d images\n", len(s.Flattened))
			return nil
		}),
	}

	cmd.Flags().Float64VarP(&zoom, "zoom", "z", 0, "Zoom factor (default VIEWER_ZOOM)")
	return cmd
}

func newCompileCmd(a *app) *cobra.Command {
	var (
		zoom float64
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "compile <index>",
		Short: "Render a session into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			file, err := api.Compile(cmd.Context(), i, a.zoom(cmd, zoom))
			if err != nil {
				return err
			}
			path, err := writeFile(dir, file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	}

	cmd.Flags().Float64VarP(&zoom, "zoom", "z", 0, "Zoom factor (default VIEWER_ZOOM)")
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "Directory to write the archive into")
	return cmd
}

func (a *app) zoom(cmd *cobra.Command, flag float64) float64 {
	if cmd.Flags().Changed("zoom") {
		return flag
	}
	return a.cfg.Flatten.Zoom
}

func writeFile(dir string, file session.ExportFile) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
