package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/domain/session"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
	"github.com/GriffinCanCode/imageviewer/internal/providers/filesystem"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Args:    cobra.NoArgs,
		RunE: a.withAPI(func(cmd *cobra.Command, _ []string, api *session.API) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tIMAGES\tFOCUS\tSHOWN\tFLATTENED\tID")
			for i, s := range api.Sessions() {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\t%t\t%s\n",
					i, s.Name, s.Len(), s.Focus, s.Visible, s.Flattened != nil, s.ID)
			}
			return w.Flush()
		}),
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Show the images of a session",
		Args:  cobra.ExactArgs(1),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := api.Session(i)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:    %s\n", s.Name)
			if s.HasID() {
				fmt.Fprintf(out, "id:      %s\n", s.ID)
			}
			fmt.Fprintf(out, "focus:   %d\n", s.Focus)
			fmt.Fprintf(out, "shown:   %t\n", s.Visible)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tALT\tSCALE\tLEFT\tTOP\tROTATE\tSRC")
			for _, im := range s.Images {
				marker := ""
				if im.Alt == s.Focus {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%g\t%g\t%s\n",
					marker, im.Alt, im.Scale, im.Left, im.Top, im.Rotate, shorten(im.Src))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if s.Flattened != nil {
				fmt.Fprintf(out, "flattened: %d images\n", len(s.Flattened))
			}
			return nil
		}),
	}
}

func newNewCmd(a *app) *cobra.Command {
	var (
		name      string
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "new [paths...]",
		Short: "Create a session from image files, directories or globs",
		Example: `  # Empty session
  viewer new --name scratch

  # Every image below shots/ plus two more
  viewer new -r shots/ a.png "extra/**/*.jpg"`,
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			images, err := a.loadImages(cmd, api, args, recursive)
			if err != nil {
				return err
			}

			s := api.NewSession(images)
			if name != "" {
				s = s.Rename(name)
			}
			idx, err := api.Append(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created session %d (%s) with %d images\n", idx, s.Name, s.Len())
			return nil
		}),
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Session name (default session-<unix millis>)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Walk into subdirectories")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "add <index> <paths...>",
		Short: "Append images to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := api.Session(i)
			if err != nil {
				return err
			}

			images, err := a.loadImages(cmd, api, args[1:], recursive)
			if err != nil {
				return err
			}
			s, err = s.Apply(viewer.Append{Images: images})
			if err != nil {
				return err
			}
			if err := api.Edit(cmd.Context(), i, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %d now holds %d images\n", i, s.Len())
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Walk into subdirectories")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <index> <name>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			s, err := api.Session(i)
			if err != nil {
				return err
			}
			return api.Edit(cmd.Context(), i, s.Rename(args[1]))
		}),
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Aliases: []string{"remove"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return api.Remove(cmd.Context(), i)
		}),
	}
}

// loadImages reads image files and registers them with the API
func (a *app) loadImages(cmd *cobra.Command, api *session.API, args []string, recursive bool) ([]image.Full, error) {
	if len(args) == 0 {
		return nil, nil
	}
	ctx := cmd.Context()

	paths, err := filesystem.Expand(ctx, args, filesystem.Options{Recursive: recursive})
	if err != nil {
		return nil, err
	}
	files, skipped, err := filesystem.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, p := range skipped {
		a.log.Warn("skipping non-image file", zap.String("path", p))
	}

	return uploadAll(ctx, api, files)
}

func uploadAll(ctx context.Context, api *session.API, files []filesystem.File) ([]image.Full, error) {
	images := make([]image.Full, len(files))
	for i, f := range files {
		h, err := api.UploadImage(ctx, f.Blob)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		images[i] = image.Full{Meta: image.Meta{Alt: i, Scale: 1}, Src: h}
	}
	return images, nil
}

func shorten(h image.Handle) string {
	s := h.String()
	if h.IsInline() && len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
