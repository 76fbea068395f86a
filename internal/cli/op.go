package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/imageviewer/internal/domain/session"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
)

func newOpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "op <index> <command> [arg]",
		Short: "Run a viewer command against a session",
		Long: `Run one viewer command and save the result.

Commands:
  show          show the viewer
  hide          hide the viewer
  focus <n>     focus image n
  dup           duplicate the focused image after itself
  delete <n>    delete image n
  move <n>      swap the focused image with image n`,
		Example: `  viewer op 0 focus 2
  viewer op 0 move 0`,
		Args: cobra.RangeArgs(2, 3),
		RunE: a.withAPI(func(cmd *cobra.Command, args []string, api *session.API) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			vc, err := parseCommand(args[1:])
			if err != nil {
				return err
			}

			s, err := api.Session(i)
			if err != nil {
				return err
			}
			s, err = s.Apply(vc)
			if err != nil {
				return err
			}
			if err := api.Edit(cmd.Context(), i, s); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d images, focus %d, shown %t\n",
				vc.Name(), s.Len(), s.Focus, s.Visible)
			return nil
		}),
	}
}

// parseCommand maps "focus 2" style arguments to a viewer command
func parseCommand(args []string) (viewer.Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	name, rest := strings.ToLower(args[0]), args[1:]

	withIndex := func(build func(int) viewer.Command) (viewer.Command, error) {
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s needs exactly one index", name)
		}
		n, err := parseIndex(rest[0])
		if err != nil {
			return nil, err
		}
		return build(n), nil
	}
	noArgs := func(c viewer.Command) (viewer.Command, error) {
		if len(rest) != 0 {
			return nil, fmt.Errorf("%s takes no arguments", name)
		}
		return c, nil
	}

	switch name {
	case "show":
		return noArgs(viewer.SetVisible{Visible: true})
	case "hide":
		return noArgs(viewer.SetVisible{Visible: false})
	case "dup", "duplicate":
		return noArgs(viewer.DuplicateFocused{})
	case "focus":
		return withIndex(func(n int) viewer.Command { return viewer.SetFocus{Index: n} })
	case "delete", "del":
		return withIndex(func(n int) viewer.Command { return viewer.DeleteAt{Index: n} })
	case "move":
		return withIndex(func(n int) viewer.Command { return viewer.MoveTo{Target: n} })
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}
