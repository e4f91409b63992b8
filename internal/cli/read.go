package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/metcalfc/readaloud/internal/app"
	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/reader"
	"github.com/metcalfc/readaloud/internal/tui"
)

type readOptions struct {
	*options
	fresh    bool
	paused   bool
	bookmark string
}

func runRead(cmd *cobra.Command, opts *readOptions, args []string) error {
	a, cleanup, err := opts.openApp(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := resolveInput(ctx, cmd, a, args)
	if err != nil {
		return err
	}

	ctrl, err := a.Open(ctx, doc, opts.fresh)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if opts.bookmark != "" {
		if err := ctrl.JumpToBookmark(opts.bookmark); err != nil {
			return err
		}
	}
	return tui.Run(ctrl, a.Voice(), tui.Options{Autoplay: !opts.paused})
}

// resolveInput turns the argument into a library document: an existing file
// is imported, anything else is looked up as a document id. With no
// argument, piped stdin is imported as text.
func resolveInput(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) (*document.Document, error) {
	progress := func(status string) {
		fmt.Fprintln(cmd.ErrOrStderr(), status)
	}

	if len(args) == 0 {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok {
			stat, err := f.Stat()
			if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
				return nil, errNoInput
			}
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("error reading stdin: %w", err)
		}
		doc, _, err := a.ImportBytes(ctx, "stdin.txt", data, progress)
		if err != nil {
			return nil, errors.New(reader.UserMessage(err))
		}
		return doc, nil
	}

	if _, err := os.Stat(args[0]); err == nil {
		doc, _, err := a.Import(ctx, args[0], progress)
		if err != nil {
			return nil, errors.New(reader.UserMessage(err))
		}
		return doc, nil
	}
	return a.Resolve(ctx, args[0])
}
