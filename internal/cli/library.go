package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/metcalfc/readaloud/internal/document"
	"github.com/metcalfc/readaloud/internal/reader"
)

const shortID = 12

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

func percent(cursor, total int) float64 {
	if total <= 1 {
		return 0
	}
	return 100 * float64(cursor) / float64(total-1)
}

func newImportCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Add documents to the library",
		Long:  "Add documents to the library without reading them.\n\nSupported formats: EPUB, PDF, Markdown and plain text.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			var imported []document.Summary
			var failed error
			for _, path := range args {
				doc, existed, err := a.Import(cmd.Context(), path, nil)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, reader.UserMessage(err))
					failed = errors.Join(failed, fmt.Errorf("%s: %w", path, err))
					continue
				}
				imported = append(imported, doc.Summarize())
				if asJSON {
					continue
				}
				note := ""
				if existed {
					note = " (already in library)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d words, %d chapters%s\n",
					short(doc.ID), doc.Title, doc.TotalWords(), len(doc.Chapters), note)
			}
			if asJSON {
				b, _ := json.MarshalIndent(imported, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			}
			return failed
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := a.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				b, _ := json.MarshalIndent(docs, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Library is empty.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tFORMAT\tWORDS\tPROGRESS")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f%%\n",
					short(d.ID), d.Title, d.Format, d.TotalWords, percent(d.Cursor, d.TotalWords))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newBookmarksCmd(opts *options) *cobra.Command {
	var remove string
	cmd := &cobra.Command{
		Use:   "bookmarks <id>",
		Short: "List or remove a document's bookmarks",
		Long:  "List a document's bookmarks. Add bookmarks while reading with the b key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := a.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if remove != "" {
				ctrl, err := a.Open(cmd.Context(), doc, false)
				if err != nil {
					return err
				}
				defer ctrl.Close()
				if err := ctrl.RemoveBookmark(remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed bookmark %s\n", remove)
				return nil
			}

			if len(doc.Bookmarks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No bookmarks in %s.\n", doc.Title)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORD\tPROGRESS\tLABEL")
			for _, b := range doc.Bookmarks {
				fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%s\n", b.ID, b.Index+1, percent(b.Index, doc.TotalWords()), b.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&remove, "remove", "", "Remove the bookmark with this id")
	return cmd
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove documents from the library",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := opts.openApp(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range args {
				if err := a.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		},
	}
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "readaloud %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.Date)
		},
	}
}
