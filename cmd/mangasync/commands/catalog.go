package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/catalog"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/sym"
)

// CatalogCmd represents the catalog (inspect) command
var CatalogCmd = &cobra.Command{
	Use:   "catalog <code>...",
	Short: sym.Catalog + " Show catalogue entries with their authors and genres",
	Long: sym.Catalog + ` catalog - Show catalogue entries with their authors and genres

Reads the normalized tables only; raw batches are not consulted.

Examples:
  mangasync catalog manga-aa951409
  mangasync catalog manga-aa951409 manga-bc123456 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCatalog,
}

// Entry is one manga with its mapped labels.
type Entry struct {
	catalog.Manga
	Authors []string `json:"authors"`
	Genres  []string `json:"genres"`
}

func runCatalog(cmd *cobra.Command, args []string) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	mangas, err := catalog.MangasByCode(ctx, exec, args)
	if err != nil {
		return err
	}
	if len(mangas) == 0 {
		return errors.WithHint(errors.Newf("no manga with code %s", strings.Join(args, ", ")),
			"codes appear after a sync run: mangasync sync overviews")
	}

	ids := make([]int64, 0, len(mangas))
	for _, m := range mangas {
		ids = append(ids, m.ID)
	}
	reconciler := catalog.NewReconciler(exec, false, logger.ComponentLogger("catalog"))
	authors, err := reconciler.List(ctx, catalog.MangaAuthors, ids)
	if err != nil {
		return err
	}
	genres, err := reconciler.List(ctx, catalog.MangaGenres, ids)
	if err != nil {
		return err
	}

	entries := make([]Entry, 0, len(mangas))
	for _, m := range mangas {
		entries = append(entries, Entry{Manga: m, Authors: authors[m.ID], Genres: genres[m.ID]})
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		status := "ongoing"
		if e.IsCompleted {
			status = "completed"
		}
		fmt.Fprintf(out, "%s %s (id %d)\n", sym.Catalog, e.Code, e.ID)
		fmt.Fprintf(out, "  Title:   %s\n", e.Title)
		fmt.Fprintf(out, "  Status:  %s\n", status)
		fmt.Fprintf(out, "  Authors: %s\n", orDash(e.Authors))
		fmt.Fprintf(out, "  Genres:  %s\n", orDash(e.Genres))
		fmt.Fprintf(out, "  Job ID:  %s\n", e.JobID)
	}
	return nil
}

func orDash(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ", ")
}
