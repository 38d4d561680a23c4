package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/grid"
	"github.com/admingrid/admingrid/internal/lookup"
)

var (
	renderEntity string
	renderPage   int
	renderSearch string
	renderStatus string
	renderJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one page of a grid and print it",
	Long: `Load a single page of an entity's grid against the configured upstream
and print the rendered table, pagination and count. Useful for checking
entity overrides and upstream connectivity without starting the console.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderEntity, "entity", "e", "datasources", "entity to render")
	renderCmd.Flags().IntVarP(&renderPage, "page", "p", 1, "page number")
	renderCmd.Flags().StringVarP(&renderSearch, "search", "s", "", "search term")
	renderCmd.Flags().StringVar(&renderStatus, "status", "", "status filter: active, inactive or both")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	requester, err := newRequester(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("failed to set up upstream: %w", err)
	}

	var reg *entities.Registry
	lk := lookup.NewService(requester, func() []entities.LookupSpec { return reg.Lookups() }, nil, cfg.Lookups)
	reg = entities.NewRegistry(entities.Builtin(lk), cfg)

	def, err := reg.Resolve(renderEntity)
	if err != nil {
		return err
	}
	if reg.IsDisabled(renderEntity) {
		return fmt.Errorf("entity %q is disabled", renderEntity)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	lk.RefreshAll(ctx)

	toasts := grid.NewToasts()
	opts := def.Options()
	t := reg.Tuning(def.Name)
	opts.NotifyDuration = t.NotifyDuration
	opts.NumberedPageLimit = t.NumberedPageLimit
	mount := grid.Mount{
		Table:      grid.Element("div", "id", "grid-table"),
		Pagination: grid.Element("nav", "id", "grid-pagination"),
		Count:      grid.Element("span", "id", "grid-count"),
	}
	g := grid.New(requester, mount, toasts, opts)
	defer g.Detach()

	if err := renderQuery(ctx, g); err != nil {
		printToasts(toasts)
		return err
	}

	snap := g.Snapshot()
	if renderJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s rows)\n\n", def.Title, snap.Count)
	fmt.Fprintln(out, snap.Table)
	fmt.Fprintln(out, snap.Pagination)
	printToasts(toasts)
	return nil
}

func renderQuery(ctx context.Context, g *grid.Orchestrator) error {
	if err := g.Load(ctx); err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}
	if renderStatus != "" {
		if err := applyStatus(ctx, g, renderStatus); err != nil {
			return err
		}
	}
	if renderSearch != "" {
		if err := g.Search(ctx, renderSearch); err != nil {
			return fmt.Errorf("failed to search: %w", err)
		}
	}
	if renderPage != 1 {
		if err := g.SubmitPageInput(ctx, strconv.Itoa(renderPage)); err != nil {
			return fmt.Errorf("failed to go to page %d: %w", renderPage, err)
		}
	}
	return nil
}

// applyStatus toggles the chips until the filter matches want. A fresh grid
// starts with both chips selected.
func applyStatus(ctx context.Context, g *grid.Orchestrator, want string) error {
	var toggle grid.StatusKind
	switch want {
	case "both":
		return nil
	case "active":
		toggle = grid.StatusInactive
	case "inactive":
		toggle = grid.StatusActive
	default:
		return fmt.Errorf("unknown status %q", want)
	}
	if err := g.ToggleStatus(ctx, toggle); err != nil {
		return fmt.Errorf("failed to filter by status: %w", err)
	}
	return nil
}

func printToasts(t *grid.Toasts) {
	for _, n := range t.Drain() {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Kind, n.Message)
	}
}
