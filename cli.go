package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"showcase/internal/catalog"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the rows API and validate the fallback file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout())
	},
}

func runCheck(ctx context.Context, out io.Writer) error {
	var failed bool

	client, err := catalog.NewClient(catalog.ClientOptions{
		BaseURL: cfg.API.BaseURL,
		TableID: cfg.API.TableID,
		Token:   cfg.API.Token,
		Fields:  catalog.FieldMapFrom(cfg.API.Fields),
		Timeout: cfg.APITimeout(),
	})
	switch {
	case err != nil:
		fmt.Fprintf(out, "api:      not configured (%v)\n", err)
		failed = true
	case !client.TestConnection(ctx):
		fmt.Fprintln(out, "api:      unreachable")
		failed = true
	default:
		products, err := client.FetchProducts(ctx, nil)
		if err != nil {
			fmt.Fprintf(out, "api:      reachable, fetch failed: %v\n", err)
			failed = true
		} else {
			fmt.Fprintf(out, "api:      ok, %d displayable products\n", len(catalog.Displayable(products)))
		}
	}

	products, err := catalog.NewFileFallback(cfg.Fallback.Path).Load(ctx)
	if err != nil {
		fmt.Fprintf(out, "fallback: %v\n", err)
		failed = true
	} else {
		fmt.Fprintf(out, "fallback: ok, %d products in %s\n", len(products), cfg.Fallback.Path)
	}

	if failed {
		return fmt.Errorf("check failed")
	}
	return nil
}

var listQuery string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Load the catalog once and print it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl := newController()
		defer ctrl.Close()
		if err := ctrl.Load(cmd.Context()); err != nil {
			return err
		}
		summary := ctrl.Search(listQuery)
		snap := ctrl.Snapshot()
		if snap.Banner != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), snap.Banner.Message)
		}
		printProducts(cmd.OutOrStdout(), newRenderer(nil), snap.Filtered)
		fmt.Fprintln(cmd.OutOrStdout(), summary.Text)
		return nil
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Search the catalog interactively",
	Long: `browse loads the catalog and reads search terms from stdin.

Commands:
  :clear      reset the search
  :show ID    print one product with its gallery
  :reload     load the catalog again
  :quit       exit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl := newController()
		defer ctrl.Close()
		if err := ctrl.Load(cmd.Context()); err != nil {
			return err
		}
		return browse(cmd.Context(), ctrl, newRenderer(nil), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func browse(ctx context.Context, ctrl *catalog.Controller, render *catalog.Renderer, in io.Reader, out io.Writer) error {
	printState(out, render, ctrl)

	results := make(chan catalog.Summary, 1)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == ":quit":
			return nil
		case line == ":clear":
			ctrl.Clear()
			printState(out, render, ctrl)
		case line == ":reload":
			if err := ctrl.Reload(ctx); err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
			}
			printState(out, render, ctrl)
		case strings.HasPrefix(line, ":show"):
			showProduct(ctx, out, render, ctrl, strings.TrimSpace(strings.TrimPrefix(line, ":show")))
		default:
			ctrl.SearchDebounced(line, func(s catalog.Summary) { results <- s })
			select {
			case <-results:
				printState(out, render, ctrl)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return sc.Err()
}

func showProduct(ctx context.Context, out io.Writer, render *catalog.Renderer, ctrl *catalog.Controller, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Fprintf(out, "invalid id %q\n", arg)
		return
	}
	p, err := ctrl.Lookup(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "lookup failed: %v\n", err)
		return
	}
	if p == nil {
		fmt.Fprintf(out, "product %d not found\n", id)
		return
	}
	d := render.Detail(*p, 0)
	fmt.Fprintf(out, "%s\n%s\n%s\n", p.Title, p.Description, d.DisplayPrice)
	for _, img := range d.Images {
		fmt.Fprintf(out, "  [%d] %s\n", img.Index, img.URL)
	}
	if len(d.Images) == 0 {
		fmt.Fprintf(out, "  %s\n", d.MainImage)
	}
	if d.ContactURL != "" {
		fmt.Fprintln(out, d.ContactURL)
	}
}

func printState(out io.Writer, render *catalog.Renderer, ctrl *catalog.Controller) {
	snap := ctrl.Snapshot()
	if snap.Banner != nil {
		fmt.Fprintf(out, "! %s\n", snap.Banner.Message)
	}
	if snap.Err != nil {
		fmt.Fprintf(out, "error: %v\n", snap.Err)
		return
	}
	printProducts(out, render, snap.Filtered)
	fmt.Fprintln(out, snap.Summary.Text)
}

// printProducts writes plain text; the HTML-escaped view fields are only
// used for the price columns.
func printProducts(out io.Writer, render *catalog.Renderer, products []catalog.Product) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tIMAGES")
	for _, p := range products {
		card := render.Card(p)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Title, card.DisplayPrice, card.GallerySize)
	}
	_ = w.Flush()
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "only list products matching this term")
}
