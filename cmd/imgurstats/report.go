package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"imgurstats/pkg/exports"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/report"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
	"imgurstats/pkg/ui"
)

var (
	// Report command flags
	forceSummary    bool
	exportDir       string
	overwriteExport bool
)

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top [user]",
	Short: "Show the most viewed images",
	Long: `Show the saved top list of an account, ranked by views, with the rank
change since the list that was saved before the last fetch.

Reports read only the local store; run 'imgurstats fetch images' first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTop,
}

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary [user]",
	Short: "Show the totals over every saved post",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved data as tab separated files",
}

var exportPostsCmd = &cobra.Command{
	Use:   "posts [user]",
	Short: "Export the saved posts, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(args, report.ExportPosts)
	},
}

var exportImagesCmd = &cobra.Command{
	Use:   "images [user]",
	Short: "Export the saved view count of every image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(args, report.ExportImages)
	},
}

// scopesCmd represents the scopes command
var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List the accounts with saved data",
	Args:  cobra.NoArgs,
	RunE:  runScopes,
}

func init() {
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(scopesCmd)
	exportCmd.AddCommand(exportPostsCmd)
	exportCmd.AddCommand(exportImagesCmd)

	summaryCmd.Flags().BoolVar(&forceSummary, "rebuild", false, "rebuild the summary from the saved posts")
	exportCmd.PersistentFlags().StringVarP(&exportDir, "output", "o", ".", "directory to write the export to")
	exportCmd.PersistentFlags().BoolVar(&overwriteExport, "overwrite", false, "replace an export of the same data")
}

func openReport(args []string) (*app, *stats.Session, error) {
	a, err := openApp(nil)
	if err != nil {
		return nil, nil, err
	}
	account := a.offlineAccount()
	scope, err := resolveScope(args, account)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, a.session(scope, account), nil
}

func runTop(cmd *cobra.Command, args []string) error {
	a, sess, err := openReport(args)
	if err != nil {
		return err
	}
	defer a.Close()

	top, err := report.BuildTop(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", sess.Scope, err)
	}
	renderTop(cmd.OutOrStdout(), top)
	return nil
}

func movementCell(row report.RankedRow) string {
	switch row.Movement {
	case report.MovementNew:
		return ui.Cyan("new")
	case report.MovementUp:
		return ui.Green(fmt.Sprintf("▲ %d", row.PriorRank-row.Rank))
	case report.MovementDown:
		return ui.Red(fmt.Sprintf("▼ %d", row.Rank-row.PriorRank))
	default:
		return ""
	}
}

func renderTop(w io.Writer, top *report.TopReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Top images of " + top.Scope)
	t.AppendHeader(table.Row{"#", "Image", "Views", "Move"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	for _, row := range top.Rows {
		t.AppendRow(table.Row{
			row.Rank,
			imgur.ImageURL(row.ID, stats.LinkExt(row.Ext)),
			humanize.Comma(row.Views),
			movementCell(row),
		})
	}

	t.Render()

	fmt.Fprintf(w, "%d images, %s views in total\n", top.Images, top.TotalViews)
	if top.Updated != "" {
		fmt.Fprintf(w, "Updated %s", top.Updated)
		if top.PriorDate != "" {
			fmt.Fprintf(w, ", compared with %s", top.PriorDate)
		}
		fmt.Fprintln(w)
	}
}

func runSummary(cmd *cobra.Command, args []string) error {
	a, sess, err := openReport(args)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := report.BuildSummary(a.store, sess.Scope, forceSummary, time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", sess.Scope, err)
	}
	renderSummary(cmd.OutOrStdout(), sess.Scope, summary, report.PriorSummary(a.store, sess.Scope))
	return nil
}

func renderSummary(w io.Writer, scope string, summary, prior report.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Posts of " + scope)
	t.AppendHeader(table.Row{"", "Total", "Change"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	for _, field := range report.SummaryFields {
		value, ok := summary[field.Key]
		if !ok {
			continue
		}
		delta := summary.Delta(prior, field.Key)
		switch {
		case field.Key == report.KeyDate && delta != "":
			delta = delta + " later"
		case strings.HasPrefix(delta, "+"):
			delta = ui.Green(delta)
		case strings.HasPrefix(delta, "-"):
			delta = ui.Red(delta)
		}
		t.AppendRow(table.Row{field.Label, value, delta})
	}
	t.Render()
}

type exportFunc func(st *store.Store, scope string, now time.Time) (*report.Export, error)

func runExport(args []string, export exportFunc) error {
	a, sess, err := openReport(args)
	if err != nil {
		return err
	}
	defer a.Close()

	exp, err := export(a.store, sess.Scope, time.Now())
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			return fmt.Errorf("%s: %w", sess.Scope, err)
		}
		return fmt.Errorf("failed to export %s: %w", sess.Scope, err)
	}

	dir, err := exports.NewDir(exportDir)
	if err != nil {
		return err
	}
	path, err := dir.Write(exp, overwriteExport)
	if errors.Is(err, exports.ErrExists) {
		ui.PrintWarning("Already exported, pass --overwrite to write it again", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Wrote %s (%s)", path, humanize.Bytes(uint64(len(exp.Data)))))
	return nil
}

func runScopes(cmd *cobra.Command, args []string) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	scopes := a.store.ListScopes()
	if len(scopes) == 0 {
		ui.PrintWarning("No saved data yet, run 'imgurstats fetch posts' first")
		return nil
	}
	renderScopes(cmd.OutOrStdout(), a.store, scopes)
	return nil
}

func renderScopes(w io.Writer, st *store.Store, scopes []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Account", "Posts gathered", "Images gathered"})
	for _, scope := range scopes {
		t.AppendRow(table.Row{
			scope,
			orDash(st.Get(scope, store.KeyLastModPosts, "")),
			orDash(st.Get(scope, store.KeyLastModImages, "")),
		})
	}
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
