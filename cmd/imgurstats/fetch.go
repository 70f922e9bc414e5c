package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	errs "imgurstats/pkg/errors"
	"imgurstats/pkg/fetch"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/ui"
	"imgurstats/pkg/ui/tui"
)

var (
	// Fetch command flags
	useTUI     bool
	notify     bool
	fetchPages int
	imagesOnly bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every post or image of an account",
	Long: `Fetch all posts or all image views of an imgur account, replacing the
saved data of that account.

A full fetch sends many requests in a short time, so it asks for
confirmation first. Use 'imgurstats refresh' to only merge the newest pages.
Press Ctrl+C to stop; a stopped fetch saves nothing.`,
}

var fetchPostsCmd = &cobra.Command{
	Use:   "posts [user]",
	Short: "Fetch every post and rebuild the posts summary",
	Example: `  # Fetch the posts of the signed-in account
  imgurstats fetch posts

  # Fetch the posts of another account without asking
  imgurstats fetch posts someone --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(args, "posts", func(ctx context.Context, r *fetch.Runner, sess *stats.Session) ([]*fetch.Result, error) {
			res, err := r.FetchPosts(ctx, sess)
			return []*fetch.Result{res}, err
		})
	},
}

var fetchImagesCmd = &cobra.Command{
	Use:   "images [user]",
	Short: "Fetch the views of every image and rebuild the top list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(args, "images", func(ctx context.Context, r *fetch.Runner, sess *stats.Session) ([]*fetch.Result, error) {
			res, err := r.FetchImages(ctx, sess)
			return []*fetch.Result{res}, err
		})
	},
}

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [user]",
	Short: "Merge the newest posts and images into the saved data",
	Long: `Fetch only the newest pages and merge them into the saved data: two
pages of posts followed by two pages of images, or three pages of images
with --images-only. No confirmation is asked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := "refresh"
		if imagesOnly {
			kind = "image refresh"
		}
		return runFetch(args, kind, func(ctx context.Context, r *fetch.Runner, sess *stats.Session) ([]*fetch.Result, error) {
			return r.Refresh(ctx, sess, imagesOnly)
		})
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(refreshCmd)
	fetchCmd.AddCommand(fetchPostsCmd)
	fetchCmd.AddCommand(fetchImagesCmd)

	for _, c := range []*cobra.Command{fetchPostsCmd, fetchImagesCmd, refreshCmd} {
		c.Flags().BoolVar(&useTUI, "tui", false, "use the interactive terminal UI")
		c.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when done")
	}
	fetchPostsCmd.Flags().IntVar(&fetchPages, "pages", 0, "pages per round (default from config)")
	fetchImagesCmd.Flags().IntVar(&fetchPages, "pages", 0, "pages per round (default from config)")
	refreshCmd.Flags().BoolVar(&imagesOnly, "images-only", false, "refresh images only")
}

type fetchFunc func(ctx context.Context, r *fetch.Runner, sess *stats.Session) ([]*fetch.Result, error)

func runFetch(args []string, kind string, run fetchFunc) error {
	a, err := openApp(map[string]interface{}{"pages": fetchPages})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.serveMetrics(ctx)

	client, account, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	scope, err := resolveScope(args, account)
	if err != nil {
		return err
	}
	sess := a.session(scope, account)

	go func() {
		<-ctx.Done()
		sess.Cancel.Cancel()
	}()

	confirmer := fetch.ConfirmFunc(func(scope string) bool {
		return confirm(a.cfg, os.Stdin, os.Stdout, fmt.Sprintf(
			"A full fetch of %s sends many requests to imgur and may get the account throttled. Continue?", scope))
	})

	var results []*fetch.Result
	if useTUI && isTerminal(os.Stdout) {
		// The view owns the terminal, so ask before it starts.
		if kind == "posts" || kind == "images" {
			if !confirmer.Confirm(scope) {
				return errs.ErrRiskDeclined
			}
		}
		view := tui.NewTUI(fmt.Sprintf("imgurstats %s: %s", kind, scope), sess.Cancel.Cancel, os.Stdin, os.Stdout)
		runner := fetch.NewRunner(client, a.cfg.Fetch, fetch.WithProgress(view), fetch.WithConfirmer(fetch.AlwaysConfirm))
		err = view.Run(func() error {
			var runErr error
			results, runErr = run(ctx, runner, sess)
			return runErr
		})
	} else {
		ui.PrintInfo("Account", scope)
		runner := fetch.NewRunner(client, a.cfg.Fetch, fetch.WithProgress(ui.NewLineProgress(os.Stdout)), fetch.WithConfirmer(confirmer))
		results, err = run(ctx, runner, sess)
	}

	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier(ui.PlatformSender())
	}
	notifier.NotifyResult(kind, scope, last(results), err)

	if errors.Is(err, errs.ErrRiskDeclined) {
		ui.PrintWarning("Fetch declined, nothing was changed")
		return nil
	}
	if err != nil {
		return err
	}
	printResults(kind, scope, results)
	return nil
}

func last(results []*fetch.Result) *fetch.Result {
	if len(results) == 0 {
		return nil
	}
	return results[len(results)-1]
}

func printResults(kind, scope string, results []*fetch.Result) {
	for _, res := range results {
		if res == nil {
			continue
		}
		switch {
		case res.State == fetch.StateCancelled:
			ui.PrintWarning(fmt.Sprintf("%s of %s cancelled, nothing was saved", kind, scope))
			return
		case !res.Saved:
			ui.PrintWarning(fmt.Sprintf("%s of %s finished after %d pages without saving", kind, scope, res.Pages))
		default:
			ui.PrintSuccess(fmt.Sprintf("Saved %s items of %s from %d pages", humanize.Comma(int64(res.Processed)), scope, res.Pages))
		}
	}
}
