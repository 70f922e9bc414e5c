package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imgurstats/pkg/store"
	"imgurstats/pkg/ui"
)

var clearImagesOnly bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear [user]",
	Short: "Remove the saved data of one account",
	Long: `Remove everything saved for an account. With --images only the image
views, the top list and the image types are removed and the posts are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the saved data of every account",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(resetCmd)

	clearCmd.Flags().BoolVar(&clearImagesOnly, "images", false, "remove only the image data")
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	scope, err := resolveScope(args, a.offlineAccount())
	if err != nil {
		return err
	}
	if !a.store.HasData(scope) {
		ui.PrintWarning("Nothing saved for " + scope)
		return nil
	}

	what := "all saved data"
	if clearImagesOnly {
		what = "the saved image data"
	}
	if !confirm(nil, os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Remove %s of %s?", what, scope)) {
		return nil
	}

	if clearImagesOnly {
		a.store.DeleteImageData(scope)
		a.log.WithField("scope", scope).Info("image data removed")
		ui.PrintSuccess("Removed the image data of " + scope)
		return nil
	}

	n := a.store.DeleteScope(scope)
	a.log.WithField("scope", scope).InfoWithFields("scope removed", map[string]interface{}{"keys": n})
	ui.PrintSuccess(fmt.Sprintf("Removed %d saved entries of %s", n, scope))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if !confirm(nil, os.Stdin, cmd.OutOrStdout(), "Remove the saved data of every account?") {
		return nil
	}
	n := a.store.DeleteScope("")
	a.store.EnsureSchemaVersion(store.SchemaVersion)
	a.log.InfoWithFields("store reset", map[string]interface{}{"keys": n})
	ui.PrintSuccess(fmt.Sprintf("Removed %d saved entries", n))
	return nil
}
