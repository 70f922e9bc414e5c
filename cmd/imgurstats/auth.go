package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"imgurstats/pkg/auth"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/ui"
)

var skipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage imgur sessions",
	Long: `Manage stored imgur sessions.

imgurstats signs in with the cookie of a logged in browser session. Sessions
are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (IMGURSTATS_COOKIE, read only)

Never share your cookie or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an imgur session cookie",
	Long: `Store the cookie of a logged in imgur browser session.

To get the cookie:
1. Log into imgur in your browser
2. Open Developer Tools (F12) and the Network tab
3. Reload the page and select any request to imgur.com
4. Copy the value of the Cookie request header

The cookie is checked against imgur before it is stored unless --no-verify
is given. The account name is taken from imgur when not provided.`,
	Example: `  # Interactive login
  imgurstats auth login

  # Login and store without checking
  imgurstats auth login myusername --no-verify`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored session",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sessions",
	Long:  `List all stored imgur sessions with the cookie masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store the cookie without checking it against imgur")
}

func newManager() *auth.Manager {
	manager, err := auth.NewManager("")
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := newManager()
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = imgur.SanitizeUsername(args[0])
		if !imgur.IsValidUsername(username) {
			ui.PrintError("Invalid imgur username", username)
			os.Exit(1)
		}
	}

	fmt.Println("🔐 Paste the Cookie header of your imgur session (hidden as you type):")
	cookie, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read cookie", err.Error())
		os.Exit(1)
	}
	cookie = strings.TrimPrefix(strings.TrimSpace(cookie), "Cookie:")
	cookie = strings.TrimSpace(cookie)
	if cookie == "" || !strings.Contains(cookie, "=") {
		ui.PrintError("That doesn't look like a cookie header", "expected name=value pairs")
		os.Exit(1)
	}

	fmt.Print("🌐 User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		Username:     username,
		Cookie:       cookie,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	if !skipVerify {
		fmt.Println("\n🔎 Checking the session with imgur...")
		name, err := verifySession(account)
		if err != nil {
			ui.PrintError("imgur did not accept the session", err.Error())
			os.Exit(1)
		}
		if username != "" && name != username {
			ui.PrintWarning(fmt.Sprintf("The cookie belongs to %s, storing it under that name", name))
		}
		account.Username = name
	}

	if account.Username == "" {
		ui.PrintError("Username is required with --no-verify", "")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(account.Username); existing != nil {
		if !askYesNo(reader, os.Stdout, fmt.Sprintf("\n⚠️  Account '%s' already exists. Update the session?", account.Username)) {
			return
		}
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Session saved: %s", account.Username))

	fmt.Println("\n📖 Next steps:")
	fmt.Println("   $ imgurstats fetch posts")
	fmt.Println("   $ imgurstats fetch images")
	fmt.Println("   $ imgurstats top")
}

// verifySession resolves the account the cookie signs in as.
func verifySession(account *auth.Account) (string, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return "", err
	}
	a := &app{cfg: cfg, log: logger.GetLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Imgur.Timeout*time.Duration(cfg.Retry.MaxAttempts)+cfg.Retry.MaxDelay)
	defer cancel()
	me, err := a.newClient(account).Me(ctx)
	if err != nil {
		return "", err
	}
	return me.URL, nil
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := newManager()
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found", "")
			return
		}

		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Printf("  0. Cancel\n\n")
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)
		if choice == 0 {
			return
		}
		if choice < 0 || choice > len(accounts) {
			ui.PrintError("Invalid choice", "")
			os.Exit(1)
		}
		username = accounts[choice-1].Username
	}

	if !assumeYes && !askYesNo(reader, os.Stdout, fmt.Sprintf("Remove account '%s'?", username)) {
		return
	}
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runList(cmd *cobra.Command, args []string) {
	manager := newManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'imgurstats auth login' to add an account")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Username", "Cookie", "User Agent", "Last Modified"})
	for _, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		t.AppendRow(table.Row{
			sanitized.Username,
			sanitized.Cookie,
			orDash(sanitized.UserAgent),
			sanitized.LastModified.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

// readPassword reads a secret from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
