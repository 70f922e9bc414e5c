package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"imgurstats/pkg/auth"
	"imgurstats/pkg/config"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/metrics"
	"imgurstats/pkg/ratelimit"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
	"imgurstats/pkg/ui"
)

// app is what every data command opens: the configuration, the logger, the
// local store and the metrics registry.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	store   *store.Store
	metrics *metrics.Metrics
}

func commandFlags(extra map[string]interface{}) map[string]interface{} {
	flags := map[string]interface{}{
		"log-level":    logLevel,
		"log-file":     logFile,
		"store":        storeDriver,
		"data-dir":     dataDir,
		"metrics-addr": metricsAddr,
		"no-color":     noColor,
		"yes":          assumeYes,
	}
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}

func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, commandFlags(extra))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func openApp(extra map[string]interface{}) (*app, error) {
	cfg, err := loadConfig(extra)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()
	m := metrics.New()

	st, err := store.Open(cfg.Storage, log, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open the %s store: %w", cfg.Storage.Driver, err)
	}
	if st.EnsureSchemaVersion(store.SchemaVersion) {
		ui.PrintWarning("Saved data was written by another version of imgurstats and has been cleared")
	}

	log.DebugWithFields("store opened", map[string]interface{}{
		"driver": cfg.Storage.Driver,
		"path":   cfg.Storage.Path,
	})
	return &app{cfg: cfg, log: log, store: st, metrics: m}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close the store")
	}
}

// serveMetrics exposes the registry while ctx lives when metrics are enabled.
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.Metrics.Enabled {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr, a.log); err != nil {
			a.log.WithError(err).Warn("metrics server stopped")
		}
	}()
}

// credentials picks the session to sign in with: the --account flag, then a
// cookie from the configuration, then the default stored account.
func (a *app) credentials() (*auth.Account, error) {
	if a.cfg.Imgur.Cookie != "" && accountName == "" {
		return &auth.Account{Cookie: a.cfg.Imgur.Cookie}, nil
	}

	manager, err := auth.NewManager("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if accountName != "" {
		account, err := manager.Retrieve(accountName)
		if err != nil {
			return nil, fmt.Errorf("account %q not found, see 'imgurstats auth list'", accountName)
		}
		return account, nil
	}
	account, err := manager.RetrieveDefault()
	if err != nil {
		return nil, errors.New("no imgur session found, run 'imgurstats auth login' first")
	}
	return account, nil
}

func (a *app) newClient(account *auth.Account) *imgur.Client {
	limiter := ratelimit.NewTokenBucket(a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst)
	client := imgur.NewClient(a.cfg.Imgur, a.log,
		imgur.WithLimiter(limiter),
		imgur.WithMetrics(a.metrics),
		imgur.WithRetry(a.cfg.Retry),
	)
	if account != nil {
		client.SetCookie(account.Cookie)
		if account.UserAgent != "" {
			client.SetHeader("User-Agent", account.UserAgent)
		}
	}
	return client
}

// signIn resolves the signed-in account through imgur.
func (a *app) signIn(ctx context.Context) (*imgur.Client, stats.Account, error) {
	creds, err := a.credentials()
	if err != nil {
		return nil, stats.Account{}, err
	}
	client := a.newClient(creds)

	me, err := client.Me(ctx)
	if err != nil {
		return nil, stats.Account{}, fmt.Errorf("failed to resolve the imgur account: %w", err)
	}
	account := stats.Account{Name: me.URL, Elevated: bool(me.IsSubscribed)}
	a.log.InfoWithFields("signed in", map[string]interface{}{
		"account":  account.Name,
		"elevated": account.Elevated,
	})
	return client, account, nil
}

// offlineAccount names the default stored account without asking imgur.
// Reports read only the local store and never show the elevated list size.
func (a *app) offlineAccount() stats.Account {
	if accountName != "" {
		return stats.Account{Name: accountName}
	}
	manager, err := auth.NewManager("")
	if err != nil {
		return stats.Account{}
	}
	account, err := manager.RetrieveDefault()
	if err != nil {
		return stats.Account{}
	}
	return stats.Account{Name: account.Username}
}

func (a *app) session(scope string, account stats.Account) *stats.Session {
	return stats.NewSession(a.store, scope, account, a.cfg.Ranking, a.log, a.metrics)
}

// resolveScope returns the scope named on the command line, or the account
// when none was given.
func resolveScope(args []string, account stats.Account) (string, error) {
	scope := account.Name
	if len(args) > 0 {
		scope = imgur.SanitizeUsername(args[0])
	}
	if scope == "" {
		return "", errors.New("no user given and no signed-in account to default to")
	}
	if !imgur.IsValidUsername(scope) {
		return "", fmt.Errorf("invalid imgur username: %q", scope)
	}
	return scope, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question on in. It answers yes when --yes or
// fetch.assume_yes is set, and no when in is not a terminal.
func confirm(cfg *config.Config, in *os.File, out io.Writer, question string) bool {
	if assumeYes || (cfg != nil && cfg.Fetch.AssumeYes) {
		return true
	}
	if !isTerminal(in) {
		fmt.Fprintln(out, ui.Yellow(question+" (not a terminal, pass --yes to continue)"))
		return false
	}
	return askYesNo(bufio.NewReader(in), out, question)
}

func askYesNo(r *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/N): ", question)
	input, _ := r.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}
