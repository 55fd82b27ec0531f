package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/events"
	"github.com/spec-kit/asset-gateway/internal/gateway"
	"github.com/spec-kit/asset-gateway/internal/observability"
	"github.com/spec-kit/asset-gateway/internal/service"
	"github.com/spec-kit/asset-gateway/internal/worker"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

type cli struct {
	BaseURL string `help:"API base URL, overrides GATEWAY_BASE_URL." name:"base-url"`
	Verbose bool   `help:"Log requests to stderr." short:"v"`
	Stats   bool   `help:"Print request counters to stderr on exit."`

	Login      loginCmd      `cmd:"" help:"Log in and store the token."`
	Logout     logoutCmd     `cmd:"" help:"Log out and clear the stored token."`
	Whoami     whoamiCmd     `cmd:"" help:"Show the stored identity."`
	Resources  resourcesCmd  `cmd:"" help:"List the collections this client knows."`
	List       listCmd       `cmd:"" help:"List one page of a collection."`
	Get        getCmd        `cmd:"" help:"Fetch one record."`
	Create     createCmd     `cmd:"" help:"Create a record from JSON."`
	Update     updateCmd     `cmd:"" help:"Replace a record from JSON."`
	Delete     deleteCmd     `cmd:"" help:"Delete one record."`
	BulkDelete bulkDeleteCmd `cmd:"" name:"bulk-delete" help:"Delete several records."`
	Export     exportCmd     `cmd:"" help:"Download a collection export."`
	Import     importCmd     `cmd:"" help:"Upload a spreadsheet into a collection."`
	Template   templateCmd   `cmd:"" help:"Download a collection's import template."`
	Report     reportCmd     `cmd:"" help:"Download a report."`
}

// app is bound into every command's Run method.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	gw      *gateway.Gateway
	auth    *service.AuthService
	catalog *service.Catalog
	closers []func()
}

func main() {
	os.Exit(run())
}

// run owns every deferred cleanup so main can exit with the command's code.
func run() int {
	var args cli
	kctx := kong.Parse(&args, cliOptions()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assetctl:", err)
		return 1
	}
	defer a.close()

	err = kctx.Run(a)
	if args.Stats {
		printStats(os.Stderr, a.metrics)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "assetctl:", describe(err))
		return exitCode(err)
	}
	return 0
}

func cliOptions() []kong.Option {
	return []kong.Option{
		kong.Name("assetctl"),
		kong.Description("Command-line client for the asset-management API."),
		kong.UsageOnError(),
	}
}

func bootstrap(ctx context.Context, args cli) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if args.BaseURL != "" {
		cfg.Gateway.BaseURL = args.BaseURL
	}

	logCfg := cfg.Logger
	logCfg.Encoding = "console"
	logCfg.Output = "stderr"
	if !args.Verbose {
		logCfg.Level = "warn"
	}
	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{ctx: ctx, cfg: cfg, logger: logger, metrics: observability.NewMetrics()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	keyring, err := a.buildKeyring(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartSessionWatcher(service.NewNotificationService(dispatcher, logger, func(events.SessionExpiredPayload) {
		fmt.Fprintln(os.Stderr, "Your session has ended. Run `assetctl login` again.")
	}))

	gw, err := gateway.New(cfg.Gateway, keyring,
		gateway.WithLogger(logger),
		gateway.WithMetrics(a.metrics),
		gateway.WithDispatcher(dispatcher),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.gw = gw
	a.auth = service.NewAuthService(gw, dispatcher, logger)
	a.catalog = service.NewCatalog(gw)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// describe renders err for a terminal user.
func describe(err error) string {
	var failure *apperrors.DomainError
	if !errors.As(err, &failure) {
		return err.Error()
	}
	if failure.HTTPStatus > 0 && failure.Kind == apperrors.KindDomain {
		return fmt.Sprintf("%s (HTTP %d)", failure.Message, failure.HTTPStatus)
	}
	return failure.Message
}

func exitCode(err error) int {
	switch {
	case apperrors.IsKind(err, apperrors.KindAuthorization):
		return 3
	case apperrors.IsKind(err, apperrors.KindTransport):
		return 4
	case apperrors.IsKind(err, apperrors.KindBadInput):
		return 2
	}
	return 1
}
