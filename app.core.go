package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger   *zap.Logger
	config   *Config
	server   *http.Server
	stdout   io.Writer
	stderr   io.Writer
	cleanups []func() error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup app configuration")
	}

	// ensure the logs folder exists and Setup the logging module.
	if err = os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create logging folder")
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)

	// Load the books catalog and bind it to the graphql schema.
	catalog, err := DefaultCatalog()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load books catalog")
	}
	schema, err := NewGraphQLSchema(config, logger, NewResolver(catalog))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build graphql schema")
	}

	// Use git commit in case the tag is not set.
	version := config.GitTag
	if version == "" {
		version = config.GitCommit
	}

	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   version,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		schema,
		NewMetrics(version, config.GitCommit),
	)

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	srv := &http.Server{
		Addr:           net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ErrorLog:       zap.NewStdLog(logger),
	}

	logger.Info("books catalog loaded", zap.Int("catalog.books", catalog.Len()))

	return &App{
		logger: logger,
		config: config,
		server: srv,
		stdout: os.Stdout,
		stderr: os.Stderr,
		cleanups: []func() error{
			flusher,
			logWriter.Close,
		},
	}, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(app.stderr, "error during app cleanup:", err)
		}
	}
}

// Serve binds the listener, reports the url the api is reachable at and
// starts serving. Its returned error will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		ln, err := net.Listen("tcp", app.server.Addr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", app.server.Addr)
		}

		url := ServerURL(app.config, ln.Addr())
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("app.url", url),
		)
		fmt.Fprintf(app.stdout, "🚀  Server ready at %s\n", url)

		if app.config.Server.CertsFile != "" {
			err = app.server.ServeTLS(ln, app.config.Server.CertsFile, app.config.Server.KeyFile)
		} else {
			err = app.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ServerURL builds the public url of the graphql endpoint from the bound address.
// Wildcard or empty hosts are reported as localhost.
func ServerURL(config *Config, addr net.Addr) string {
	scheme := "http"
	if config.Server.CertsFile != "" {
		scheme = "https"
	}

	host := config.Server.Host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}

	port := config.Server.Port
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		port = fmt.Sprint(tcpAddr.Port)
	}

	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, port), config.GraphQL.Path)
}
