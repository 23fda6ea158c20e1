package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/soap"
	"github.com/nexuscrm/forcemapper/internal/interfaces/rest"
	"github.com/nexuscrm/forcemapper/pkg/auth"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema inspector API",
		RunE:  cmdServe,
	}

	serveCfg struct {
		Addr     string
		Sessions string
		LoginURL string
		Insecure bool
	}
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveCfg.Addr, "addr", ":8080", "listen address")
	f.StringVar(&serveCfg.Sessions, "sessions", "server", "where sessions live: server, cookie or none")
	f.StringVar(&serveCfg.LoginURL, "login-url", "", "redirect target for unauthenticated requests; 401 when empty")
	f.BoolVar(&serveCfg.Insecure, "insecure-cookies", false, "allow session cookies over plain http")
}

func newStore(kind string) (security.Store, error) {
	switch kind {
	case "none":
		return nil, nil
	case "cookie":
		return auth.NewCookieStore(auth.SecretFromEnv(), !serveCfg.Insecure)
	case "server":
		return auth.NewSessionStore(auth.SecretFromEnv(), 0), nil
	}
	return nil, errs.New("unknown session store %q", kind)
}

func cmdServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	store, err := newStore(serveCfg.Sessions)
	if err != nil {
		return err
	}
	if flags.Local {
		store = nil
	}

	// Describe every table up front so the inspector has something to show
	if results, err := s.handler.Drift(ctx); err != nil {
		s.logger.Warn("⚠️ Initial describe failed", zap.Error(err))
	} else if len(results) > 0 {
		s.logger.Warn("⚠️ Schema drift detected", zap.Int("entities", len(results)))
	}

	opts := rest.RouterOptions{Store: store, LoginURL: serveCfg.LoginURL}
	if store != nil {
		unit := s.unit
		logger := s.logger.Named("login")
		opts.Authenticator = func(ctx context.Context, username, password string) (*security.SecurityContext, error) {
			_, sc, err := soap.Login(ctx, logger, nil, unit.Endpoint, unit.APIVersion, username, password)
			return sc, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              serveCfg.Addr,
		Handler:           rest.NewRouter(s.logger, s.handler, services.NewQueryBuilder(s.handler), opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Inspector listening", zap.String("addr", serveCfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		s.logger.Info("🛑 Shutting down inspector")
		return server.Shutdown(shutdownCtx)
	}
}
