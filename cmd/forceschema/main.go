// forceschema reconciles declared entities with the remote object store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/memstore"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/modelfile"
	"github.com/nexuscrm/forcemapper/internal/infrastructure/soap"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:   "forceschema",
		Short: "Reconcile entity declarations with a remote object store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv(flags.EnvFiles...)
			return nil
		},
		SilenceUsage: true,
	}

	flags struct {
		ModelPath string
		EnvFiles  []string
		Local     bool
		Debug     bool
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ModelPath, "model", "m", "model.yaml", "path to the entity model file")
	pf.StringSliceVar(&flags.EnvFiles, "env-file", nil, "candidate .env files, first existing one wins")
	pf.BoolVar(&flags.Local, "local", false, "run against an in-memory org instead of the remote store")
	pf.BoolVar(&flags.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(reconcileCmd, driftCmd, watchCmd, serveCmd)
}

func newLogger() (*zap.Logger, error) {
	if flags.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// session is everything a command needs to talk to the store
type session struct {
	logger   *zap.Logger
	unit     config.PersistenceUnit
	handler  *services.SchemaHandler
	provider ports.ConnectionProvider
}

// openSession reads configuration and the model file and wires the handler.
// adjust may tweak the unit before it is validated.
func openSession(adjust func(*config.PersistenceUnit)) (_ *session, err error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = logger.Sync()
		}
	}()

	unit, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(&unit)
	}
	if err := unit.Validate(); err != nil {
		return nil, err
	}

	entities, err := modelfile.LoadFile(flags.ModelPath)
	if err != nil {
		return nil, errs.New("loading model %s: %v", flags.ModelPath, err)
	}

	var provider ports.ConnectionProvider
	if flags.Local {
		logger.Info("🧪 Using in-memory org")
		provider = memstore.New(logger.Named("memstore"))
	} else {
		provider = soap.NewProvider(logger.Named("soap"), unit)
	}

	handler := services.NewSchemaHandler(logger, unit, provider)
	if err := handler.Register(entities...); err != nil {
		return nil, err
	}
	logger.Info("📦 Model loaded", zap.String("path", flags.ModelPath), zap.Int("entities", len(entities)))

	return &session{logger: logger, unit: unit, handler: handler, provider: provider}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
