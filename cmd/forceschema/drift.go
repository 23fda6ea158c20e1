package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
)

var (
	driftCmd = &cobra.Command{
		Use:   "drift",
		Short: "Report the objects and fields the model needs but the store lacks",
		RunE:  cmdDrift,
	}

	driftCfg struct {
		FailOnDrift bool
	}

	errDrift = errs.Class("drift")
)

func init() {
	driftCmd.Flags().BoolVar(&driftCfg.FailOnDrift, "fail", false, "exit non-zero when drift is found")
}

func cmdDrift(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	results, err := s.handler.Drift(ctx)
	if err != nil {
		return err
	}
	printDrift(cmd.OutOrStdout(), results)
	if driftCfg.FailOnDrift && len(results) > 0 {
		return errDrift.New("%d entities drifted", len(results))
	}
	return nil
}

func printDrift(w io.Writer, results []*services.FieldSchemaResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no drift")
		return
	}
	for _, r := range results {
		if r.TableMissing {
			fmt.Fprintf(w, "%s: object %s is missing\n", r.Entity, r.Table)
			continue
		}
		fmt.Fprintf(w, "%s: %s lacks %s\n", r.Entity, r.Table, strings.Join(r.Missing, ", "))
	}
}
