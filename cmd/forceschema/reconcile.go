package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Create (or, with --delete, remove) the remote schema of the model",
		RunE:  cmdReconcile,
	}

	reconcileCfg struct {
		Tables  bool
		Columns bool
		Delete  bool
		Purge   bool
		Lenient bool
	}
)

func init() {
	f := reconcileCmd.Flags()
	f.BoolVar(&reconcileCfg.Tables, "create-tables", false, "create missing objects")
	f.BoolVar(&reconcileCfg.Columns, "create-columns", false, "create missing fields")
	f.BoolVar(&reconcileCfg.Delete, "delete", false, "delete the custom objects and fields of the model")
	f.BoolVar(&reconcileCfg.Purge, "purge", false, "purge deleted components instead of keeping them in the recycle bin")
	f.BoolVar(&reconcileCfg.Lenient, "lenient", false, "log per-item deploy failures instead of failing")
}

func cmdReconcile(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(func(u *config.PersistenceUnit) {
		// Flags can only enable what the environment left off
		if reconcileCfg.Tables {
			u.AutoCreateTables = true
		}
		if reconcileCfg.Columns {
			u.AutoCreateColumns = true
		}
		if reconcileCfg.Delete {
			u.DeleteSchema = true
		}
		if reconcileCfg.Purge {
			u.PurgeOnDeleteSchema = true
		}
		if reconcileCfg.Lenient {
			u.DeployStrict = false
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	var report *services.SchemaReport
	if s.unit.DeleteSchema {
		report, err = s.handler.DeleteSchema(ctx)
	} else {
		report, err = s.handler.CreateSchema(ctx)
	}
	if err != nil {
		s.logger.Error("❌ Reconcile failed", zap.Error(err))
		return err
	}

	printReport(cmd.OutOrStdout(), report, s.unit.DeleteSchema)
	return nil
}

func printReport(w io.Writer, report *services.SchemaReport, deleted bool) {
	verb := "created"
	if deleted {
		verb = "deleted"
	}
	if !report.Changed() {
		fmt.Fprintln(w, "schema is up to date")
		return
	}
	if len(report.Objects) > 0 {
		fmt.Fprintf(w, "objects %s: %s\n", verb, strings.Join(report.Objects, ", "))
	}
	if len(report.Fields) > 0 {
		fmt.Fprintf(w, "fields %s: %s\n", verb, strings.Join(report.Fields, ", "))
	}
	if report.Deploy != nil {
		fmt.Fprintf(w, "deploy %s: %s\n", report.Deploy.ID, report.Deploy.Status)
		for _, m := range report.Deploy.Failures() {
			fmt.Fprintf(w, "  failed %s: %s\n", m.FullName, m.Problem)
		}
	}
}
