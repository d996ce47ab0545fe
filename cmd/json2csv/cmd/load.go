package cmd

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/database"
	"github.com/dbsmedya/json2csv/internal/loader"
	"github.com/dbsmedya/json2csv/internal/lock"
	"github.com/dbsmedya/json2csv/internal/verifier"
)

var (
	loadSel   selector
	loadTable string
	loadMode  string
	loadForce bool
)

// dbOpener overrides how the destination is opened; nil uses the MySQL driver.
var dbOpener database.OpenFunc

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a converted table into MySQL",
	Long: `Load converts the input in memory and inserts the rows into a table on
the configured destination database.

The load process follows these steps:
  1. Convert the input exactly as convert would
  2. Create the table (_row_num primary key, one TEXT column per header column)
  3. Insert rows in multi-row batches inside one transaction
  4. Verify the loaded rows (count or SHA256)

In replace mode the table is dropped and recreated; in append mode row
numbers continue after the existing rows and missing columns are added.
SIGINT or SIGTERM rolls back the transaction. Concurrent loads into the
same table are rejected unless --force is given.

Example:
  json2csv load --config json2csv.yaml --job prs
  json2csv load --config json2csv.yaml --input issues.json --table issues --mode append`,
	RunE: runLoad,
}

func init() {
	addSelectorFlags(loadCmd, &loadSel)
	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "",
		"Destination table (default: the job's table, then the job name)")
	loadCmd.Flags().StringVar(&loadMode, "mode", "",
		"Override load mode (replace, append)")
	loadCmd.Flags().BoolVar(&loadForce, "force", false,
		"Skip the table lock check (use with caution)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd, &loadSel)
	if err != nil {
		return err
	}
	defer func() { _ = t.log.Sync() }()

	tableName := loadTable
	if tableName == "" {
		tableName = t.job.Table
	}
	if tableName == "" && loadSel.job != "" {
		tableName = loadSel.job
	}
	if tableName == "" {
		return errors.New("no destination table: set the job's table or pass --table")
	}

	modeName := t.cfg.Destination.Mode
	if loadMode != "" {
		modeName = loadMode
	}
	mode, err := loader.ParseMode(modeName)
	if err != nil {
		return err
	}

	conv, err := t.newConverter(cmd)
	if err != nil {
		return err
	}
	table, _, err := conv.Build(t.input)
	if err != nil {
		return err
	}

	log := t.log.WithFields(map[string]interface{}{
		"database": t.cfg.Destination.Database,
		"mode":     mode,
	})
	log.Infow("Starting load",
		"input", t.input,
		"table", tableName,
		"rows", table.Len(),
	)

	ctx, stop := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnf("Received %s - rolling back current load...", sig)
	})
	defer stop()

	dbManager := database.NewManager(&t.cfg.Destination)
	dbManager.SetOpener(dbOpener)
	if err := dbManager.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = dbManager.Close() }()

	l, err := loader.NewLoader(dbManager.Destination, mode, t.processing.BatchSize, log)
	if err != nil {
		return err
	}

	method, err := verifier.ParseMethod(t.verification.Method, t.verification.SkipVerification)
	if err != nil {
		return err
	}
	v, err := verifier.NewVerifier(method, log.WithTable(tableName))
	if err != nil {
		return err
	}
	// read back in the same row ranges the load wrote
	v.SetChunkSize(t.processing.BatchSize)

	var (
		stats    *loader.LoadStats
		verified *verifier.VerifyResult
	)
	run := func() error {
		var err error
		if stats, err = l.Load(ctx, tableName, table); err != nil {
			return err
		}
		verified, err = v.VerifyMySQL(ctx, dbManager.Destination, tableName, table, stats.FirstRow)
		return err
	}

	if loadForce {
		log.Warn("Table lock check bypassed with --force")
		err = run()
	} else {
		tableLock := lock.NewTableLock(dbManager.Destination, t.cfg.Destination.Database, tableName)
		log.Debugw("Acquiring table lock", "lock", tableLock.LockName())
		err = tableLock.WithLock(ctx, lock.TimeoutShort, run)
	}

	switch {
	case err == nil:
	case errors.Is(err, lock.ErrLockTimeout):
		return errors.WithHint(
			errors.Newf("table %s is being loaded by another instance", tableName),
			"wait for the other load to finish or use --force to override")
	case stats == nil && errors.Is(err, context.Canceled):
		log.Warn("Load cancelled by user, no rows were committed")
		return nil
	case stats == nil:
		return errors.Wrapf(err, "load into %s failed", tableName)
	default:
		return err
	}

	cmd.Printf("\n=== Load Complete ===\n")
	cmd.Printf("Table: %s.%s\n", t.cfg.Destination.Database, tableName)
	cmd.Printf("Mode: %s\n", mode)
	cmd.Printf("Rows Loaded: %d\n", stats.RowsLoaded)
	cmd.Printf("Row Numbers: %d-%d\n", stats.FirstRow, stats.FirstRow+stats.RowsLoaded-1)
	cmd.Printf("Batches: %d\n", stats.Batches)
	cmd.Printf("Duration: %s\n", stats.Duration)
	if verified.Method == verifier.MethodSkip {
		cmd.Printf("Verification: %s\n", color.Yellow.Sprint("skipped"))
	} else {
		cmd.Printf("Verification: %s\n", color.Green.Sprintf("passed (%s)", verified.Method))
	}
	return nil
}
