// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/config"
	"github.com/mdhender/drivestats/model"
	"github.com/mdhender/drivestats/notify"
	"github.com/mdhender/drivestats/pipelines/stages"
	store "github.com/mdhender/drivestats/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func cmdAggregate() *cobra.Command {
	var configFile string
	var capacityPolicy string
	settings := config.Default()
	noMerge := false
	showTiming := false
	skipIngested := true
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVarP(&configFile, "config-file", "c", configFile, "load configuration from file (default $HOME/.drivestats)")
		cmd.Flags().IntVar(&settings.Workers, "workers", settings.Workers, "number of workers (0 for one per CPU)")
		cmd.Flags().StringVar(&settings.Extension, "extension", settings.Extension, "extension of the input files")
		cmd.Flags().StringVar(&settings.Format, "format", settings.Format, "output format, csv or sqlite (default from the output name)")
		cmd.Flags().Uint64Var(&settings.MinCapacity, "min-capacity", settings.MinCapacity, "smallest plausible capacity in bytes")
		cmd.Flags().Uint64Var(&settings.MaxCapacity, "max-capacity", settings.MaxCapacity, "largest plausible capacity in bytes")
		cmd.Flags().StringVar(&capacityPolicy, "capacity-policy", settings.CapacityPolicy.String(), "capacity policy, max or replace")
		cmd.Flags().StringVar(&settings.PowerOnHoursColumn, "power-on-hours-column", settings.PowerOnHoursColumn, "column holding the power-on hours")
		cmd.Flags().StringVar(&settings.NotifyURL, "notify-url", settings.NotifyURL, "shoutrrr url for the run summary")
		cmd.Flags().BoolVar(&noMerge, "no-merge", noMerge, "replace the output instead of merging into it")
		cmd.Flags().BoolVar(&skipIngested, "skip-ingested", skipIngested, "skip files already in the output's ledger (sqlite only)")
		cmd.Flags().BoolVar(&showTiming, "show-timing", showTiming, "show timing for each stage")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "aggregate <input-path> <output-path>",
		Short:        "aggregate daily snapshot files into a drive table",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2), // require input and output paths
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// flags override the config file, which overrides the defaults
			fileSettings := config.Default()
			path, explicit := configFile, configFile != ""
			if !explicit {
				path = config.DefaultPath()
			}
			if path != "" {
				found, err := config.LoadFile(afero.NewOsFs(), path, &fileSettings)
				if err != nil {
					return err
				} else if explicit && !found {
					return fmt.Errorf("config file %s: not found", path)
				}
			}

			policy, err := model.ParseCapacityPolicy(capacityPolicy)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				fileSettings.Workers = settings.Workers
			}
			if flags.Changed("extension") {
				fileSettings.Extension = settings.Extension
			}
			if flags.Changed("format") {
				fileSettings.Format = settings.Format
			}
			if flags.Changed("min-capacity") {
				fileSettings.MinCapacity = settings.MinCapacity
			}
			if flags.Changed("max-capacity") {
				fileSettings.MaxCapacity = settings.MaxCapacity
			}
			if flags.Changed("capacity-policy") {
				fileSettings.CapacityPolicy = policy
			}
			if flags.Changed("power-on-hours-column") {
				fileSettings.PowerOnHoursColumn = settings.PowerOnHoursColumn
			}
			if flags.Changed("notify-url") {
				fileSettings.NotifyURL = settings.NotifyURL
			}
			settings = fileSettings
			if err := settings.Validate(); err != nil {
				return err
			}

			// reject an unknown format before any work is done
			settings.Format, err = config.OutputFormat(settings.Format, args[1])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, verbose, debug := logLevel(cmd)
			input, output := args[0], args[1]

			started := time.Now()
			rep := drivestats.NewLogReporter(nil, verbose)
			run, table, err := runAggregate(context.Background(), afero.NewOsFs(), input, output, settings, aggregateOptions{
				noMerge:      noMerge,
				skipIngested: skipIngested,
				quiet:        quiet,
				debug:        debug,
				showTiming:   showTiming,
			}, rep)
			if err != nil {
				return err
			}

			stats := run.Stats
			counts := rep.Counts()
			if !quiet {
				fmt.Printf("Files: %d ingested, %d failed, %d skipped\n", stats.Files, stats.FilesFailed, stats.FilesSkipped)
				fmt.Printf("Rows: %d applied, %d failed\n", stats.Rows, stats.RowsFailed)
				fmt.Printf("Diagnostics: %d errors, %d warnings, %d info\n", counts.Error, counts.Warn, counts.Info)
			}

			// a failed notification is logged and does not change the exit status
			_ = notify.New(settings.NotifyURL, nil).Notify(notify.Summary{
				RunID:        run.ID.String(),
				Input:        input,
				Output:       output,
				Files:        stats.Files,
				FilesFailed:  stats.FilesFailed,
				FilesSkipped: stats.FilesSkipped,
				Rows:         stats.Rows,
				RowsFailed:   stats.RowsFailed,
				Drives:       table.DriveCount(),
				Anomalies:    rep.CodeCount(model.CodeCapacityChanged, model.CodeRepeatedFailure),
				Elapsed:      time.Since(started),
			})

			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

type aggregateOptions struct {
	noMerge      bool // replace the output instead of merging into it
	skipIngested bool // skip files in the output's ledger
	quiet        bool
	debug        bool
	showTiming   bool
}

// runAggregate ingests input, folds the result into the table stored at
// output and saves it. settings.Format must already be resolved.
func runAggregate(ctx context.Context, fs afero.Fs, input, output string, settings config.Aggregate, opts aggregateOptions, rep drivestats.Reporter) (*store.Run, *model.Table, error) {
	parserCfg, err := settings.ParserConfig()
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	if !opts.quiet {
		fmt.Printf("Input: %s\nOutput: %s\n", input, output)
	}

	tf, err := openTableFile(fs, output, settings.Format)
	if err != nil {
		return nil, nil, err
	}
	defer tf.Close()

	// the existing table is read in full before any input is processed
	var existing *model.Table
	if !opts.noMerge {
		startedStage := time.Now()
		var ok bool
		if existing, ok, err = tf.load(ctx, settings.CapacityPolicy, rep); err != nil {
			return nil, nil, err
		} else if ok && opts.showTiming {
			log.Printf("%s: loaded %d drives in %v\n", output, existing.DriveCount(), time.Since(startedStage))
		}
	}

	ingestOpts := stages.IngestOptions{
		Workers:     settings.Workers,
		Extension:   settings.Extension,
		Parser:      parserCfg,
		Policy:      settings.CapacityPolicy,
		Reporter:    rep,
		Fingerprint: settings.Format == config.FormatSQLite,
	}
	// replacing the table must not skip files whose rows it drops
	if opts.skipIngested && !opts.noMerge {
		if ingestOpts.Ledger, err = tf.ledger(ctx); err != nil {
			return nil, nil, err
		}
	}

	run := store.NewRun(input)
	run.Replace = opts.noMerge
	startedStage := time.Now()
	table, stats := stages.Ingest(fs, stages.WalkFiles(fs, input, rep), ingestOpts)
	run.Stats = stats
	if opts.debug {
		log.Printf("ingest: %d workers, %+v\n", stats.Workers, stats.WorkerStats)
	}
	if opts.showTiming {
		log.Printf("%s: ingested %d files in %v\n", input, stats.Files, time.Since(startedStage))
	}
	if !opts.quiet {
		fmt.Printf("Finished: %d seconds\n", int(time.Since(started).Seconds()))
	}

	if existing != nil {
		existing.Merge(table, rep)
		table = existing
	}

	startedStage = time.Now()
	if err := tf.save(ctx, table, run); err != nil {
		return nil, nil, err
	}
	if opts.showTiming {
		log.Printf("%s: wrote %d drives in %v\n", output, table.DriveCount(), time.Since(startedStage))
	}
	return run, table, nil
}
