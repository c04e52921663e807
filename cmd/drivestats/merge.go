// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mdhender/drivestats"
	"github.com/mdhender/drivestats/config"
	"github.com/mdhender/drivestats/model"
	store "github.com/mdhender/drivestats/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func cmdMerge() *cobra.Command {
	var format string
	var capacityPolicy string
	noMerge := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&format, "format", format, "output format, csv or sqlite (default from the output name)")
		cmd.Flags().StringVar(&capacityPolicy, "capacity-policy", model.CapacityMonotonicMax.String(), "capacity policy, max or replace")
		cmd.Flags().BoolVar(&noMerge, "no-merge", noMerge, "replace the output instead of merging into it")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "merge <output-path> <table> [<table>...]",
		Short:        "merge aggregated tables into one",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(2), // require output and at least one table
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, verbose, _ := logLevel(cmd)
			output, inputs := args[0], args[1:]

			policy, err := model.ParseCapacityPolicy(capacityPolicy)
			if err != nil {
				return err
			}
			outputFormat, err := config.OutputFormat(format, output)
			if err != nil {
				return err
			}

			started := time.Now()
			rep := drivestats.NewLogReporter(nil, verbose)
			merged, err := runMerge(context.Background(), afero.NewOsFs(), output, outputFormat, inputs, policy, noMerge, rep)
			if err != nil {
				return err
			}
			if !quiet {
				counts := rep.Counts()
				fmt.Printf("Output: %s\n", output)
				fmt.Printf("Merged: %d tables, %d drives, %d warnings\n", len(inputs), merged.DriveCount(), counts.Warn)
				fmt.Printf("Finished: %d seconds\n", int(time.Since(started).Seconds()))
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

// runMerge folds the tables at inputs, and unless noMerge the table already
// at output, into one table saved at output. Every input is read before the
// output is opened.
func runMerge(ctx context.Context, fs afero.Fs, output, format string, inputs []string, policy model.CapacityPolicy, noMerge bool, rep drivestats.Reporter) (*model.Table, error) {
	var tables []*model.Table
	for _, input := range inputs {
		t, err := readTable(ctx, fs, input, policy, rep)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	tf, err := openTableFile(fs, output, format)
	if err != nil {
		return nil, err
	}
	defer tf.Close()

	merged := model.NewTable()
	merged.Policy = policy
	if !noMerge {
		if existing, ok, err := tf.load(ctx, policy, rep); err != nil {
			return nil, err
		} else if ok {
			merged = existing
		}
	}
	for _, t := range tables {
		merged.Merge(t, rep)
	}

	run := store.NewRun("merge: " + strings.Join(inputs, ", "))
	run.Replace = noMerge
	if err := tf.save(ctx, merged, run); err != nil {
		return nil, err
	}
	return merged, nil
}

// readTable loads an existing aggregated table in the format implied by its name.
func readTable(ctx context.Context, fs afero.Fs, path string, policy model.CapacityPolicy, rep drivestats.Reporter) (*model.Table, error) {
	if ok, err := afero.Exists(fs, path); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	format, err := config.OutputFormat("", path)
	if err != nil {
		return nil, err
	}
	tf, err := openTableFile(fs, path, format)
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	t, ok, err := tf.load(ctx, policy, rep)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%s: no table", path)
	}
	return t, nil
}
