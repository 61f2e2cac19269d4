package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/wbrown/janus-solvergen/datalog/config"
	"github.com/wbrown/janus-solvergen/datalog/storage"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the artifact cache",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List cached renderings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store storage.Store) error {
				return listArtifacts(cmd.OutOrStdout(), store, format)
			})
		},
	}
	list.Flags().StringVarP(&format, "format", "f", "yaml", "Rendering to list: yaml or table")

	rm := &cobra.Command{
		Use:   "rm KEY...",
		Short: "Remove cached renderings of every format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store storage.Store) error {
				for _, key := range args {
					for _, kind := range []storage.ArtifactKind{storage.KindYAML, storage.KindTable} {
						if err := store.Delete(kind, key); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}

func (a *app) withStore(fn func(storage.Store) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no cache directory configured (set cache.dir or --cache)")
	}
	defer store.Close()
	return fn(store)
}

func listArtifacts(w io.Writer, store storage.Store, format string) error {
	kind, err := storage.ParseKind(format)
	if err != nil {
		return err
	}
	artifacts, err := store.List(kind)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment([]tw.Align{tw.AlignNone, tw.AlignNone, tw.AlignNone, tw.AlignRight}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Key", "File", "Created", "Bytes"})
	for _, art := range artifacts {
		table.Append([]string{
			art.Key,
			art.File,
			art.Created.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", len(art.Data)),
		})
	}
	return table.Render()
}

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a default solvergen.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.ProjectConfigFile)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
