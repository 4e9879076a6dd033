package main

import (
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/lumen-signage/lumen/internal/adapters/output"
)

func assetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the confined media library",
	}
	cmd.AddCommand(assetsLsCommand())
	cmd.AddCommand(assetsTreeCommand())
	cmd.AddCommand(assetsMkdirCommand())
	cmd.AddCommand(assetsImportCommand())
	cmd.AddCommand(assetsRmCommand())
	cmd.AddCommand(assetsCatCommand())
	return cmd
}

func assetsLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List entries in a library directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := a.store.List(dir)
			if err != nil {
				return err
			}
			return a.printer.Print(output.EntriesResult{Dir: dir, Entries: entries})
		},
	}
}

func assetsTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "List every media file in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			entries, err := a.store.ListRecursive()
			if err != nil {
				return err
			}
			return a.printer.Print(output.TreeResult{Entries: entries})
		},
	}
}

func assetsMkdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <dir>",
		Short: "Create a library folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			parent, name := path.Split(path.Clean(args[0]))
			created, err := a.store.CreateFolder(parent, name)
			if err != nil {
				return err
			}
			return a.printer.Print(output.MkdirResult{Path: args[0], Created: created})
		},
	}
}

func assetsImportCommand() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Copy media files into the library",
		Long: "Copies each file into the library. Files that cannot be read " +
			"are skipped and reported; the rest are still imported.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			copied, err := a.store.Import(args, dest)
			if err != nil {
				return err
			}
			return a.printer.Print(output.ImportResult{Requested: len(args), Copied: copied})
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "destination directory inside the library")
	return cmd
}

func assetsRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			deleted, err := a.store.Delete(args[0])
			if err != nil {
				return err
			}
			return a.printer.Print(output.DeleteResult{Path: args[0], Deleted: deleted})
		},
	}
}

func assetsCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Write a library file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			data, err := a.store.ReadBuffer(args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}
