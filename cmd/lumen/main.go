package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/adapters/output"
	"github.com/lumen-signage/lumen/internal/assets"
	"github.com/lumen-signage/lumen/internal/lumend"
	"github.com/lumen-signage/lumen/pkg/signage"
)

type app struct {
	store    *assets.Store
	printer  output.Printer
	stateDir string
	backend  string
	apiKey   string
	timeout  time.Duration
	quiet    bool
}

type appKey struct{}

func main() {
	root := &cobra.Command{
		Use:           "lumen",
		Short:         "Lumen signage management CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var (
		assetRoot string
		stateDir  string
		backend   string
		apiKey    string
		timeout   time.Duration
		quiet     bool
		jsonOut   bool
	)

	root.PersistentFlags().StringVar(&assetRoot, "root", "", "asset root directory")
	root.PersistentFlags().StringVar(&stateDir, "state-dir", "", "device state directory")
	root.PersistentFlags().StringVarP(&backend, "backend", "b", "", "backend URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "backend API key")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "request timeout")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if assetRoot == "" {
			dir, err := lumend.DefaultAssetRoot()
			if err != nil {
				return err
			}
			assetRoot = dir
		}
		if stateDir == "" {
			dir, err := lumend.DefaultStateDir()
			if err != nil {
				return err
			}
			stateDir = dir
		}

		store, err := assets.NewStore(zap.NewNop(), assetRoot)
		if err != nil {
			return err
		}

		var printer output.Printer
		if jsonOut {
			printer = output.JSONPrinter{}
		} else {
			printer = output.HumanPrinter{}
		}

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{
			store:    store,
			printer:  printer,
			stateDir: stateDir,
			backend:  backend,
			apiKey:   apiKey,
			timeout:  timeout,
			quiet:    quiet,
		}))
		return nil
	}

	root.AddCommand(assetsCommand())
	root.AddCommand(codeCommand())
	root.AddCommand(statusCommand())

	if err := root.Execute(); err != nil {
		os.Exit(signage.ExitCode(err))
	}
}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}
