package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/adapters/idgen"
	"github.com/lumen-signage/lumen/internal/adapters/output"
	"github.com/lumen-signage/lumen/internal/backend"
	"github.com/lumen-signage/lumen/internal/modules/player"
	"github.com/lumen-signage/lumen/pkg/signage"
)

func codeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "code",
		Short: "Show this device's pairing code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			identity, err := player.LoadOrCreateIdentity(
				player.NewIdentityStore(a.stateDir), idgen.Generator{})
			if err != nil {
				return err
			}
			return a.printer.Print(output.IdentityResult{Identity: identity})
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend's view of this screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fromContext(cmd)
			if a.backend == "" {
				return errors.New("backend URL required (set --backend)")
			}

			identity, err := player.LoadOrCreateIdentity(
				player.NewIdentityStore(a.stateDir), idgen.Generator{})
			if err != nil {
				return err
			}

			client, err := backend.NewClient(backend.Options{
				BaseURL: a.backend,
				APIKey:  a.apiKey,
				Timeout: a.timeout,
				Logger:  zap.NewNop(),
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			screen, err := client.ScreenByCode(ctx, identity.PairingCode)
			if err != nil {
				if signage.IsNotFound(err) {
					return signage.NewError(signage.KindNotFound,
						"screen not registered yet; run lumend or pair with code "+identity.PairingCode)
				}
				return err
			}
			return a.printer.Print(output.StatusResult{Screen: screen})
		},
	}
}
