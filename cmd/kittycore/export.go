package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kittycore/internal/blob"
	"kittycore/internal/core"
)

func newExportCmd(a *app) *cobra.Command {
	var since uint64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive a ledger snapshot and the event journal to the export store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeStore, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			store, err := blob.Open(ctx, a.cfg.BlobSettings())
			if err != nil {
				return fmt.Errorf("open export store: %w", err)
			}
			manifest, err := core.NewSnapshotExporter(svc, store, a.cfg.Export.Prefix).Export(ctx, since)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(manifest)
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "only journal events after this sequence")
	return cmd
}
