package main

import (
	"os"

	"github.com/spf13/cobra"
)

func snapshotCMD() *cobra.Command {
	var out string
	var pretty bool

	var snapshot = &cobra.Command{
		Use:   "snapshot",
		Short: "Aggregate the four collections and print the snapshot JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.Service.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return writeJSON(cmd.OutOrStdout(), snap, pretty)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeJSON(f, snap, pretty); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	snapshot.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	snapshot.Flags().BoolVar(&pretty, "pretty", true, "indent the JSON output")

	return snapshot
}
