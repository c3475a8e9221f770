package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	adminCmd := &cobra.Command{Use: "admin", Short: "Repair operations"}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a full consistency repair pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/admin/reconcile", apiFlag), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	adminCmd.AddCommand(reconcileCmd)

	consolidateCmd := &cobra.Command{
		Use:   "consolidate OPERATOR_ID",
		Short: "Merge an operator's duplicate same-day jornadas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/admin/operators/%s/consolidate", apiFlag, args[0])
			data, err := doPostJSON(url, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	adminCmd.AddCommand(consolidateCmd)

	rootCmd.AddCommand(adminCmd)
}
