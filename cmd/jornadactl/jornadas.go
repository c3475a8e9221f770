package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	jornadasCmd := &cobra.Command{Use: "jornadas", Short: "Jornada operations"}

	// list
	var from, to string
	listCmd := &cobra.Command{
		Use:   "list OPERATOR_ID",
		Short: "List an operator's jornadas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := fmt.Sprintf("%s/api/operators/%s/jornadas", apiFlag, args[0])
			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if to != "" {
				q.Set("to", to)
			}
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVar(&from, "from", "", "Earliest day YYYY-MM-DD")
	listCmd.Flags().StringVar(&to, "to", "", "Latest day YYYY-MM-DD")
	jornadasCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get OPERATOR_ID DAY",
		Short: "Get an operator's jornada for a calendar day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/operators/%s/jornadas/%s", apiFlag, args[0], args[1]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	jornadasCmd.AddCommand(getCmd)

	rootCmd.AddCommand(jornadasCmd)
}
