package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	activitiesCmd := &cobra.Command{Use: "activities", Short: "Activity operations"}

	// register
	var operator, day, start, end, workOrder, process, machine, area string
	var duration int
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a production activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if operator == "" || day == "" {
				return fmt.Errorf("--operator and --day required")
			}
			payload := map[string]interface{}{
				"day":             day,
				"durationMinutes": duration,
			}
			if start != "" {
				payload["start"] = start
			}
			if end != "" {
				payload["end"] = end
			}
			if workOrder != "" {
				payload["workOrder"] = workOrder
			}
			if process != "" {
				payload["process"] = process
			}
			if machine != "" {
				payload["machine"] = machine
			}
			if area != "" {
				payload["area"] = area
			}
			url := fmt.Sprintf("%s/api/operators/%s/activities", apiFlag, operator)
			data, err := doPostJSON(url, payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	registerCmd.Flags().StringVarP(&operator, "operator", "o", "", "Operator ID (required)")
	registerCmd.Flags().StringVarP(&day, "day", "d", "", "Calendar day YYYY-MM-DD (required)")
	registerCmd.Flags().StringVar(&start, "start", "", "Start timestamp (RFC3339)")
	registerCmd.Flags().StringVar(&end, "end", "", "End timestamp (RFC3339)")
	registerCmd.Flags().IntVar(&duration, "duration", 0, "Declared duration in minutes")
	registerCmd.Flags().StringVar(&workOrder, "work-order", "", "Work order reference")
	registerCmd.Flags().StringVar(&process, "process", "", "Process name")
	registerCmd.Flags().StringVar(&machine, "machine", "", "Machine name")
	registerCmd.Flags().StringVar(&area, "area", "", "Plant area")
	_ = registerCmd.MarkFlagRequired("operator")
	_ = registerCmd.MarkFlagRequired("day")
	activitiesCmd.AddCommand(registerCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ACTIVITY_ID",
		Short: "Get activity by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/activities/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	activitiesCmd.AddCommand(getCmd)

	// move
	var moveDay string
	moveCmd := &cobra.Command{
		Use:   "move ACTIVITY_ID",
		Short: "Refile an activity under another calendar day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if moveDay == "" {
				return fmt.Errorf("--day required")
			}
			url := fmt.Sprintf("%s/api/activities/%s", apiFlag, args[0])
			data, err := doPatchJSON(url, map[string]interface{}{"day": moveDay})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	moveCmd.Flags().StringVarP(&moveDay, "day", "d", "", "Target calendar day YYYY-MM-DD (required)")
	_ = moveCmd.MarkFlagRequired("day")
	activitiesCmd.AddCommand(moveCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete ACTIVITY_ID",
		Short: "Delete an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := doDelete(fmt.Sprintf("%s/api/activities/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "deleted")
			return nil
		},
	}
	activitiesCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(activitiesCmd)
}
