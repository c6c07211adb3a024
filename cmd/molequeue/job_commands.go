package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"molequeue/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var queueName string
	var description string

	cmd := &cobra.Command{
		Use:   "submit PROGRAM [ARGS...]",
		Short: "Submit a job to a queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					Queue:       queueName,
					Program:     args[0],
					Arguments:   args[1:],
					Description: description,
				})
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return fmt.Errorf("submission rejected (%s): %s", resp.Code, resp.Message)
				}
				fmt.Fprintf(stdout, "Job %d accepted\n", resp.JobID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&queueName, "queue", "q", "local", "Target queue name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Human-readable job description")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(id)
				if err != nil {
					return err
				}
				if !resp.Canceled {
					return fmt.Errorf("cancellation rejected (%s): %s", resp.Code, resp.Message)
				}
				fmt.Fprintf(stdout, "Job %d canceled\n", resp.JobID)
				return nil
			})
		},
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List stored jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(statuses)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(stdout, "No jobs found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					command := job.Program
					if len(job.Arguments) > 0 {
						command = command + " " + strings.Join(job.Arguments, " ")
					}
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Queue,
						job.Status,
						command,
						job.Description,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Queue", "Status", "Command", "Description"},
					rows,
					1,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by job status (repeatable)")
	return cmd
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all stored jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed %d jobs\n", resp.Removed)
				return nil
			})
		},
	}
}
