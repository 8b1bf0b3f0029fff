package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/booking"
	"github.com/spf13/cobra"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "appointment",
		Short: "Book doctor appointments with human confirmation",
		Long: `Appointment selects a doctor for a free-text request, asks you to
confirm the choice, then schedules the appointment. Every thread is
checkpointed so it can be resumed later, even from another process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Path to a YAML config file")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&app.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(newBookCommand(app))
	root.AddCommand(newStartCommand(app))
	root.AddCommand(newResumeCommand(app))
	root.AddCommand(newStatusCommand(app))
	root.AddCommand(newListCommand(app))
	root.AddCommand(newHistoryCommand(app))
	root.AddCommand(newForgetCommand(app))
	return root
}

func newBookCommand(app *App) *cobra.Command {
	var threadID, answer string
	cmd := &cobra.Command{
		Use:   "book <request...>",
		Short: "Run a booking end to end, asking for confirmation",
		Example: `  appointment book "I have acne on my face and would like to book an appointment with a doctor."
  appointment book --answer yes "my heart races at night"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := app.Executor()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if threadID == "" {
				threadID = hitl.NewThreadID()
			}
			request := strings.Join(args, " ")

			result, err := executor.Run(ctx, threadID, booking.InitialState(request))
			if err != nil {
				return err
			}
			if !app.jsonOutput {
				writeSection(app.Out, "Input query", "user query : "+request)
				writeSection(app.Out, "Doctor Details", doctorDetails(result.State))
			}

			if result.Suspended() {
				if !cmd.Flags().Changed("answer") {
					answer, err = app.ask(result.Question())
					if err != nil {
						return fmt.Errorf("%w; resume later with: appointment resume %s <answer>", err, threadID)
					}
				}
				result, err = executor.Resume(ctx, threadID, answer)
				if err != nil {
					return err
				}
			}
			return app.printOutcome(result)
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id (generated when omitted)")
	cmd.Flags().StringVar(&answer, "answer", "", "Answer the confirmation question without prompting")
	return cmd
}

func newStartCommand(app *App) *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "start <request...>",
		Short: "Start a booking and stop at the confirmation question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := app.Executor()
			if err != nil {
				return err
			}
			if threadID == "" {
				threadID = hitl.NewThreadID()
			}
			request := strings.Join(args, " ")

			result, err := executor.Run(cmd.Context(), threadID, booking.InitialState(request))
			if err != nil {
				return err
			}
			if app.jsonOutput {
				return writeJSON(app.Out, result)
			}
			writeSection(app.Out, "Doctor Details", doctorDetails(result.State))
			if result.Suspended() {
				fmt.Fprintln(app.Out)
				writeWarning(app.Out, "Thread %s is waiting for an answer:", threadID)
				fmt.Fprintf(app.Out, "  %s\n", result.Question())
				fmt.Fprintf(app.Out, "  appointment resume %s <answer>\n", threadID)
				return nil
			}
			return app.printOutcome(result)
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "Thread id (generated when omitted)")
	return cmd
}

func newResumeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <thread> <answer>",
		Short: "Answer a waiting thread's question and continue it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			executor, err := app.Executor()
			if err != nil {
				return err
			}
			result, err := executor.Resume(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return app.printOutcome(result)
		},
	}
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <thread>",
		Short: "Show a thread's latest checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkpoint, err := app.checkpointer.LoadCheckpoint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if checkpoint == nil {
				return hitl.NewStateError("no checkpoint for thread %q", args[0])
			}
			if app.jsonOutput {
				return writeJSON(app.Out, checkpoint)
			}
			writeSection(app.Out, "Thread", renderCheckpoint(checkpoint))
			writeSection(app.Out, "State", renderState(checkpoint.State))
			return nil
		},
	}
}

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lister, ok := app.checkpointer.(hitl.ThreadLister)
			if !ok {
				return errors.New("the configured store cannot list threads")
			}
			summaries, err := lister.ListThreads(cmd.Context())
			if err != nil {
				return err
			}
			if app.jsonOutput {
				return writeJSON(app.Out, summaries)
			}
			writeSection(app.Out, "Threads", renderSummaries(summaries))
			return nil
		},
	}
}

func newHistoryCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <thread>",
		Short: "Show the step log of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.stepLogger.GetStepHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.jsonOutput {
				if entries == nil {
					entries = []*hitl.StepLogEntry{}
				}
				return writeJSON(app.Out, entries)
			}
			writeSection(app.Out, "History of "+args[0], renderHistory(entries))
			return nil
		},
	}
}

func newForgetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <thread>",
		Short: "Delete a thread's checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.checkpointer.DeleteCheckpoint(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !app.jsonOutput {
				writeSuccess(app.Out, "Forgot thread %s", args[0])
			}
			return nil
		},
	}
}

// printOutcome prints a finished or still waiting thread.
func (a *App) printOutcome(result *hitl.Result) error {
	if a.jsonOutput {
		return writeJSON(a.Out, result)
	}
	if result.Suspended() {
		writeWarning(a.Out, "\nThread %s is still waiting: %s", result.ThreadID, result.Question())
		return nil
	}
	details, ok := result.State.Get(booking.KeyAppointmentDetails)
	if !ok {
		details = "No appointment scheduled."
	}
	writeSection(a.Out, "Appointment Details", details)
	return nil
}

func doctorDetails(state hitl.State) string {
	if details, ok := state.Get(booking.KeyDoctorDetails); ok {
		return details
	}
	return "No doctor found."
}
