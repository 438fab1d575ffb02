package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pamong_newsroom/autopilot"
	"pamong_newsroom/state"
)

func newAutopilotCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autopilot",
		Short: "Inspect and control the autopilot",
	}
	cmd.AddCommand(newAutopilotStatusCommand(ctx))
	cmd.AddCommand(newAutopilotToggleCommand(ctx, true))
	cmd.AddCommand(newAutopilotToggleCommand(ctx, false))
	cmd.AddCommand(newAutopilotLogsCommand(ctx))
	cmd.AddCommand(newAutopilotRunCommand(ctx))
	return cmd
}

// withState opens the configured state store for the duration of fn.
func (c *commandContext) withState(cmdCtx context.Context, fn func(state.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := openStateStore(cmdCtx, cfg)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func newAutopilotStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the autopilot is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withState(cmd.Context(), func(st state.Store) error {
				enabled, err := st.Enabled(cmd.Context())
				if err != nil {
					return err
				}
				logs, err := st.Logs(cmd.Context(), 1)
				if err != nil {
					return err
				}
				status := autopilot.StatusIdle
				if enabled {
					status = autopilot.StatusActive
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Autopilot: %s\n", status)
				if len(logs) > 0 {
					fmt.Fprintf(out, "Last activity: [%s] %s\n", logs[0].Timestamp, logs[0].Message)
				}
				return nil
			})
		},
	}
}

// newAutopilotToggleCommand flips the persisted flag. A running serve
// process honours a disable at its next check and picks up an enable on restart.
func newAutopilotToggleCommand(ctx *commandContext, enable bool) *cobra.Command {
	use, short := "disable", "Disable the autopilot"
	message, typ := "👤 Auto-Pilot dinonaktifkan melalui CLI.", state.LogWarning
	if enable {
		use, short = "enable", "Enable the autopilot"
		message, typ = "🤖 Auto-Pilot diaktifkan melalui CLI.", state.LogInfo
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withState(cmd.Context(), func(st state.Store) error {
				if err := st.SetEnabled(cmd.Context(), enable); err != nil {
					return fmt.Errorf("persist autopilot flag: %w", err)
				}
				entry := state.NewLogEntry(time.Now(), message, typ)
				if err := st.AppendLog(cmd.Context(), entry, autopilot.LogLimit); err != nil {
					ctx.logger.Warn("persist activity log failed", "error", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Autopilot %sd\n", use)
				return nil
			})
		},
	}
}

func newAutopilotLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the autopilot activity log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 || limit > autopilot.LogLimit {
				limit = autopilot.LogLimit
			}
			return ctx.withState(cmd.Context(), func(st state.Store) error {
				logs, err := st.Logs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(logs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No activity yet")
					return nil
				}
				rows := make([][]string, 0, len(logs))
				for _, l := range logs {
					rows = append(rows, []string{l.Timestamp, string(l.Type), l.Message})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Time", "Type", "Message"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func newAutopilotRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one autopilot cycle in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			lock, err := lockDataDir(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("%w; trigger the run through POST /api/autopilot/run instead", err)
			}
			defer lock.Unlock()

			room, err := openNewsroom(runCtx, cfg, ctx.logger)
			if err != nil {
				return err
			}
			defer room.Close()

			out := cmd.OutOrStdout()
			room.autopilot.Subscribe(nil, func(logs []state.LogEntry) {
				if len(logs) > 0 {
					fmt.Fprintf(out, "[%s] %s\n", logs[0].Timestamp, logs[0].Message)
				}
			})
			return room.autopilot.TriggerManualRun(runCtx)
		},
	}
}
