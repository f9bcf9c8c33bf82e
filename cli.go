package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jobtrack/application-tracker/internal/analytics"
	"github.com/jobtrack/application-tracker/internal/archive"
	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/dashboard"
	"github.com/jobtrack/application-tracker/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "tracker",
	Short:        "Job application tracker",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(a)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard report for recent applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.tracker.Report(cmd.Context())
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func printReport(w io.Writer, r analytics.Report) {
	fmt.Fprintf(w, "Total: %d  Interviews: %d  Offers: %d  Rejected: %d\n",
		r.Totals.Total, r.Totals.Interviews, r.Totals.Offers, r.Totals.Rejected)
	if r.Undated > 0 {
		fmt.Fprintf(w, "Undated records (excluded from monthly/timeline): %d\n", r.Undated)
	}

	fmt.Fprintln(w, "\nStatus:")
	for _, s := range r.StatusBreakdown {
		fmt.Fprintf(w, "  %-12s %4d  %3d%%\n", s.Name, s.Value, s.Percent)
	}
	fmt.Fprintln(w, "\nJob boards:")
	for _, b := range r.JobBoards {
		fmt.Fprintf(w, "  %-12s %4d\n", b.Name, b.Usage)
	}
	fmt.Fprintln(w, "\nMonthly:")
	for _, m := range r.Monthly {
		fmt.Fprintf(w, "  %-12s %4d\n", m.Month, m.Applications)
	}
	fmt.Fprintln(w, "\nPlatform success:")
	for _, p := range r.Platforms {
		fmt.Fprintf(w, "  %-12s %4d offers / %4d  %3d%%\n", p.Source, p.Offers, p.Total, p.SuccessRate)
	}
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent applications as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		out, _ := cmd.Flags().GetString("out")
		upload, _ := cmd.Flags().GetBool("upload")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		body, err := a.tracker.Export(cmd.Context(), mode)
		if err != nil {
			return err
		}

		if err := writeExport(cmd.OutOrStdout(), cmd.ErrOrStderr(), out, body); err != nil {
			return err
		}

		if upload {
			store, err := archive.New(a.cfg.Archive)
			if err != nil {
				return err
			}
			location, err := store.Upload(cmd.Context(), mode, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Uploaded to %s\n", location)
		}
		return nil
	},
}

// writeExport writes body unchanged to stdout ("" or "-") or to the named file.
func writeExport(stdout, stderr io.Writer, out, body string) error {
	if out == "" || out == "-" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(stderr, "Wrote %s\n", out)
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute the dashboard on an interval and print the totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, _ := cmd.Flags().GetString("api")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var (
			source dashboard.Source
			cfg    *config.Config
		)
		if api != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			cfg.Dashboard.APIEndpoint = api
			source = dashboard.NewHTTPSource(cfg.Dashboard)
		} else {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			cfg = a.cfg
			source = a.tracker
		}

		refresher := dashboard.NewRefresher(source, cfg.Dashboard.Interval, logging.New(cfg.Log, os.Stderr))
		out := cmd.OutOrStdout()
		refresher.OnRefresh(func(s dashboard.Snapshot) {
			t := s.Report.Totals
			fmt.Fprintf(out, "%s  total=%d interviews=%d offers=%d rejected=%d\n",
				s.RefreshedAt.Format("15:04:05"), t.Total, t.Interviews, t.Offers, t.Rejected)
		})

		if err := refresher.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user, prompting for the password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.authService().Signup(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s)\n", user.ID, user.Email)
		return nil
	},
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")

	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("mode", "m", analytics.ModeSummary, "Export mode: summary or detailed")
	exportCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().Bool("upload", false, "Also upload the export to the configured S3 bucket")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("api", "", "Poll a remote recent-applications endpoint instead of the local store")

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("email", "", "User email")
	userCreateCmd.Flags().String("name", "", "Display name")
	userCreateCmd.MarkFlagRequired("email")
}
