package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"autosense/internal/controller"
	"autosense/internal/engine"
	"autosense/internal/journal"
	"autosense/internal/mcpserver"
	"autosense/internal/output"
	"autosense/internal/projector"
	"autosense/ui/console"
	"autosense/ui/tui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var errNotLoggedIn = errors.New("not logged in; run 'autosense login' first")

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive dashboard",
	RunE:  runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	landing, _ := cmd.Flags().GetString("landing")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	ticks := make(chan struct{}, 1)
	a, err := buildApp(ctx, cfg, logger, controller.WithRefreshFunc(tui.TickFunc(ticks)))
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Start(ctx, a.ctrl, ticks, tui.Options{
		Landing:         landing,
		HistoryCapacity: cfg.HistoryCapacity,
		ScanDepth:       cfg.DefaultScanDepth,
	})
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the AutoSense X backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		google, _ := cmd.Flags().GetBool("google")
		landing, _ := cmd.Flags().GetString("landing")
		if google || landing != "" {
			listen, _ := cmd.Flags().GetString("listen")
			return loginWithGoogle(ctx, a, w, landing, listen)
		}

		in := cmd.InOrStdin()
		br := bufio.NewReader(in)
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			if user, err = promptLine(br, "Username: "); err != nil {
				return err
			}
		}
		password, err := promptPassword(in, br, "Password: ")
		if err != nil {
			return err
		}

		out := a.ctrl.Login(ctx, user, password)
		if err := outcomeErr(out); err != nil {
			return err
		}
		for _, t := range out.Toasts() {
			fmt.Fprintln(w, t.Text)
		}
		return nil
	},
}

func loginWithGoogle(ctx context.Context, a *app, w io.Writer, landing, listen string) error {
	if landing != "" {
		_, ok, err := a.session.CaptureRedirectToken(landing)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("landing URL carries no token")
		}
		fmt.Fprintln(w, "Logged in with Google")
		return nil
	}

	loginURL, err := a.session.LoginViaExternalProvider()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Open this URL in your browser:\n\n  %s\n\nWaiting for the redirect on http://%s ...\n", loginURL, listen)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := a.session.ListenForRedirect(ctx, listen); err != nil {
		return err
	}
	if !a.session.Authenticated() {
		return errors.New("google login did not complete")
	}
	fmt.Fprintln(w, "Logged in with Google")
	return nil
}

func promptLine(r *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	text, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// promptPassword hides input on a terminal and reads a plain line otherwise.
func promptPassword(in io.Reader, br *bufio.Reader, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return promptLine(br, prompt)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

type whoami struct {
	Username  string    `json:"username"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return errNotLoggedIn
		}
		var me whoami
		if claims, ok := a.session.Claims(); ok {
			me.Subject = claims.Subject
			me.ExpiresAt = claims.ExpiresAt
		}
		env, err := a.client.Me(ctx)
		if err != nil {
			return errors.New(controller.Describe(err))
		}
		me.Username = projector.String(env["username"])
		if me.Username == "" {
			me.Username = me.Subject
		}

		w := cmd.OutOrStdout()
		if outputJSON {
			return console.JSON(w, me)
		}
		fmt.Fprintf(w, "Username: %s\n", me.Username)
		if !me.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "Session expires: %s\n", me.ExpiresAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

type statusReport struct {
	Online        bool                 `json:"online"`
	Offline       bool                 `json:"offline"`
	Authenticated bool                 `json:"authenticated"`
	User          string               `json:"user,omitempty"`
	Overall       string               `json:"overall"`
	Metrics       projector.Metrics    `json:"metrics"`
	Checks        []engine.CheckResult `json:"checks"`
	Alerts        []projector.Alert    `json:"alerts,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print one system snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var (
			online bool
			user   string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			online = a.client.Health(gctx)
			return nil
		})
		if a.session.Authenticated() {
			g.Go(func() error {
				if env, err := a.client.Me(gctx); err == nil {
					user = projector.String(env["username"])
				}
				return nil
			})
		}
		g.Go(func() error {
			return a.ctrl.Refresh(gctx)
		})
		if err := g.Wait(); err != nil {
			return errors.New(controller.Describe(err))
		}

		st := a.ctrl.Snapshot()
		if !st.HasMetrics {
			return errors.New("server returned no metrics")
		}

		w := cmd.OutOrStdout()
		if outputJSON {
			return console.JSON(w, statusReport{
				Online:        online || st.Online,
				Offline:       st.Offline,
				Authenticated: st.Authenticated,
				User:          user,
				Overall:       engine.Overall(st.Checks),
				Metrics:       st.Raw,
				Checks:        st.Checks,
				Alerts:        st.Alerts,
			})
		}

		view := output.BuildDashboard(st.Checks, st.Raw)
		view.Offline = st.Offline
		console.Print(w, view)
		if user != "" {
			fmt.Fprintf(w, "Signed in as %s\n", user)
		}
		if summary := output.Explain(st.Checks); summary != "" {
			fmt.Fprintln(w, summary)
		}
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List stored and live alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return errNotLoggedIn
		}
		if err := a.ctrl.Refresh(ctx); err != nil {
			return errors.New(controller.Describe(err))
		}

		alerts := a.ctrl.Snapshot().Alerts
		if outputJSON {
			return console.JSON(cmd.OutOrStdout(), alerts)
		}
		return console.PrintAlerts(cmd.OutOrStdout(), alerts)
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Ask the backend for a failure-risk prediction",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := dispatch(ctx, a, controller.EventPredict, controller.Args{}); err != nil {
			return err
		}
		p := a.ctrl.Snapshot().Prediction
		if p == nil {
			return errors.New("server returned no prediction")
		}
		if outputJSON {
			return console.JSON(cmd.OutOrStdout(), p)
		}
		return console.PrintPrediction(cmd.OutOrStdout(), *p)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Download the PDF health report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		path, _ := cmd.Flags().GetString("output")
		if err := dispatch(ctx, a, controller.EventReport, controller.Args{ReportPath: path}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", a.ctrl.Snapshot().ReportPath)
		return nil
	},
}

type historyReport struct {
	Summary journal.Summary `json:"summary"`
	Entries []journal.Entry `json:"entries"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show snapshots recorded in the local journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.journal == nil {
			return errors.New("journal disabled; set journal_path or AUTOSENSE_JOURNAL")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := a.journal.Recent(ctx, limit)
		if err != nil {
			return err
		}
		summary, err := a.journal.Summary(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputJSON {
			return console.JSON(w, historyReport{Summary: summary, Entries: entries})
		}
		if err := console.PrintSummary(w, summary); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return console.PrintHistory(w, entries)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant about this system",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// The answer is better with a snapshot, but rules still work without one.
		if err := a.ctrl.Refresh(ctx); err != nil {
			a.logger.Debug("ask without snapshot", slog.String("error", err.Error()))
		}
		q := strings.Join(args, " ")
		if err := dispatch(ctx, a, controller.EventAsk, controller.Args{Query: q}); err != nil {
			return err
		}
		ans := a.ctrl.Snapshot().LastAnswer
		if ans == nil {
			return errors.New("no answer")
		}
		if outputJSON {
			return console.JSON(cmd.OutOrStdout(), ans)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the dashboard as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ctrl.Refresh(ctx); err != nil {
			a.logger.Info("initial refresh failed", slog.String("error", err.Error()))
		}

		var history mcpserver.History
		if a.journal != nil {
			history = a.journal
		}
		srv := mcpserver.NewServer(mcpserver.Config{
			ServerName:      "autosense",
			ServerVersion:   version,
			RefreshInterval: a.cfg.PollInterval,
		}, a.ctrl, history, a.logger)
		defer srv.Close()

		return srv.Start(ctx)
	},
}

// dispatch runs ev and turns a failure into an error.
func dispatch(ctx context.Context, a *app, ev controller.Event, args controller.Args) error {
	return outcomeErr(a.ctrl.Dispatch(ctx, ev, args))
}

// outcomeErr prefers the error toast's wording over the raw error.
func outcomeErr(out controller.Outcome) error {
	if out.Toast.Level == controller.LevelError {
		return errors.New(out.Toast.Text)
	}
	if out.Err != nil {
		return errors.New(controller.Describe(out.Err))
	}
	return nil
}
