// remis: proofreading workbench for Paradox mod localisation files.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/remis-mod/remis/backend"
	"github.com/remis-mod/remis/config"
	"github.com/remis-mod/remis/grouping"
	"github.com/remis-mod/remis/i18n"
	"github.com/remis-mod/remis/project"
	"github.com/remis-mod/remis/proofread"
	"github.com/remis-mod/remis/session"
	"github.com/remis-mod/remis/settings"
	"github.com/remis-mod/remis/watch"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed)
	headerColor  = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoColor.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successColor.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warningColor.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorColor.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir     string
	backendFlag string
	urlFlag     string
	tokenFlag   string
	uiLang      string
	verbose     bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "remis",
		Short: "Proofread Paradox mod localisation files",
		Long: `remis: proofreading workbench for Paradox mod localisation files.

Groups a mod's localisation files into source files and their
translations, shows the original, machine-translated and final text of a
file side by side, checks that edits keep the file's keys, and saves,
validates and tracks files through a kanban status.

Files are served from disk (local backend, the default) or by a
proofreading server (http backend). Settings come from .remis.yaml in
the --root directory, or are detected from the mod itself.

Commands:
  projects    List projects
  files       Show a project's files grouped by source
  open        Load a file pair and write its three panes to disk
  check       Check edited text for key drift
  save        Save edited text
  validate    Validate edited text
  lint        Validate any localisation text
  status      Change a file's kanban status
  watch       Follow a project's files as they change
  auth        Manage stored tokens and API keys`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(uiLang)
		},
	}

	// Global persistent flags, inherited by all subcommands
	pf := root.PersistentFlags()
	pf.StringVar(&rootDir, "root", ".", "Directory holding .remis.yaml, or the mod to detect")
	pf.StringVar(&backendFlag, "backend", "", "Backend override: local or http")
	pf.StringVar(&urlFlag, "url", "", "Server URL for the http backend")
	pf.StringVar(&tokenFlag, "token", "", "Bearer token for the http backend (env: "+settings.TokenEnv+")")
	pf.StringVar(&uiLang, "ui-lang", "", "Interface language (default: from the environment)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	_ = root.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.BackendLocal, config.BackendHTTP}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newProjectsCmd(),
		newFilesCmd(),
		newOpenCmd(),
		newCheckCmd(),
		newSaveCmd(),
		newValidateCmd(),
		newLintCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("remis version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
			fmt.Printf("  ui lang:   %s (catalogs: %s)\n", i18n.Lang(), strings.Join(i18n.Languages(), ", "))
		},
	}
}

// ---------------------------------------------------------------------------
// Session setup
// ---------------------------------------------------------------------------

// statusUpdater is implemented by both backends.
type statusUpdater interface {
	UpdateFileStatus(ctx context.Context, projectID, fileID string, status project.Status) error
}

type sessionBackend interface {
	proofread.Backend
	statusUpdater
}

// app is one command's proofreading session.
type app struct {
	cfg     *config.RemisFile
	store   session.Store
	backend sessionBackend
	coord   *proofread.Coordinator
	log     *slog.Logger
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration of --root and applies flag overrides.
func loadConfig() (*config.RemisFile, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend = strings.ToLower(backendFlag)
	}
	if urlFlag != "" {
		cfg.BaseURL = urlFlag
		if backendFlag == "" {
			cfg.Backend = config.BackendHTTP
		}
	}
	return cfg, nil
}

func newBackend(cfg *config.RemisFile, store session.Store, log *slog.Logger) (sessionBackend, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return backend.NewLocal(backend.LocalOptions{
			Projects: cfg.ResolvedProjects(),
			Store:    store,
			Logger:   log,
		})
	case config.BackendHTTP:
		return backend.NewHTTP(backend.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Token:   settings.BackendToken(tokenFlag),
			Proxy:   cfg.Proxy,
			Timeout: cfg.Timeout,
			Logger:  log,
		})
	}
	return nil, fmt.Errorf(i18n.T("unknown backend %q (valid: local, http)"), cfg.Backend)
}

// openApp wires config, store, backend and coordinator. deepLink is the
// file to open first, if any.
func openApp(deepLink string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger()

	store, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf(i18n.T("opening session store: %w"), err)
	}
	b, err := newBackend(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Debug("session opened", "backend", cfg.Backend, "store", cfg.Store.Driver, "path", cfg.StorePath())

	coord := proofread.New(b, proofread.Options{
		Store:       store,
		Logger:      log,
		Notifier:    proofread.NotifierFunc(notify),
		DraftDelay:  cfg.DraftDelay,
		DeepLink:    deepLink,
		DefaultGame: cfg.DefaultGame,
	})
	return &app{cfg: cfg, store: store, backend: b, coord: coord, log: log}, nil
}

func (a *app) Close() {
	if err := a.coord.Close(); err != nil {
		logWarning(i18n.T("Could not save draft: %v"), err)
	}
	if err := a.store.Close(); err != nil {
		logWarning(i18n.T("Could not close session store: %v"), err)
	}
}

// notify prints coordinator notifications through the log helpers.
func notify(n proofread.Notification) {
	msg := i18n.T(n.Title) + ": " + i18n.T(n.Message)
	switch n.Level {
	case proofread.LevelSuccess:
		logSuccess("%s", msg)
	case proofread.LevelWarning:
		logWarning("%s", msg)
	case proofread.LevelError:
		logError("%s", msg)
	default:
		logInfo("%s", msg)
	}
}

// selectProject selects projectID, or restores the last selection, or
// picks the first project.
func (a *app) selectProject(ctx context.Context, projectID string) error {
	projects, err := a.coord.LoadProjects(ctx)
	if err != nil {
		return err
	}
	if projectID != "" {
		return a.coord.SelectProject(ctx, projectID)
	}
	restored, err := a.coord.Restore(ctx)
	if restored || err != nil {
		return err
	}
	if len(projects) == 0 {
		return errors.New(i18n.T("no projects available"))
	}
	return a.coord.SelectProject(ctx, projects[0].ProjectID)
}

// openPair selects a project and requires an active pair.
func (a *app) openPair(ctx context.Context, projectID string) error {
	if err := a.selectProject(ctx, projectID); err != nil {
		return err
	}
	if _, ok := a.coord.FileInfo(); !ok {
		p, _ := a.coord.Project()
		return fmt.Errorf(i18n.T("project %s has no source files"), p.ProjectID)
	}
	printPair(a.coord)
	return nil
}

// selectionFlags are shared by the commands that work on one file.
type selectionFlags struct {
	project string
	file    string
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.project, "project", "p", "", "Project ID (default: last selected)")
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "Source or target file ID (default: last selected)")
}

// readInput reads a file argument; "-" reads stdin.
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// projects
// ---------------------------------------------------------------------------

func newProjectsCmd() *cobra.Command {
	var filter string
	var clear bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Long: `List the projects served by the backend.

--filter keeps projects whose name or ID contains the text; the filter is
remembered for later runs until cleared with --clear-filter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			if clear {
				filter = ""
			}
			if clear || filter != "" {
				if err := a.coord.SetProjectFilter(filter); err != nil {
					logWarning(i18n.T("Could not save project filter: %v"), err)
				}
			}
			projects, err := a.coord.LoadProjects(cmd.Context())
			if err != nil {
				return err
			}
			if f := a.coord.ProjectFilter(); f != "" {
				logInfo(i18n.T("Filter: %q"), f)
			}
			printProjects(projects)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Show projects whose name or ID contains this text")
	cmd.Flags().BoolVar(&clear, "clear-filter", false, "Forget the remembered filter")
	return cmd
}

func printProjects(projects []project.Project) {
	if len(projects) == 0 {
		logInfo("%s", i18n.T("No projects found"))
		return
	}
	headerColor.Fprintf(os.Stderr, "%s\n", i18n.T("Projects"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "%-16s %-28s %-10s %s\n", "ID", i18n.T("Name"), i18n.T("Game"), i18n.T("Source"))
	for _, p := range projects {
		game := p.GameID
		if game == "" {
			game = "-"
		}
		fmt.Fprintf(os.Stderr, "%-16s %-28s %-10s %s\n", p.ProjectID, p.Name, game, p.SourceLanguage)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, i18n.N("%d project", "%d projects", len(projects))+"\n", len(projects))
}

// ---------------------------------------------------------------------------
// files
// ---------------------------------------------------------------------------

func newFilesCmd() *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Show a project's files grouped by source",
		Long: `Show a project's localisation files grouped by source file, with each
translation's kanban status and line count, followed by progress per
status and any files that could not be grouped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(sel.file)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.selectProject(cmd.Context(), sel.project); err != nil {
				return err
			}
			printBoard(a.coord)
			return nil
		},
	}

	sel.register(cmd)
	return cmd
}

func statusColor(s project.Status) *color.Color {
	switch s {
	case project.StatusDone:
		return successColor
	case project.StatusProofreading, project.StatusInProgress:
		return warningColor
	case project.StatusPaused:
		return dimColor
	default:
		return errorColor
	}
}

// progressBar renders a bar of width cells, coloured by how full it is.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	c := errorColor
	switch {
	case percent >= 100:
		c = successColor
	case percent >= 50:
		c = warningColor
	}
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

func printBoard(c *proofread.Coordinator) {
	p, _ := c.Project()
	g := c.Grouping()
	files := c.Files()

	headerColor.Fprintf(os.Stderr, "%s (%s)\n", p.Name, p.ProjectID)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if len(g.Sources) == 0 {
		logInfo(i18n.T("No source files for language %q"), p.SourceLanguage)
	}

	active, _ := c.Pair()
	marker := func(id string) string {
		if id == active.FileID() {
			return "▸"
		}
		return " "
	}
	for _, src := range g.Sources {
		fmt.Fprintf(os.Stderr, "%s %s  %s\n", marker(src.FileID), src.BaseName(), dimColor.Sprint(src.FileID))
		for _, t := range g.Targets[src.FileID] {
			st := t.Status
			if st == "" {
				st = project.StatusTodo
			}
			fmt.Fprintf(os.Stderr, "  %s %-44s %s %6d  %s\n",
				marker(t.FileID), t.BaseName(), statusColor(st).Sprintf("%-13s", st), t.LineCount, dimColor.Sprint(t.FileID))
		}
	}

	counts := make(map[project.Status]int)
	total := 0
	for _, list := range g.Targets {
		for _, t := range list {
			st := t.Status
			if st == "" {
				st = project.StatusTodo
			}
			counts[st]++
			total++
		}
	}
	if total > 0 {
		fmt.Fprintln(os.Stderr)
		for _, st := range project.Statuses() {
			fmt.Fprintf(os.Stderr, "%-13s %s %d\n", st, progressBar(counts[st]*100/total, 20), counts[st])
		}
	}

	if rest := grouping.Unclassified(files, g); len(rest) > 0 {
		fmt.Fprintln(os.Stderr)
		logWarning(i18n.N("%d file could not be grouped:", "%d files could not be grouped:", len(rest)), len(rest))
		for _, f := range rest {
			fmt.Fprintf(os.Stderr, "  %s\n", f.FilePath)
		}
	}
}

func printPair(c *proofread.Coordinator) {
	pair, ok := c.Pair()
	if !ok {
		return
	}
	logInfo(i18n.T("Source: %s"), pair.Source.BaseName())
	if pair.Target != nil {
		logInfo(i18n.T("Target: %s (%s)"), pair.Target.BaseName(), pair.Target.FileID)
	} else {
		logInfo("%s", i18n.T("Target: none, proofreading the source file"))
	}
}

// ---------------------------------------------------------------------------
// open
// ---------------------------------------------------------------------------

// Pane file names written by open.
const (
	originalPane = "original.yml"
	aiPane       = "ai.yml"
	finalPane    = "final.yml"
)

func newOpenCmd() *cobra.Command {
	var sel selectionFlags
	var outDir string
	var reload bool

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Load a file pair and write its three panes to disk",
		Long: `Load the active file pair and write the original, AI and final panes
as original.yml, ai.yml and final.yml. Edit final.yml, then pass it to
check, save or validate.

An unsaved draft of the file is restored into final.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(sel.file)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.openPair(ctx, sel.project); err != nil {
				return err
			}
			if reload {
				if err := a.coord.Reload(ctx); err != nil {
					return err
				}
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}
			tr := a.coord.Triple()
			for name, text := range map[string]string{originalPane: tr.Original, aiPane: tr.AI, finalPane: tr.Final} {
				if err := os.WriteFile(filepath.Join(outDir, name), []byte(text), 0644); err != nil {
					return err
				}
			}
			entries := a.coord.Entries()
			logSuccess(i18n.N("Wrote %d entry to %s", "Wrote %d entries to %s", len(entries)), len(entries), outDir)
			if a.coord.Drift() {
				logWarning("%s", i18n.T("The final pane's keys differ from the file's entries"))
			}
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".remis-open", "Directory to write the panes to")
	cmd.Flags().BoolVar(&reload, "reload", false, "Fetch the file again even if it is loaded")
	return cmd
}

// ---------------------------------------------------------------------------
// check / save / validate
// ---------------------------------------------------------------------------

// editedApp opens the active pair and installs the edited text.
func editedApp(ctx context.Context, sel selectionFlags, path string) (*app, error) {
	a, err := openApp(sel.file)
	if err != nil {
		return nil, err
	}
	if err := a.openPair(ctx, sel.project); err != nil {
		a.Close()
		return nil, err
	}
	if path != "" {
		text, err := readInput(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.coord.SetFinal(text)
	}
	return a, nil
}

func newCheckCmd() *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "check FINAL_FILE",
		Short: "Check edited text for key drift",
		Long: `Compare the keys of the edited final text with the loaded file's
entries. Exits with status 1 when keys were added, removed or renamed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := editedApp(cmd.Context(), sel, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			if a.coord.Drift() {
				return errors.New(i18n.T("keys changed since the file was loaded"))
			}
			logSuccess("%s", i18n.T("Keys match the loaded file"))
			return nil
		},
	}

	sel.register(cmd)
	return cmd
}

func newSaveCmd() *cobra.Command {
	var sel selectionFlags
	var yes bool

	cmd := &cobra.Command{
		Use:   "save FINAL_FILE",
		Short: "Save edited text",
		Long: `Save the edited final text of the active file. When its keys differ
from the loaded entries the save is refused unless --yes is given.

If the save fails, the text is kept as a draft and restored by the next
open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := editedApp(cmd.Context(), sel, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.coord.Save(cmd.Context(), yes)
			if errors.Is(err, proofread.ErrDriftUnacknowledged) {
				return errors.New(i18n.T("keys changed since the file was loaded; re-run with --yes to save anyway"))
			}
			return err
		},
	}

	sel.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Save even if keys changed")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "validate [FINAL_FILE]",
		Short: "Validate edited text",
		Long: `Validate the final text of the active file, or FINAL_FILE when given,
with the backend's localisation validator. Exits with status 1 when
errors are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			a, err := editedApp(cmd.Context(), sel, path)
			if err != nil {
				return err
			}
			defer a.Close()

			issues, stats, err := a.coord.Validate(cmd.Context())
			if err != nil {
				return err
			}
			return reportIssues(issues, stats)
		},
	}

	sel.register(cmd)
	return cmd
}

func newLintCmd() *cobra.Command {
	var game string

	cmd := &cobra.Command{
		Use:   "lint FILE",
		Short: "Validate any localisation text",
		Long: `Validate localisation text that is not part of a project. FILE may be
"-" to read stdin. Blank input is accepted without a check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			a, err := openApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			issues, stats, err := a.coord.Lint(cmd.Context(), content, game)
			if err != nil {
				return err
			}
			return reportIssues(issues, stats)
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game ID (default: "+proofread.DefaultLintGame+")")
	return cmd
}

func reportIssues(issues []project.Issue, stats proofread.Stats) error {
	for _, is := range issues {
		tag := warningColor.Sprint("warning")
		if is.Level == project.LevelError {
			tag = errorColor.Sprint("error")
		}
		loc := "-"
		if is.Line > 0 {
			loc = fmt.Sprintf("%d", is.Line)
		}
		key := ""
		if is.Key != "" {
			key = " " + dimColor.Sprint(is.Key)
		}
		fmt.Fprintf(os.Stderr, "%5s %s%s: %s\n", loc, tag, key, is.Message)
	}
	if stats.Errors > 0 {
		return fmt.Errorf(i18n.T("%d errors, %d warnings"), stats.Errors, stats.Warnings)
	}
	if stats.Warnings == 0 {
		logSuccess("%s", i18n.T("No issues found"))
	}
	return nil
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Change a file's kanban status",
	}
	cmd.AddCommand(newStatusSetCmd())
	return cmd
}

func newStatusSetCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "set FILE_ID STATUS",
		Short: "Move a file to a kanban column",
		Long: `Move a file to a kanban column. STATUS is one of:
todo, in_progress, proofreading, paused, done.`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var out []string
			for _, s := range project.Statuses() {
				out = append(out, string(s))
			}
			return out, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := project.ParseStatus(args[1])
			if err != nil {
				return err
			}
			a, err := openApp("")
			if err != nil {
				return err
			}
			defer a.Close()

			if projectID == "" {
				sel, ok, err := session.LoadSelection(a.store)
				if err != nil || !ok {
					return errors.New(i18n.T("no project selected; pass --project"))
				}
				projectID = sel.ProjectID
			}
			if err := a.backend.UpdateFileStatus(cmd.Context(), projectID, args[0], status); err != nil {
				return err
			}
			logSuccess(i18n.T("%s moved to %s"), args[0], status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (default: last selected)")
	return cmd
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	var sel selectionFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a project's files as they change",
		Long: `Watch the selected project's directory. When localisation files change,
the project's files are regrouped and the active pair is reloaded if it
was affected. Only available with the local backend. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(sel.file)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Backend != config.BackendLocal {
				return errors.New(i18n.T("watch needs the local backend"))
			}
			ctx := cmd.Context()
			if err := a.selectProject(ctx, sel.project); err != nil {
				return err
			}
			p, _ := a.coord.Project()
			return runWatch(ctx, a, p, debounce)
		},
	}

	sel.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before reacting to changes")
	return cmd
}

func runWatch(ctx context.Context, a *app, p project.Project, debounce time.Duration) error {
	dir := p.SourcePath
	for _, rp := range a.cfg.ResolvedProjects() {
		if rp.ProjectID == p.ProjectID {
			dir = rp.SourcePath
		}
	}

	w, err := watch.New(dir, watch.Options{Debounce: debounce, Logger: a.log})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	logInfo(i18n.T("Watching %s (%d directories)"), w.Root(), w.Dirs())
	printPair(a.coord)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			logInfo(i18n.N("%d file changed", "%d files changed", len(batch.Paths)), len(batch.Paths))
			before, _ := a.coord.Pair()
			if err := a.coord.Refresh(ctx); err != nil {
				logError("%v", err)
				continue
			}
			if after, ok := a.coord.Pair(); ok && !after.Equal(before) {
				printPair(a.coord)
			} else if ok && touches(batch, after) {
				if err := a.coord.Reload(ctx); err != nil {
					logError("%v", err)
				} else {
					logInfo(i18n.T("Reloaded %s"), after.Source.BaseName())
				}
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logWarning("%v", err)
		}
	}
}

// touches reports whether batch includes a file of pair.
func touches(batch watch.Batch, pair proofread.Pair) bool {
	for _, path := range batch.Paths {
		if sameFile(path, pair.Source.FilePath) || (pair.Target != nil && sameFile(path, pair.Target.FilePath)) {
			return true
		}
	}
	return false
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored tokens and API keys",
		Long: `Manage credentials stored in ` + "$XDG_DATA_HOME/remis/auth.json" + `.

The "remis" entry is the bearer token sent to the http backend. Other
entries hold translation provider API keys used by the server.

Examples:
  remis auth set remis --key TOKEN        Store the backend token
  remis auth set openai                   Prompt for an OpenAI key
  remis auth remove openai                Remove one entry
  remis auth remove                       Remove all credentials
  remis auth list                         Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthListCmd(),
		newAuthRemoveCmd(),
	)
	return cmd
}

func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return settings.KnownProviders, cobra.ShellCompDirectiveNoFileComp
}

func newAuthSetCmd() *cobra.Command {
	var key, baseURL string

	cmd := &cobra.Command{
		Use:               "set PROVIDER",
		Short:             "Store a token or API key",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if key == "" {
				fmt.Fprintf(os.Stderr, i18n.T("Key for %s: "), provider)
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				key = strings.TrimSpace(line)
			}
			if err := settings.Set(provider, key, baseURL); err != nil {
				return err
			}
			logSuccess(i18n.T("Stored %s credentials in %s"), provider, settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key or token (default: read from stdin)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Optional endpoint override")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()
			headerColor.Fprintf(os.Stderr, "\n%s\n", i18n.T("Stored Credentials"))
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			for _, id := range settings.KnownProviders {
				if info := store[id]; info != nil {
					status := successColor.Sprint(i18n.T("configured")) + fmt.Sprintf(" (key: %s)", settings.MaskKey(info.Key))
					if info.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s endpoint: %s", "", info.BaseURL)
					}
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", id, status)
				} else {
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", id, errorColor.Sprint(i18n.T("not configured")))
				}
			}
			for _, id := range store.Providers() {
				if !isKnownProvider(id) {
					fmt.Fprintf(os.Stderr, "  %-14s %s (key: %s)\n", id, successColor.Sprint(i18n.T("configured")), settings.MaskKey(store[id].Key))
				}
			}

			fmt.Fprintf(os.Stderr, "\n  %s\n", warningColor.Sprint(i18n.T("Environment Variables")))
			if env := os.Getenv(settings.TokenEnv); env != "" {
				fmt.Fprintf(os.Stderr, "  %s: %s (overrides the stored token)\n", settings.TokenEnv, successColor.Sprint(settings.MaskKey(env)))
			} else {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", settings.TokenEnv, errorColor.Sprint(i18n.T("not set")))
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

func isKnownProvider(id string) bool {
	for _, k := range settings.KnownProviders {
		if k == id {
			return true
		}
	}
	return false
}

func newAuthRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove [PROVIDER]",
		Aliases:           []string{"rm", "logout"},
		Short:             "Remove stored credentials",
		Long:              `Remove the credentials of one provider, or all of them when no provider is given.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All stored credentials removed"))
				return nil
			}
			if err := settings.Remove(args[0]); err != nil {
				return err
			}
			logSuccess(i18n.T("%s credentials removed"), args[0])
			return nil
		},
	}
}
