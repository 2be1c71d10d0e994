package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/njyeung/threads/backend"
	"github.com/njyeung/threads/thread"
	"github.com/njyeung/threads/tui"
)

var (
	configPath string
	useBrowser bool
	headed     bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "threads",
	Short: "Read and reply to threaded comments from the terminal",
	Long: `threads loads a post page, renders its comment thread in the terminal
and lets you reply to the post or to any comment, and switch posts on or off.`,
	SilenceUsage: true,
}

var openCmd = &cobra.Command{
	Use:   "open [url]",
	Short: "Open a post or post list interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOpen,
}

var printCmd = &cobra.Command{
	Use:   "print [url]",
	Short: "Render a page once and exit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrint,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "settings file (default ~/.threads/threads.yaml)")
	flags.BoolVar(&useBrowser, "browser", false, "fetch pages through Chrome using the saved profile")
	flags.BoolVar(&headed, "headed", false, "show the Chrome window (with --browser)")
	flags.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(printCmd)
}

type session struct {
	settings     backend.Settings
	settingsPath string
	url          string
	log          zerolog.Logger
	logCloser    io.Closer
	client       *backend.Client
}

func (s *session) Close() {
	s.client.Close()
	if s.logCloser != nil {
		s.logCloser.Close()
	}
}

func newSession(args []string) (*session, error) {
	path := configPath
	if path == "" {
		path = backend.SettingsPath(backend.ConfigDir())
	}
	settings, err := backend.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}

	target, err := pageURL(settings.BaseURL, args)
	if err != nil {
		return nil, err
	}

	log, closer, err := backend.NewLogger(settings.LogFile, settings.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := []backend.Option{backend.WithLogger(log)}
	if useBrowser {
		opts = append(opts, backend.WithSource(backend.NewChromeSource(settings.ChromeProfile, !headed, log)))
	}

	return &session{
		settings:     settings,
		settingsPath: path,
		url:          target,
		log:          log,
		logCloser:    closer,
		client:       backend.NewClient(nil, opts...),
	}, nil
}

// pageURL resolves the argument against base_url; with no argument the base
// itself is opened
func pageURL(base string, args []string) (string, error) {
	if len(args) == 0 {
		if base == "" {
			return "", fmt.Errorf("no url given and no base_url configured")
		}
		return base, nil
	}
	ref, err := url.Parse(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", args[0], err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q needs base_url in the settings file", args[0])
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.Close()

	m := tui.NewModel(s.client, tui.Config{
		URL:          s.url,
		Settings:     s.settings,
		SettingsPath: s.settingsPath,
		Log:          s.log,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if s.settings.Mouse {
		opts = append(opts, tea.WithMouseAllMotion())
	}
	p := tea.NewProgram(m, opts...)
	s.client.SetScheduler(tui.ProgramScheduler(p))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	return nil
}

func runPrint(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.client.Load(context.Background(), s.url)
	if err != nil {
		return err
	}
	page, err := thread.Bind(doc, s.client, s.log)
	if err != nil {
		return err
	}
	return tui.Print(cmd.OutOrStdout(), page.Doc, tui.TerminalWidth())
}
