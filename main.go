package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phpclientgen/internal/config"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/project"
	"phpclientgen/internal/store"
	"phpclientgen/internal/types"
)

var version = "0.1.0"

// rootOptions holds the persistent flags
type rootOptions struct {
	configFile string
	project    string
	logLevel   string
	verbose    bool
}

// app is the state shared by every subcommand once the root has loaded configuration
type app struct {
	opts   rootOptions
	cfg    *config.Config
	logger *logger.Logger
	store  *store.BoltStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs one command line and releases the store and log file afterwards,
// whether or not the command failed.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	rootCmd := a.newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *app) newRootCmd() *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "phpclientgen",
		Short: "Generate PHP API clients from OpenAPI specifications",
		Long: `phpclientgen imports an OpenAPI 3 or Swagger 2 specification into a project,
lets you adjust authentication and persistence settings, and asks an LLM to
write a PSR-compliant PHP client (with DTOs and an optional PDO handler).`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.opts.configFile, "config", "c", "", "Config file (default .phpclientgen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.opts.project, "project", "p", "", "Project name")
	rootCmd.PersistentFlags().StringVar(&a.opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&a.opts.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		a.newImportCmd(),
		a.newEndpointsCmd(),
		a.newProjectCmd(),
		a.newPersistCmd(),
		a.newGenerateCmd(),
		a.newAssistCmd(),
	)

	return rootCmd
}

// setup loads configuration, the logger and the project store
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Options{File: a.opts.configFile, EnvFiles: config.DefaultEnvFiles})
	if err != nil {
		return err
	}
	if a.opts.project != "" {
		cfg.Project = a.opts.project
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	log, err := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		return err
	}
	a.logger = log
	if cfg.File != "" {
		log.Debugf("Loaded config file %s", cfg.File)
	}

	st, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	a.store = st
	log.Debugf("Opened project store %s", st.Path())
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
		a.logger = nil
	}
	return errors.Join(errs...)
}

// loadProject returns the current project, or a fresh default one if it was never saved
func (a *app) loadProject() (*types.Project, error) {
	p, err := a.store.Load(a.cfg.Project)
	if errors.Is(err, store.ErrNotFound) {
		a.logger.Debugf("Starting new project %q", a.cfg.Project)
		return project.Default(a.cfg.Project), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %q: %w", a.cfg.Project, err)
	}
	return p, nil
}

func (a *app) saveProject(p *types.Project) error {
	if err := a.store.Save(p); err != nil {
		return fmt.Errorf("failed to save project %q: %w", p.Name, err)
	}
	return nil
}

// readInput reads a file, or stdin for "-", refusing anything above limit bytes
func readInput(path string, stdin io.Reader, limit int64) ([]byte, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is larger than the %d byte import limit", path, limit)
	}
	return data, nil
}
