package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"phpclientgen/internal/assistant"
	"phpclientgen/internal/codegen"
	"phpclientgen/internal/dbprobe"
	"phpclientgen/internal/llm"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/output"
	"phpclientgen/internal/parser"
	"phpclientgen/internal/project"
	"phpclientgen/internal/types"
)

var errNoEndpointsFound = errors.New("no valid endpoints found in the specification")

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) newImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the project's endpoints with those of an OpenAPI or Swagger document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin(), a.cfg.Import.MaxBytes)
			if err != nil {
				return err
			}

			res, err := parser.NewSpecParser(parser.WithLogger(a.logger)).Parse(string(raw))
			if err != nil {
				return err
			}
			if len(res.Endpoints) == 0 {
				return errNoEndpointsFound
			}
			if a.cfg.Import.Validate {
				a.reportFindings(cmd.Context(), string(raw))
			}

			if dryRun {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			p, err := a.loadProject()
			if err != nil {
				return err
			}
			project.ImportSpec(p, res)
			if err := a.saveProject(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d endpoints into project %q\n", len(res.Endpoints), p.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the parsed endpoints instead of saving them")
	return cmd
}

// reportFindings logs schema validation findings. They never block an import.
func (a *app) reportFindings(ctx context.Context, raw string) {
	findings, err := parser.Validate(ctx, raw)
	if err != nil {
		a.logger.Warnf("Skipped schema validation: %v", err)
		return
	}
	for _, f := range findings {
		a.logger.Warn(f)
	}
}

func (a *app) newEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the project's endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			if len(p.Endpoints) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No endpoints.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMETHOD\tPATH\tPAYLOAD\tPERSIST")
			for _, ep := range p.Endpoints {
				payload := "-"
				if ep.SamplePayload != "" {
					payload = fmt.Sprintf("%dB", len(ep.SamplePayload))
				}
				persist := "-"
				if ep.Persistence.Enabled {
					persist = fmt.Sprintf("%s:%s", ep.Persistence.DBType, ep.Persistence.TableName)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ep.Name, ep.Method, ep.Path, payload, persist)
			}
			return tw.Flush()
		},
	}
}

func (a *app) newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and edit projects",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current project as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.loadProject()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), p)
			},
		},
		a.newProjectSetCmd(),
		&cobra.Command{
			Use:   "load <file>",
			Short: "Apply a JSON or YAML client configuration to the current project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := project.LoadFile(args[0])
				if err != nil {
					return err
				}
				return a.applyConfig(cmd.OutOrStdout(), *cfg)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List saved projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := a.store.List()
				if err != nil {
					return err
				}
				for _, name := range names {
					marker := " "
					if name == a.cfg.Project {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a saved project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.store.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func (a *app) newProjectSetCmd() *cobra.Command {
	var (
		namespace string
		baseURI   string
		auth      types.AuthConfig
		method    string
		tokenVerb string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the namespace, base URI or authentication of the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var cfg project.Config
			if flags.Changed("namespace") {
				cfg.Namespace = namespace
			}
			if flags.Changed("base-uri") {
				cfg.BaseURI = strings.TrimRight(baseURI, "/")
			}

			authChanged := false
			for _, name := range []string{"auth", "token-var", "username-var", "password-var", "query-key", "query-var",
				"token-path", "token-method", "token-body", "token-response-path", "token-scheme"} {
				authChanged = authChanged || flags.Changed(name)
			}
			if authChanged {
				p, err := a.loadProject()
				if err != nil {
					return err
				}
				merged := mergeAuth(p.Auth, auth, flags.Changed)
				if flags.Changed("auth") {
					merged.Method = types.AuthMethod(strings.ToLower(method))
				}
				if flags.Changed("token-method") {
					verb, ok := types.ParseHTTPMethod(tokenVerb)
					if !ok {
						return fmt.Errorf("unsupported HTTP method %q", tokenVerb)
					}
					merged.TokenEndpointMethod = verb
				}
				cfg.Auth = &merged
			}

			return a.applyConfig(cmd.OutOrStdout(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&namespace, "namespace", "", "PHP namespace of the generated client")
	f.StringVar(&baseURI, "base-uri", "", "Base URI of the API")
	f.StringVar(&method, "auth", "", "Authentication method (none, bearer, basic, query, chained)")
	f.StringVar(&auth.TokenVariableName, "token-var", "", "Bearer token variable name")
	f.StringVar(&auth.UsernameVariableName, "username-var", "", "Basic auth username variable name")
	f.StringVar(&auth.PasswordVariableName, "password-var", "", "Basic auth password variable name")
	f.StringVar(&auth.QueryKeyName, "query-key", "", "Query parameter carrying the API key")
	f.StringVar(&auth.QueryValueName, "query-var", "", "API key variable name")
	f.StringVar(&auth.TokenEndpointPath, "token-path", "", "Chained auth: token endpoint path")
	f.StringVar(&tokenVerb, "token-method", "", "Chained auth: token endpoint HTTP method")
	f.StringVar(&auth.RequestBody, "token-body", "", "Chained auth: JSON request body")
	f.StringVar(&auth.TokenPathInResponse, "token-response-path", "", "Chained auth: dotted path of the token in the response")
	f.StringVar(&auth.SchemeInHeader, "token-scheme", "", "Chained auth: scheme used in the Authorization header")
	return cmd
}

// mergeAuth overlays the flag values that were explicitly set onto current
func mergeAuth(current, set types.AuthConfig, changed func(string) bool) types.AuthConfig {
	fields := []struct {
		flag string
		dst  *string
		src  string
	}{
		{"token-var", &current.TokenVariableName, set.TokenVariableName},
		{"username-var", &current.UsernameVariableName, set.UsernameVariableName},
		{"password-var", &current.PasswordVariableName, set.PasswordVariableName},
		{"query-key", &current.QueryKeyName, set.QueryKeyName},
		{"query-var", &current.QueryValueName, set.QueryValueName},
		{"token-path", &current.TokenEndpointPath, set.TokenEndpointPath},
		{"token-body", &current.RequestBody, set.RequestBody},
		{"token-response-path", &current.TokenPathInResponse, set.TokenPathInResponse},
		{"token-scheme", &current.SchemeInHeader, set.SchemeInHeader},
	}
	for _, f := range fields {
		if changed(f.flag) {
			*f.dst = f.src
		}
	}
	return current
}

// applyConfig merges cfg into the current project and saves it
func (a *app) applyConfig(out io.Writer, cfg project.Config) error {
	p, err := a.loadProject()
	if err != nil {
		return err
	}
	if err := project.Apply(p, cfg); err != nil {
		return err
	}
	if err := a.saveProject(p); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated project %q (%d endpoints)\n", p.Name, len(p.Endpoints))
	return nil
}

func (a *app) newPersistCmd() *cobra.Command {
	var (
		dbType  string
		table   string
		disable bool
	)

	cmd := &cobra.Command{
		Use:   "persist <endpoint>",
		Short: "Configure whether an endpoint's payload gets a database save method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			if i := p.FindEndpoint(args[0]); i >= 0 && table == "" {
				table = p.Endpoints[i].Persistence.TableName
			}

			err = project.SetPersistence(p, args[0], types.PersistenceConfig{
				Enabled:   !disable,
				DBType:    types.DatabaseType(strings.ToLower(dbType)),
				TableName: table,
			})
			if err != nil {
				return err
			}
			if err := a.saveProject(p); err != nil {
				return err
			}

			ep := p.Endpoints[p.FindEndpoint(args[0])]
			if ep.Persistence.Enabled {
				fmt.Fprintf(cmd.OutOrStdout(), "%s persists to %s table %q\n", ep.Name, ep.Persistence.DBType, ep.Persistence.TableName)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not persisted\n", ep.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbType, "db", "", "Database type (mariadb, postgresql, sqlite)")
	cmd.Flags().StringVar(&table, "table", "", "Table name")
	cmd.Flags().BoolVar(&disable, "disable", false, "Turn persistence off")
	return cmd
}

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		probeDSN string
		probeDB  string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the PHP client for the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			p, err := a.loadProject()
			if err != nil {
				return err
			}
			if len(p.Endpoints) == 0 {
				return codegen.ErrNoEndpoints
			}

			tables, err := a.probeTables(ctx, p, probeDSN, types.DatabaseType(strings.ToLower(probeDB)))
			if err != nil {
				return err
			}

			client, err := llm.NewClient(ctx, &a.cfg.LLM, a.logger)
			if err != nil {
				return err
			}

			var onChunk llm.ChunkHandler
			if !quiet {
				onChunk = func(chunk string) { fmt.Fprint(out, chunk) }
			}
			res, genErr := codegen.NewGenerator(client, a.logger).Generate(ctx, codegen.Request{
				Auth:      p.Auth,
				Endpoints: p.Endpoints,
				BaseURI:   p.BaseURI,
				Namespace: p.Namespace,
				Tables:    tables,
			}, onChunk)

			w := output.NewWriter(a.cfg.Output.Dir)
			report := output.Report{
				Project:   p.Name,
				Provider:  a.cfg.LLM.Provider,
				Model:     a.cfg.LLM.Model,
				Endpoints: len(p.Endpoints),
				Persisted: countPersisted(p.Endpoints),
			}
			if genErr != nil {
				report.Error = genErr.Error()
				if _, err := w.WriteReport(report); err != nil {
					a.logger.Warnf("Failed to write report to %s: %v", w.Dir(), err)
				}
				return genErr
			}
			report.CodeBytes = len(res.Code)
			report.Duration = res.Duration

			path, err := w.WriteCode(res.Code)
			if err != nil {
				return err
			}
			reportPath, err := w.WriteReport(report)
			if err != nil {
				return err
			}
			a.logger.Event(logger.InfoLevel).Str("client", path).Str("report", reportPath).Msg("Generation complete")
			fmt.Fprintf(out, "\nWrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&probeDSN, "probe-dsn", "", "Read column names of persisted tables from this database")
	cmd.Flags().StringVar(&probeDB, "probe-db", "", "Database type of --probe-dsn (defaults to the first persisted endpoint's)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not echo the streamed code")
	return cmd
}

func countPersisted(endpoints []types.Endpoint) int {
	n := 0
	for _, ep := range endpoints {
		if ep.Persistence.Enabled {
			n++
		}
	}
	return n
}

// probeTables returns the live columns of every persisted table, or nil without a DSN
func (a *app) probeTables(ctx context.Context, p *types.Project, dsn string, dbType types.DatabaseType) (map[string][]string, error) {
	if dsn == "" {
		return nil, nil
	}

	var tables []string
	for _, ep := range p.Endpoints {
		if !ep.Persistence.Enabled {
			continue
		}
		if dbType == "" {
			dbType = ep.Persistence.DBType
		}
		tables = append(tables, ep.Persistence.TableName)
	}
	if len(tables) == 0 {
		a.logger.Warn("No persisted endpoints, skipping database probe")
		return nil, nil
	}

	prober, err := dbprobe.Open(ctx, dbprobe.Config{Type: dbType, DSN: dsn})
	if err != nil {
		return nil, err
	}
	defer prober.Close()

	columns, err := prober.ColumnNames(ctx, tables)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, t := range tables {
		if _, ok := columns[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		available, err := prober.Tables(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range missing {
			a.logger.Warnf("Table %q not found in probed database (available: %s)", t, strings.Join(available, ", "))
		}
	}
	return columns, nil
}

func (a *app) newAssistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assist",
		Short: "Describe the client in a conversation and apply the resulting configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := llm.NewClient(cmd.Context(), &a.cfg.LLM, a.logger)
			if err != nil {
				return err
			}

			cfg, err := assistant.NewSession(client, a.logger).Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if cfg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No configuration was produced.")
				return nil
			}
			return a.applyConfig(cmd.OutOrStdout(), *cfg)
		},
	}
}
