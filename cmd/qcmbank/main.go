package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coolbeans/qcmbank/internal/logger"
	"github.com/coolbeans/qcmbank/pkg/bulk"
	"github.com/coolbeans/qcmbank/pkg/config"
	"github.com/coolbeans/qcmbank/pkg/extract"
	"github.com/coolbeans/qcmbank/pkg/pattern"
	"github.com/coolbeans/qcmbank/pkg/server"
	"github.com/coolbeans/qcmbank/pkg/store"
	"github.com/coolbeans/qcmbank/pkg/validate"
)

var version = "0.1.0"

// app holds what every command needs once flags and config are resolved.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	registry *pattern.DefaultRegistry
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "qcmbank",
		Short: "Quiz document ingestion",
		Long: `qcmbank turns semi-structured quiz documents (chapters of
multiple-choice questions written by hand in text files) into a
normalized question bank.

It can:
  - Parse a single document to JSON
  - Check a document against quality gates before publishing
  - Import a directory or ZIP of documents into SQLite
  - Watch a directory and re-parse documents as they change
  - Serve the parser over HTTP`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default qcmbank.yaml if present)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev or prod")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("profiles", "", "Directory of dialect profile YAML files")

	rootCmd.AddCommand(parseCmd(a))
	rootCmd.AddCommand(detectCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(watchCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(profilesCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("log-mode"); v != "" {
		cfg.LogMode = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("profiles"); v != "" {
		cfg.ProfilesDir = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	registry, err := pattern.NewRegistryWithDirectory(cfg.ProfilesDir, log.With("component", "profiles"))
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.registry = registry
	return nil
}

func (a *app) detector() *pattern.Detector {
	return pattern.NewDetector(a.registry)
}

func (a *app) importer(importConfig bulk.ImportConfig) *bulk.Importer {
	return bulk.NewImporter(importConfig, a.detector(), a.log.With("component", "import"))
}

func parseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse one quiz document",
		Long: `Parse one quiz document and print the question bank as JSON.

Example:
  qcmbank parse "QUIZZ Parasitologie.txt"
  qcmbank parse cours.txt --profile keycap --diagnostics --output cours.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			profileID, _ := cmd.Flags().GetString("profile")
			withDiagnostics, _ := cmd.Flags().GetBool("diagnostics")

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			profile, err := a.selectProfile(profileID, path, string(data))
			if err != nil {
				return err
			}

			hints := extract.Hints{FallbackTitle: extract.TitleFromFileName(path)}
			if profile != nil {
				hints = profile.Hints(hints.FallbackTitle)
				a.log.Debug("profile selected", "profile", profile.ProfileID, "path", path)
			}

			result, err := extract.Parse(string(data), hints)
			if err != nil && !errors.Is(err, extract.ErrEmptyDocument) {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			if err != nil {
				a.log.Warn("empty document", "path", path)
			}

			for _, w := range result.Diagnostics.Warnings {
				a.log.Warn("parse warning", "path", path, "code", w.Code, "line", w.Line, "message", w.Message)
			}

			var payload any = result.Bank
			if withDiagnostics {
				payload = result
			}
			return writeJSON(output, payload)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	cmd.Flags().String("profile", "", "Force a dialect profile by ID")
	cmd.Flags().Bool("diagnostics", false, "Include dialect and diagnostics in the output")

	return cmd
}

func (a *app) selectProfile(profileID, path, content string) (*pattern.Profile, error) {
	if profileID == "" {
		return a.detector().Select(path, content), nil
	}
	profile, ok := a.registry.Get(profileID)
	if !ok {
		return nil, fmt.Errorf("profile %q not found", profileID)
	}
	return profile, nil
}

func detectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Show the dialect detected for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			content := string(data)

			hints := extract.Hints{FallbackTitle: extract.TitleFromFileName(path)}
			profile := a.detector().Select(path, content)
			if profile != nil {
				hints = profile.Hints(hints.FallbackTitle)
			}
			dialect := extract.DetectDialect(extract.SplitLines(content), hints)

			fmt.Printf("Document: %s\n", path)
			fmt.Println(strings.Repeat("─", 60))
			if profile != nil {
				fmt.Printf("Profile:        %s (%s v%s)\n", profile.ProfileID, profile.Name, profile.Version)
			} else {
				fmt.Printf("Profile:        none\n")
			}
			fmt.Printf("Numbering:      %s\n", dialect.Numbering)
			fmt.Printf("Subchapters:    %v\n", dialect.HasSubchapters)
			fmt.Printf("Glyph family:   %s\n", dialect.GlyphFamily)
			fmt.Printf("Glyphs:         %s\n", strings.Join(dialect.CorrectnessGlyphs, " "))
			fmt.Printf("Explanations:   %s\n", strings.Join(dialect.ExplanationMarkers, ", "))
			fmt.Printf("Lookahead:      %d\n", dialect.SubchapterLookahead)

			matches := a.detector().Detect(content)
			if len(matches) > 0 {
				fmt.Println("\nProfile matches:")
				for i := range matches {
					if verbose {
						fmt.Print(matches[i].DebugString())
					} else {
						fmt.Printf("  %s\n", matches[i].String())
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show indicator scoring details")

	return cmd
}

func checkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run quality gates over a quiz document",
		Long: `Parse a document and run the quality gates over the result:

  V0  Source       - non-empty, valid UTF-8, within the size limit
  V1  Structure    - questions found, none dropped, numbering without gaps
  V2  Answers      - every question has a correct option
  V3  Consistency  - no duplicated or non-discriminating questions

Exits non-zero when a gate fails.

Example:
  qcmbank check "QUIZZ Parasitologie.txt"
  qcmbank check cours.txt --skip V3 --format md > report.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, _ := cmd.Flags().GetString("profile")
			strict, _ := cmd.Flags().GetBool("strict")
			failOnWarn, _ := cmd.Flags().GetBool("fail-on-warn")
			skip, _ := cmd.Flags().GetStringSlice("skip")
			format, _ := cmd.Flags().GetString("format")

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			profile, err := a.selectProfile(profileID, path, string(data))
			if err != nil {
				return err
			}
			hints := extract.Hints{FallbackTitle: extract.TitleFromFileName(path)}
			if profile != nil {
				hints = profile.Hints(hints.FallbackTitle)
			}

			gateConfig := validate.DefaultValidationConfig()
			gateConfig.StrictMode = strict
			gateConfig.FailOnWarn = failOnWarn
			gateConfig.SkipGates = skip

			report := validate.CheckDocument(path, data, hints, gateConfig)

			switch format {
			case "json":
				out, err := report.ToJSON()
				if err != nil {
					return fmt.Errorf("failed to encode report: %w", err)
				}
				fmt.Println(string(out))
			case "md", "markdown":
				fmt.Print(report.ToMarkdown())
			default:
				fmt.Print(report.String())
			}

			if !report.OverallPass {
				return fmt.Errorf("%s failed validation", path)
			}
			return nil
		},
	}

	cmd.Flags().String("profile", "", "Force a dialect profile by ID")
	cmd.Flags().Bool("strict", false, "Stop at the first failing gate")
	cmd.Flags().Bool("fail-on-warn", false, "Fail when a metric is close to its threshold")
	cmd.Flags().StringSlice("skip", nil, "Gates to skip (e.g. V3)")
	cmd.Flags().String("format", "text", "Report format: text, md or json")

	return cmd
}

func importCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir|archive.zip>",
		Short: "Import a directory of quiz documents",
		Long: `Parse every .txt document of a directory (or ZIP archive) in
parallel, continue past documents that fail, and write the merged bank.

The bank is written as JSON with --output, and stored in SQLite when
--subject is given.

Example:
  qcmbank import quizz/parasitologie --subject Parasitologie --semester S3
  qcmbank import quizz.zip --output bank.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			dbPath, _ := cmd.Flags().GetString("db")
			subject, _ := cmd.Flags().GetString("subject")
			semester, _ := cmd.Flags().GetString("semester")
			replace, _ := cmd.Flags().GetBool("replace")
			workers, _ := cmd.Flags().GetInt("workers")
			manifestPath, _ := cmd.Flags().GetString("manifest")
			force, _ := cmd.Flags().GetBool("force")
			format, _ := cmd.Flags().GetString("format")

			importConfig := bulk.DefaultImportConfig()
			importConfig.Workers = a.cfg.Workers
			if workers > 0 {
				importConfig.Workers = workers
			}
			importConfig.ManifestPath = manifestPath
			importConfig.Force = force

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			importer := a.importer(importConfig)
			source := args[0]

			var result *bulk.ImportResult
			var err error
			if strings.EqualFold(filepath.Ext(source), ".zip") {
				result, err = importer.ImportArchive(ctx, source)
			} else {
				result, err = importer.ImportDir(ctx, source)
			}
			if err != nil {
				return err
			}

			if format == "json" {
				fmt.Println(bulk.FormatImportReportJSON(result.Report))
			} else {
				fmt.Print(bulk.FormatImportReport(result.Report))
			}

			if output != "" {
				if err := writeJSON(output, result.Bank); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Bank written to: %s\n", output)
			}

			if subject == "" {
				return nil
			}
			if dbPath == "" {
				dbPath = a.cfg.Database
			}

			s, err := store.Open(dbPath, a.log)
			if err != nil {
				return err
			}
			defer s.Close()

			ref := store.SubjectRef{Title: subject, Semester: semester}
			save := s.SaveBank
			if replace {
				save = s.ReplaceSubject
			}
			saved, err := save(ctx, ref, result.Bank)
			if err != nil {
				return fmt.Errorf("failed to store bank: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Stored %s (%s): %d questions\n", saved.Title, dbPath, saved.TotalQCM)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the merged bank JSON to this file")
	cmd.Flags().String("db", "", "SQLite database (default from config)")
	cmd.Flags().String("subject", "", "Store the bank under this subject")
	cmd.Flags().String("semester", "", "Semester of the subject")
	cmd.Flags().Bool("replace", false, "Replace the subject instead of adding to it")
	cmd.Flags().Int("workers", 0, "Parallel workers (default from config)")
	cmd.Flags().String("manifest", "", "Manifest file used to skip unchanged documents")
	cmd.Flags().Bool("force", false, "Re-import documents the manifest marks unchanged")
	cmd.Flags().String("format", "text", "Report format: text or json")

	return cmd
}

func watchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-parse documents when they change",
		Long: `Watch a directory and write <name>.json for every document
created or modified in it. Dialect profiles are reloaded when their files
change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, _ := cmd.Flags().GetString("output-dir")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.ProfilesDir != "" {
				if err := a.registry.Watch(); err != nil {
					a.log.Warn("profile hot reload disabled", "error", err)
				} else {
					defer a.registry.StopWatch()
				}
			}

			watcher := bulk.NewWatcher(a.importer(bulk.DefaultImportConfig()), args[0], outputDir,
				a.log.With("component", "watch"))
			if err := watcher.ProcessExisting(); err != nil {
				return err
			}
			return watcher.Run(ctx)
		},
	}

	cmd.Flags().String("output-dir", "", "Directory for JSON output (default: next to the documents)")

	return cmd
}

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			dbPath, _ := cmd.Flags().GetString("db")
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			if dbPath == "" {
				dbPath = a.cfg.Database
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := store.Open(dbPath, a.log)
			if err != nil {
				return err
			}
			defer s.Close()

			if a.cfg.ProfilesDir != "" {
				if err := a.registry.Watch(); err != nil {
					a.log.Warn("profile hot reload disabled", "error", err)
				} else {
					defer a.registry.StopWatch()
				}
			}

			httpLog := a.log.With("component", "http")
			parser := server.NewParseHandler(a.registry, a.cfg.MaxBodyBytes, httpLog)
			srv := server.NewServer(server.RouterConfig{
				ParseHandler:   parser,
				SubjectHandler: server.NewSubjectHandler(parser, s, httpLog),
				Log:            httpLog,
			})
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().String("db", "", "SQLite database (default from config)")

	return cmd
}

func profilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the loaded dialect profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := a.registry.List()
			if len(profiles) == 0 {
				fmt.Println("No profiles loaded.")
				return nil
			}

			fmt.Printf("%-20s %-10s %-10s %s\n", "ID", "VERSION", "NUMBERING", "NAME")
			fmt.Println(strings.Repeat("─", 70))
			for _, p := range profiles {
				numbering := p.Dialect.Numbering
				if numbering == "" {
					numbering = "auto"
				}
				fmt.Printf("%-20s %-10s %-10s %s\n", p.ProfileID, p.Version, numbering, p.Name)
			}
			fmt.Printf("\nTotal: %d profiles\n", len(profiles))
			return nil
		},
	}
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
