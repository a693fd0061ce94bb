package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"auto_manim_codegen/generator"
	"auto_manim_codegen/publisher"
	"auto_manim_codegen/reference"
	"auto_manim_codegen/retry"
	"auto_manim_codegen/validation"
)

var (
	configPath  string
	outputDir   string
	reportPath  string
	scenesPath  string
	constraints []string
	maxAttempts int
	verbose     bool
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:           "scenegen",
	Short:         "Generate Manim scenes and validate them until they compile",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate <topic...>",
	Short: "Generate scene code for a topic, retrying with compiler feedback",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for generated scenes (overrides config.output_dir)")
	generateCmd.Flags().StringVar(&reportPath, "report", "", "write a run report (.md or .html)")
	generateCmd.Flags().StringVar(&scenesPath, "scenes", "", "path to a JSON scene plan")
	generateCmd.Flags().StringArrayVar(&constraints, "constraint", nil, "extra constraint for the model (repeatable)")
	generateCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempt budget (overrides config.retry.max_attempts)")
	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := publisher.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if maxAttempts > 0 {
		cfg.Retry.MaxAttempts = maxAttempts
	}

	brief := generator.Brief{Topic: strings.Join(args, " "), Constraints: constraints}
	if scenesPath != "" {
		plan, err := os.ReadFile(scenesPath)
		if err != nil {
			return fmt.Errorf("read scene plan: %w", err)
		}
		brief.ScenePlan = string(plan)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := buildController(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting run", zap.String("topic", brief.Topic), zap.Int("max_attempts", cfg.Retry.MaxAttempts))
	out, err := ctrl.Run(ctx, brief)
	if err != nil {
		return err
	}

	printResults(out)
	if reportPath != "" {
		if err := publisher.WriteReport(reportPath, out); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report written", zap.String("path", reportPath))
	}

	if runErr := out.Err(); runErr != nil {
		var exhausted *retry.ExhaustedRetriesError
		if errors.As(runErr, &exhausted) {
			return fmt.Errorf("failing scenes: %s", strings.Join(out.FailedUnits(), ", "))
		}
		return runErr
	}

	pub, err := publisher.New(cfg.OutputDir, validation.DefaultExtension, logger)
	if err != nil {
		return err
	}
	paths, err := pub.WriteArtifacts(out)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func buildController(ctx context.Context, cfg publisher.Config, logger *zap.Logger) (*retry.Controller, error) {
	llm, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm, logger.Named("generator"))
	if err != nil {
		return nil, err
	}

	uv, err := validation.NewUnitValidator(cfg.Validator.Binary,
		validation.WithArgs(cfg.Validator.Args...),
		validation.WithTimeout(cfg.Validator.Timeout),
		validation.WithTempDir(cfg.Validator.TempDir),
		validation.WithLogger(logger.Named("validator")),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("toolchain configured",
		zap.String("binary", cfg.Validator.Binary),
		zap.Strings("args", cfg.Validator.Args),
		zap.Duration("timeout", uv.Timeout()),
		zap.Int("workers", cfg.Validator.Workers),
	)
	dispatcher := validation.NewDispatcher(uv,
		validation.WithWorkers(cfg.Validator.Workers),
		validation.WithFileExtension(uv.Extension()),
		validation.WithDispatchLogger(logger.Named("dispatcher")),
	)

	opts := []retry.Option{
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithLogger(logger.Named("retry")),
	}
	if cfg.Reference.Enabled() {
		ref, err := reference.New(reference.Settings{
			APIKey:    cfg.Reference.APIKey,
			BaseURL:   cfg.Reference.BaseURL,
			LibraryID: cfg.Reference.LibraryID,
			Timeout:   cfg.Reference.Timeout,
		}, nil, logger.Named("reference"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, retry.WithLookup(ref))
	}
	return retry.NewController(agent, dispatcher, opts...)
}

func buildLLM(ctx context.Context, cfg publisher.LLMConfig) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
	}
	switch cfg.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "gemini":
		return generator.NewGeminiLLMFromConfig(ctx, settings)
	case "mock":
		return generator.NewMockLLM(cfg.Replies...), nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func printResults(out *retry.Outcome) {
	fmt.Printf("%s after %d attempt(s)\n", out.Status, out.Attempts)
	if out.Problem != "" {
		failColor.Print("  FAIL ")
		fmt.Printf("oracle output: %s\n", out.Problem)
	}
	for _, r := range out.Results {
		if r.Success {
			passColor.Print("  PASS ")
			fmt.Printf("%s (%s)\n", r.UnitID, r.EntityName)
			continue
		}
		failColor.Print("  FAIL ")
		reason := "compile error"
		if r.TimedOut {
			reason = "timed out"
		}
		fmt.Printf("%s (%s): %s\n", r.UnitID, r.EntityName, reason)
	}
}
