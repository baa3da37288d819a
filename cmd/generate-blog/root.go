package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xostack/xoblog"
	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/blog"
	"github.com/xostack/xoblog/config"
	"github.com/xostack/xoblog/source"
	"github.com/xostack/xoblog/source/search"
	"github.com/xostack/xoblog/source/wikipedia"
)

// Output formats accepted by --format.
const (
	formatMarkdown = "markdown"
	formatText     = "text"
	formatHTML     = "html"
)

type options struct {
	configPath  string
	debug       bool
	topic       string
	wikipedia   bool
	search      bool
	provider    string
	model       string
	temperature float64
	maxTokens   int
	words       int
	format      string
	sequential  bool
}

// newFetchers builds the content sources for a run. Tests replace it.
var newFetchers = buildFetchers

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "generate-blog [topic]",
		Short: "Generate a blog post about a topic with an LLM",
		Long: `generate-blog asks an LLM provider to write a blog post in three sections
(introduction, main content, conclusion) and prints it to standard output.

Background facts from Wikipedia (--wikipedia) and a web-search API
(--search) can be folded into the prompts.

Credentials are read from the configuration file and from the environment
(GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY, OLLAMA_HOST, GOOGLE_API_KEY,
GOOGLE_CSE_ID, SEARXNG_URL).`,
		Example: `  generate-blog --topic "Quantum Computing"
  generate-blog "Rust vs Go" --wikipedia --search --words 2000
  generate-blog --topic "Edge AI" --provider ollama --model llama3.1:8b --format html`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd, opts.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to the configuration file (default $XDG_CONFIG_HOME/xoblog/config.toml)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	f := cmd.Flags()
	f.StringVarP(&opts.topic, "topic", "t", "", "topic of the blog post")
	f.BoolVar(&opts.wikipedia, "wikipedia", false, "enrich the prompts with Wikipedia extracts")
	f.BoolVar(&opts.search, "search", false, "enrich the prompts with web-search snippets")
	f.StringVarP(&opts.provider, "provider", "p", "", "LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	f.StringVarP(&opts.model, "model", "m", "", "model name (default: the provider's default model)")
	f.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature (0-2)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens per section")
	f.IntVarP(&opts.words, "words", "w", 0, fmt.Sprintf("target word count (%d-%d)", config.MinWordCount, config.MaxWordCount))
	f.StringVarP(&opts.format, "format", "f", formatMarkdown, "output format: markdown, text or html")
	f.BoolVar(&opts.sequential, "sequential", false, "generate sections one at a time so a fatal error skips the rest (concurrent runs cancel requests in flight)")

	cmd.AddCommand(newProvidersCmd(), newConfigCmd(opts))
	return cmd
}

func setupLogging(cmd *cobra.Command, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})
}

func runGenerate(cmd *cobra.Command, opts *options, args []string) error {
	ctx := cmd.Context()

	topic := strings.TrimSpace(opts.topic)
	if topic == "" && len(args) > 0 {
		topic = strings.TrimSpace(args[0])
	}
	if topic == "" {
		return apierr.New(apierr.ErrInvalidInput, "", "a topic is required (--topic or first argument)")
	}
	switch opts.format {
	case formatMarkdown, formatText, formatHTML:
	default:
		return apierr.New(apierr.ErrInvalidInput, "", fmt.Sprintf("unknown output format %q", opts.format))
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, &cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	client, err := xoblog.GetClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info().Str("provider", client.ProviderName()).Str("model", cfg.ModelFor(cfg.DefaultProvider).Model).
		Str("topic", topic).Msg("generating blog post")

	sources := source.NewSet()
	if opts.wikipedia {
		sources[source.Encyclopedia] = struct{}{}
	}
	if opts.search {
		sources[source.Search] = struct{}{}
	}

	builder := blog.NewBuilder(xoblog.WithRetry(client, xoblog.PolicyFromConfig(cfg)), newFetchers(ctx, cfg, sources))
	builder.Composer = blog.Composer{WordCount: cfg.Generation.WordCount}
	builder.Sequential = cfg.Generation.Sequential

	post, err := builder.Build(ctx, topic, sources)
	if err != nil {
		return err
	}

	out, err := render(post, opts.format)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.DefaultProvider = opts.provider
	}
	if flags.Changed("model") {
		llmCfg, _ := cfg.GetLLMConfig(cfg.DefaultProvider)
		llmCfg.Model = opts.model
		cfg.SetLLMConfig(cfg.DefaultProvider, llmCfg)
	}
	if flags.Changed("temperature") {
		cfg.Generation.Temperature = opts.temperature
	}
	if flags.Changed("max-tokens") {
		cfg.Generation.MaxTokens = opts.maxTokens
	}
	if flags.Changed("words") {
		cfg.Generation.WordCount = opts.words
	}
	if flags.Changed("sequential") {
		cfg.Generation.Sequential = opts.sequential
	}
}

// buildFetchers returns a fetcher for every requested origin that can be
// configured. A search backend without credentials is skipped with a
// warning.
func buildFetchers(ctx context.Context, cfg config.Config, sources source.Set) map[source.Origin]source.Fetcher {
	fetchers := make(map[source.Origin]source.Fetcher)
	if sources.Has(source.Encyclopedia) {
		fetchers[source.Encyclopedia] = wikipedia.NewClient(cfg.Sources.Wikipedia, cfg.RequestTimeoutSeconds)
	}
	if sources.Has(source.Search) {
		f, err := search.New(ctx, cfg.Sources.Search, cfg.RequestTimeoutSeconds)
		if err != nil {
			log.Warn().Err(err).Msg("web search disabled")
		} else {
			fetchers[source.Search] = f
		}
	}
	return fetchers
}

func render(post *blog.Post, format string) (string, error) {
	switch format {
	case formatText:
		return post.Text() + "\n", nil
	case formatHTML:
		return post.HTML()
	default:
		return post.Markdown(), nil
	}
}
