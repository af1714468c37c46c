// Package nls extracts localizable messages from source files and resolves
// the extracted bundles against per language translation data.
//
// Extraction rewrites every localize call in a file to a stable numeric
// reference and collects the keys and default messages into a bundle
// artifact. Resolution later replays a bundle against a language's
// translation data to produce the ordered localized messages shipped in a
// language pack. The two stages are decoupled: they run at different times,
// usually in different processes, and only share the bundle artifact.
package nls

import (
	"context"
	"fmt"

	"github.com/pitabwire/util"

	"github.com/pitabwire/nls/config"
	"github.com/pitabwire/nls/localization"
	"github.com/pitabwire/nls/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "nls/" + string(c)
}

const ctxKeyPipeline = contextKey("pipelineKey")

// ToContext pushes the pipeline into the supplied context.
func ToContext(ctx context.Context, p *Pipeline) context.Context {
	return context.WithValue(ctx, ctxKeyPipeline, p)
}

// FromContext extracts the pipeline from the supplied context if any exists.
func FromContext(ctx context.Context) *Pipeline {
	p, ok := ctx.Value(ctxKeyPipeline).(*Pipeline)
	if !ok {
		return nil
	}
	return p
}

// Pipeline wires the rewrite and resolve stages over a stream of files. An
// instance is immutable after New and safe for concurrent use; all per file
// state stays inside the individual operations.
type Pipeline struct {
	logger          *util.LogEntry
	languages       []Language
	source          TranslationSource
	translationsDir string
	contentDir      string
	flattened       bool
	poolOpts        []workerpool.Option
	pool            workerpool.WorkerPool
}

// Option configures a Pipeline at construction time.
type Option func(ctx context.Context, p *Pipeline)

// WithLanguages sets the languages resolution emits packs for.
func WithLanguages(languages ...Language) Option {
	return func(_ context.Context, p *Pipeline) {
		p.languages = languages
	}
}

// WithTranslationsDir points the pipeline at the translation data root.
func WithTranslationsDir(dir string) Option {
	return func(_ context.Context, p *Pipeline) {
		p.translationsDir = dir
	}
}

// WithContentBaseDir scopes translation lookups to a directory inside each
// language folder.
func WithContentBaseDir(dir string) Option {
	return func(_ context.Context, p *Pipeline) {
		p.contentDir = dir
	}
}

// WithFlattenedOutput additionally emits the flat key value artifact for
// every rewritten file.
func WithFlattenedOutput() Option {
	return func(_ context.Context, p *Pipeline) {
		p.flattened = true
	}
}

// WithTranslationSource overrides where resolution reads translation data
// from; the default loads files below the translations directory.
func WithTranslationSource(source TranslationSource) Option {
	return func(_ context.Context, p *Pipeline) {
		p.source = source
	}
}

// WithLogger replaces the pipeline logger.
func WithLogger(opts ...util.Option) Option {
	return func(ctx context.Context, p *Pipeline) {
		p.logger = util.NewLogger(ctx, opts...)
	}
}

// WithWorkerPoolOptions tunes the pool Run fans files out on.
func WithWorkerPoolOptions(opts ...workerpool.Option) Option {
	return func(_ context.Context, p *Pipeline) {
		p.poolOpts = append(p.poolOpts, opts...)
	}
}

// WithConfiguration applies every configuration facet the supplied object
// exposes, in the same spirit as passing individual options.
func WithConfiguration(cfg any) Option {
	return func(ctx context.Context, p *Pipeline) {
		if lc, ok := cfg.(config.ConfigurationLocalization); ok {
			p.languages = p.languages[:0]
			for _, code := range lc.LanguageList() {
				p.languages = append(p.languages, Language(code))
			}
			p.translationsDir = lc.TranslationsBaseDir()
			p.contentDir = lc.ContentDir()
			p.flattened = lc.FlattenedOutput()
		}

		if logCfg, ok := cfg.(config.ConfigurationLogLevel); ok {
			var opts []util.Option
			logLevel, err := util.ParseLevel(logCfg.LoggingLevel())
			if err == nil {
				opts = append(opts, util.WithLogLevel(logLevel))
			}
			opts = append(opts,
				util.WithLogTimeFormat(logCfg.LoggingTimeFormat()),
				util.WithLogNoColor(!logCfg.LoggingColored()))
			if logCfg.LoggingShowStackTrace() {
				opts = append(opts, util.WithLogStackTrace())
			}
			p.logger = util.NewLogger(ctx, opts...)
		}

		if poolCfg, ok := cfg.(config.ConfigurationWorkerPool); ok {
			p.poolOpts = append(p.poolOpts, workerpool.WithConfiguration(poolCfg))
		}
	}
}

// New creates a pipeline with the supplied options. Requested languages are
// validated here so resolution never meets an unknown code.
func New(ctx context.Context, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		logger:          util.Log(ctx),
		translationsDir: "i18n",
	}
	for _, opt := range opts {
		opt(ctx, p)
	}

	for _, lang := range p.languages {
		if !lang.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, string(lang))
		}
	}

	if p.source == nil {
		p.source = localization.NewLoader(p.translationsDir, localization.WithContentDir(p.contentDir))
	}

	pool, err := workerpool.NewPool(ctx, append([]workerpool.Option{workerpool.WithPoolLogger(p.logger)}, p.poolOpts...)...)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	return p, nil
}

// Log returns the pipeline logger bound to the supplied context.
func (p *Pipeline) Log(ctx context.Context) *util.LogEntry {
	return p.logger.WithContext(ctx)
}

// Languages returns the configured language list.
func (p *Pipeline) Languages() []Language {
	return p.languages
}

// Shutdown releases the worker pool.
func (p *Pipeline) Shutdown(_ context.Context) {
	p.pool.Shutdown()
}
