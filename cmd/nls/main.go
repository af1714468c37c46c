// Command nls drives the localization pipeline from a build script: rewrite
// extracts message bundles out of source files, localize expands bundle
// artifacts into per language message files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pitabwire/nls"
	"github.com/pitabwire/nls/config"
	"github.com/pitabwire/nls/sourcemap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "rewrite":
		exitOnErr(cmdRewrite(os.Args[2:]))
	case "localize":
		exitOnErr(cmdLocalize(os.Args[2:]))
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stdout, "nls <command> [args]")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Commands:")
	fmt.Fprintln(os.Stdout, "  rewrite  [--out DIR] [--flatten] FILE...")
	fmt.Fprintln(os.Stdout, "  localize [--out DIR] [--i18n DIR] [--base DIR] [--languages CODES] FILE...")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Configuration also comes from the environment (NLS_LANGUAGES,")
	fmt.Fprintln(os.Stdout, "NLS_TRANSLATIONS_DIR, NLS_CONTENT_BASE_DIR, NLS_EMIT_FLATTENED).")
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdRewrite(args []string) error {
	fset := flag.NewFlagSet("rewrite", flag.ExitOnError)
	outDir := fset.String("out", "", "directory to write outputs into, defaults to in place")
	flatten := fset.Bool("flatten", false, "additionally emit the flat key value artifact")
	if err := fset.Parse(args); err != nil {
		return err
	}

	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return err
	}
	if *flatten {
		cfg.EmitFlattened = true
	}

	ctx := context.Background()
	pipeline, err := nls.New(ctx, nls.WithConfiguration(&cfg))
	if err != nil {
		return err
	}
	defer pipeline.Shutdown(ctx)

	return run(ctx, pipeline, pipeline.RewriteFile, fset.Args(), *outDir)
}

func cmdLocalize(args []string) error {
	fset := flag.NewFlagSet("localize", flag.ExitOnError)
	outDir := fset.String("out", "", "directory to write outputs into, defaults to in place")
	i18nDir := fset.String("i18n", "", "translation data root")
	baseDir := fset.String("base", "", "content directory inside each language folder")
	languages := fset.String("languages", "", "comma separated language codes")
	if err := fset.Parse(args); err != nil {
		return err
	}

	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return err
	}
	if *i18nDir != "" {
		cfg.TranslationsDir = *i18nDir
	}
	if *baseDir != "" {
		cfg.ContentBaseDir = *baseDir
	}
	if *languages != "" {
		cfg.Languages = strings.Split(*languages, ",")
	}

	ctx := context.Background()
	pipeline, err := nls.New(ctx, nls.WithConfiguration(&cfg))
	if err != nil {
		return err
	}
	defer pipeline.Shutdown(ctx)

	return run(ctx, pipeline, pipeline.LocalizeFile, fset.Args(), *outDir)
}

// run feeds the named files through the transform and writes every emitted
// record back to disk. Failed files are reported and dropped; the remaining
// files still go through.
func run(ctx context.Context, pipeline *nls.Pipeline, transform nls.Transform, paths []string, outDir string) error {
	if len(paths) == 0 {
		return errors.New("no input files")
	}

	in := make(chan *nls.File)
	go func() {
		defer close(in)
		for _, p := range paths {
			f, err := readFile(p)
			if err != nil {
				pipeline.Log(ctx).WithError(err).WithField("path", p).Error("cannot read input")
				continue
			}
			in <- f
		}
	}()

	out, errs := pipeline.Run(ctx, in, transform)

	failed := 0
	for out != nil || errs != nil {
		select {
		case f, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			if err := writeFile(f, outDir); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			failed++
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func readFile(path string) (*nls.File, error) {
	contents, err := os.ReadFile(path) // #nosec G304 -- paths are CLI arguments.
	if err != nil {
		return nil, err
	}

	f := &nls.File{Path: path, Contents: contents}
	mapData, err := os.ReadFile(path + ".map") // #nosec G304
	if err == nil {
		srcMap, parseErr := sourcemap.Parse(mapData)
		if parseErr != nil {
			return nil, fmt.Errorf("%s.map: %w", path, parseErr)
		}
		f.SourceMap = srcMap
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return f, nil
}

func writeFile(f *nls.File, outDir string) error {
	target := f.Path
	if outDir != "" {
		target = filepath.Join(outDir, f.Path)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(target, f.Contents, 0o600); err != nil {
		return err
	}

	if f.SourceMap == nil {
		return nil
	}
	mapData, err := f.SourceMap.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(target+".map", mapData, 0o600)
}
