package nls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError reports the malformed localize calls that failed one
// file's extraction. The file is dropped from output entirely; nothing
// partial is emitted for it.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Issues, "; "))
}

// RewriteFile runs extraction over one source file. On success it emits the
// rewritten source record, the bundle artifact and, in flattened mode, the
// flat key value artifact, in that order. Any validation issue fails the
// whole file.
func (p *Pipeline) RewriteFile(ctx context.Context, f *File) ([]*File, error) {
	result := Rewrite(string(f.Contents), f.SourceMap)
	if len(result.Errors) > 0 {
		return nil, &ValidationError{Path: f.Path, Issues: result.Errors}
	}

	out := []*File{{
		Path:      f.Path,
		Contents:  []byte(result.Contents),
		SourceMap: result.SourceMap,
	}}

	bundleData, err := marshalArtifact(result.Bundle)
	if err != nil {
		return nil, fmt.Errorf("%s: serialising bundle: %w", f.Path, err)
	}
	out = append(out, &File{Path: replaceExt(f.Path, BundleExt), Contents: bundleData})

	if p.flattened {
		flat, flatErr := result.Bundle.Flatten()
		if flatErr != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, flatErr)
		}
		flatData, marshalErr := marshalArtifact(flat)
		if marshalErr != nil {
			return nil, fmt.Errorf("%s: serialising flattened bundle: %w", f.Path, marshalErr)
		}
		out = append(out, &File{Path: replaceExt(f.Path, FlatExt), Contents: flatData})
	}

	p.Log(ctx).WithField("path", f.Path).
		WithField("messages", result.Bundle.Len()).
		Debug("extracted localize calls")
	return out, nil
}

// LocalizeFile expands one bundle artifact into per language message files.
// Files that are not bundle artifacts pass through unchanged. A language
// with no translation data for the file is reported and skipped; it never
// aborts the other languages or files.
func (p *Pipeline) LocalizeFile(ctx context.Context, f *File) ([]*File, error) {
	if !f.IsBundle() {
		return []*File{f}, nil
	}

	var bundle MessageBundle
	if err := json.Unmarshal(f.Contents, &bundle); err != nil {
		return nil, fmt.Errorf("%s: reading bundle: %w", f.Path, err)
	}

	module := f.Module()
	out := []*File{f}
	for _, lang := range p.languages {
		log := p.Log(ctx).WithField("path", f.Path).WithField("language", string(lang))

		tag, err := lang.Tag()
		if err != nil {
			log.WithError(err).Error("cannot derive locale tag")
			continue
		}

		result := Resolve(ctx, module, &bundle, lang, p.source)
		for _, problem := range result.Problems {
			log.Warn(problem)
		}
		if result.Messages == nil {
			continue
		}

		data, err := marshalArtifact(result.Messages)
		if err != nil {
			return nil, fmt.Errorf("%s: serialising %s messages: %w", f.Path, lang, err)
		}
		out = append(out, &File{Path: module + ".nls." + tag + ".json", Contents: data})
	}
	return out, nil
}
