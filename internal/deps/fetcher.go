package deps

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// RemoteFileFetcher reads dependency files from a repository via a
// RepositoryReader.
type RemoteFileFetcher struct {
	src      *Source
	reader   RepositoryReader
	required []string
	optional []string

	commit string
	files  Files
}

// NewFileFetcher returns a fetcher that reads the required and optional
// files from the directory and branch of src.
// A missing required file is an error, missing optional files are ignored.
func NewFileFetcher(src *Source, reader RepositoryReader, required, optional []string) *RemoteFileFetcher {
	return &RemoteFileFetcher{
		src:      src,
		reader:   reader,
		required: required,
		optional: optional,
	}
}

func (f *RemoteFileFetcher) Commit(ctx context.Context) (string, error) {
	if f.commit != "" {
		return f.commit, nil
	}

	if f.src.Branch == "" {
		return "", errors.New("source branch is empty")
	}

	sha, err := f.reader.BranchHead(ctx, f.src.Branch)
	if err != nil {
		return "", fmt.Errorf("retrieving head commit of branch %q failed: %w", f.src.Branch, err)
	}

	f.commit = sha

	return sha, nil
}

func (f *RemoteFileFetcher) Files(ctx context.Context) (Files, error) {
	if f.files != nil {
		return f.files, nil
	}

	commit, err := f.Commit(ctx)
	if err != nil {
		return nil, err
	}

	result := make(Files, 0, len(f.required)+len(f.optional))

	for _, name := range f.required {
		file, err := f.fetch(ctx, name, commit)
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				return nil, fmt.Errorf("required dependency file %q not found in %s: %w", name, f.src, err)
			}

			return nil, err
		}

		result = append(result, file)
	}

	for _, name := range f.optional {
		file, err := f.fetch(ctx, name, commit)
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				continue
			}

			return nil, err
		}

		result = append(result, file)
	}

	f.files = result

	return result, nil
}

func (f *RemoteFileFetcher) fetch(ctx context.Context, name, commit string) (*DependencyFile, error) {
	dir := normalizeDirectory(f.src.Directory)
	p := strings.TrimPrefix(path.Join(dir, name), "/")

	content, err := f.reader.ReadFile(ctx, p, commit)
	if err != nil {
		return nil, fmt.Errorf("reading %q failed: %w", p, err)
	}

	return &DependencyFile{
		Name:      name,
		Directory: dir,
		Content:   string(content),
	}, nil
}

func normalizeDirectory(dir string) string {
	if dir == "" {
		return "/"
	}

	return path.Clean("/" + dir)
}
