package schema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultRequestTimeout bounds URL fetches when no timeout is configured.
const DefaultRequestTimeout = 15 * time.Second

// Loader reads definition documents from files, fs.FS entries or URLs.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem sets the filesystem used by fs sources created with a nil
// fs.FS.
func WithFileSystem(fsys fs.FS) LoaderOption {
	return func(l *Loader) { l.fs = fsys }
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		if client != nil {
			l.http = client
		}
	}
}

// WithRequestTimeout bounds each URL fetch.
func WithRequestTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = d }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		http:    http.DefaultClient,
		timeout: DefaultRequestTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the document behind src.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch s := src.(type) {
	case fsSource:
		fsys := s.fsys
		if fsys == nil {
			fsys = l.fs
		}
		data, err = loadFromFS(ctx, fsys, s.name)
	default:
		switch src.Kind() {
		case SourceKindFile:
			data, err = loadFile(ctx, src.Location())
		case SourceKindURL:
			data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
		default:
			err = fmt.Errorf("schema loader: unsupported source kind %q", src.Kind())
		}
	}
	if err != nil {
		return Document{}, fmt.Errorf("schema loader: %s: %w", src.Location(), err)
	}
	l.logger.Debug("definition loaded",
		zap.String("kind", string(src.Kind())),
		zap.String("location", src.Location()),
		zap.Int("bytes", len(data)),
	)
	return NewDocument(src, data)
}

// Definition loads src and decodes it. component selects the OpenAPI
// component schema and is ignored for native definitions.
func (l *Loader) Definition(ctx context.Context, src Source, component string) (*Definition, error) {
	doc, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return Decode(ctx, doc, component)
}

// Decode converts a document into a validated Definition.
func Decode(ctx context.Context, doc Document, component string) (*Definition, error) {
	var (
		def *Definition
		err error
	)
	switch doc.Format() {
	case FormatOpenAPI:
		def, err = FromOpenAPI(ctx, doc.Raw(), component)
	default:
		def, err = ParseDefinition(doc.Raw())
	}
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", doc.Location(), err)
	}
	return def, nil
}

// ParseDefinition decodes a native YAML or JSON definition. Unknown keys are
// rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("schema: definition is empty")
		}
		return nil, fmt.Errorf("schema: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func loadFromFS(ctx context.Context, fsys fs.FS, name string) ([]byte, error) {
	if fsys == nil {
		return nil, errors.New("filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("fs path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(fsys, name)
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
