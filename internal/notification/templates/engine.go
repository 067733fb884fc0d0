package templates

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	texttmpl "text/template"
)

// Config controls where email templates come from.
// Dir, when set, replaces the embedded set with <Dir>/<id>.tmpl files.
// Reload reparses Dir on every render and is meant for local template work.
type Config struct {
	Dir    string
	Reload bool
}

// Rendered is one materialized email.
type Rendered struct {
	Subject   string
	EmailHTML string
	EmailText string
}

// Scenario names a template file without its data type.
type Scenario interface {
	ID() string
}

// Handle ties a scenario ID to the data it is rendered with.
type Handle[T any] struct {
	id string
}

// Expect declares a typed handle, e.g. Expect[WelcomeData]("user.welcome").
func Expect[T any](id string) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() string { return h.id }

// Block names every scenario file may define. Only subject is mandatory.
const (
	blockSubject = "subject"
	blockText    = "email_text"
	blockHTML    = "email_html"
)

// Engine parses and caches scenario templates.
type Engine struct {
	cfg    Config
	log    *slog.Logger
	source fs.FS
	prefix string

	mu    sync.RWMutex
	cache map[string]*scenario
}

// scenario keeps both parses of one file: text for subject and plain body, html for the escaped body.
type scenario struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// NewEngine builds an engine over the embedded templates or over cfg.Dir.
func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	e := &Engine{
		cfg:    cfg,
		log:    log,
		source: EmbeddedFS,
		prefix: "files/",
		cache:  make(map[string]*scenario),
	}
	if cfg.Dir != "" {
		e.source = os.DirFS(cfg.Dir)
		e.prefix = ""
	}
	return e
}

// Preload parses every scenario so a broken file fails startup instead of the first send.
func (e *Engine) Preload(scenarios ...Scenario) error {
	for _, s := range scenarios {
		if _, err := e.lookup(s.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Render executes a typed scenario.
func Render[T any](ctx context.Context, e *Engine, h Handle[T], data T) (Rendered, error) {
	return e.RenderAny(ctx, h.ID(), data)
}

// RenderAny executes a scenario by ID. A scenario needs a subject and at least one body.
func (e *Engine) RenderAny(_ context.Context, id string, data any) (Rendered, error) {
	sc, err := e.lookup(id)
	if err != nil {
		return Rendered{}, err
	}
	if sc.text.Lookup(blockSubject) == nil {
		return Rendered{}, fmt.Errorf("template %s: missing subject block", id)
	}

	var out Rendered
	if out.Subject, err = sc.execText(blockSubject, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s %s: %w", id, blockSubject, err)
	}
	if out.EmailText, err = sc.execText(blockText, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s %s: %w", id, blockText, err)
	}
	if out.EmailHTML, err = sc.execHTML(blockHTML, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s %s: %w", id, blockHTML, err)
	}
	if out.EmailHTML == "" && out.EmailText == "" {
		return Rendered{}, fmt.Errorf("template %s: no email body", id)
	}
	return out, nil
}

func (e *Engine) lookup(id string) (*scenario, error) {
	if e.cfg.Dir != "" && e.cfg.Reload {
		e.log.Debug("reparsing template from disk", "id", id, "dir", e.cfg.Dir)
		return e.parse(id)
	}

	e.mu.RLock()
	sc, ok := e.cache[id]
	e.mu.RUnlock()
	if ok {
		return sc, nil
	}

	sc, err := e.parse(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[id] = sc
	e.mu.Unlock()
	return sc, nil
}

func (e *Engine) parse(id string) (*scenario, error) {
	path := e.prefix + id + ".tmpl"
	b, err := fs.ReadFile(e.source, path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}
	text, err := texttmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	html, err := htmltmpl.New(id).Option("missingkey=error").Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse template %s as html: %w", id, err)
	}
	return &scenario{text: text, html: html}, nil
}

// execText returns "" for a block the file does not define.
func (s *scenario) execText(block string, data any) (string, error) {
	if s.text.Lookup(block) == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.text.ExecuteTemplate(&buf, block, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *scenario) execHTML(block string, data any) (string, error) {
	if s.html.Lookup(block) == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.html.ExecuteTemplate(&buf, block, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
