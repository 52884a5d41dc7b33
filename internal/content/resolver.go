// Package content resolves course items to their content by item id prefix
// and serves the static assets under /modulos/{moduleId}/.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/diplomado/internal/quiz"
)

// AssetPrefix is the public URL prefix of module assets.
const AssetPrefix = "/modulos"

var (
	// ErrUnknownContent is returned for item ids with no recognised prefix.
	ErrUnknownContent = errors.New("unrecognised content type")
	// ErrNotFound is returned when the content file does not exist.
	ErrNotFound = errors.New("content not found")
	// ErrInvalidContent is returned when a content file fails validation.
	ErrInvalidContent = errors.New("invalid content")
)

// Activity is a practical exercise description.
type Activity struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Deliverable  string `json:"deliverable,omitempty"`
}

// Resource is one recommended reading or link.
type Resource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Content is the typed payload of one course item. Only the field matching
// Kind is set, except URL which always carries the asset location.
type Content struct {
	Kind       Kind             `json:"kind"`
	URL        string           `json:"url"`
	HTML       string           `json:"html,omitempty"`
	Activity   *Activity        `json:"activity,omitempty"`
	Resources  []Resource       `json:"resources,omitempty"`
	Evaluation *quiz.Evaluation `json:"evaluation,omitempty"`
}

// Resolver reads module content from a file system laid out as
// modulos/{moduleId}/{intro.mp4,contenido.html,actividad.json,recursos.json,evaluacion.json}.
type Resolver struct {
	fsys    fs.FS
	schemas map[Kind]*gojsonschema.Schema
}

// NewResolver creates a resolver over fsys, whose root contains the modulos directory.
func NewResolver(fsys fs.FS) (*Resolver, error) {
	r := &Resolver{fsys: fsys, schemas: make(map[Kind]*gojsonschema.Schema)}
	for kind, src := range map[Kind]string{
		KindActivity:   activitySchema,
		KindResources:  resourcesSchema,
		KindEvaluation: evaluationSchema,
	} {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		r.schemas[kind] = s
	}
	return r, nil
}

// Resolve returns the content for itemID of moduleID.
func (r *Resolver) Resolve(moduleID, itemID string) (Content, error) {
	rule, ok := ruleFor(itemID)
	if !ok {
		return Content{}, fmt.Errorf("%w: item %q", ErrUnknownContent, itemID)
	}
	if err := checkSegment(moduleID); err != nil {
		return Content{}, err
	}

	c := Content{Kind: rule.kind, URL: path.Join(AssetPrefix, moduleID, rule.file)}
	if rule.kind == KindVideo {
		return c, nil
	}

	data, err := r.read(moduleID, rule.file)
	if err != nil {
		return Content{}, err
	}

	switch rule.kind {
	case KindHTML:
		c.HTML = string(data)
	case KindActivity:
		var a Activity
		if err := r.decode(rule.kind, data, &a); err != nil {
			return Content{}, fmt.Errorf("module %s %s: %w", moduleID, rule.file, err)
		}
		c.Activity = &a
	case KindResources:
		if err := r.decode(rule.kind, data, &c.Resources); err != nil {
			return Content{}, fmt.Errorf("module %s %s: %w", moduleID, rule.file, err)
		}
	case KindEvaluation:
		eval, err := r.decodeEvaluation(data)
		if err != nil {
			return Content{}, fmt.Errorf("module %s %s: %w", moduleID, rule.file, err)
		}
		c.Evaluation = &eval
	}
	return c, nil
}

// Evaluation returns the validated quiz definition of moduleID.
func (r *Resolver) Evaluation(moduleID string) (quiz.Evaluation, error) {
	c, err := r.Resolve(moduleID, "evaluacion")
	if err != nil {
		return quiz.Evaluation{}, err
	}
	return *c.Evaluation, nil
}

// OpenAsset opens modulos/{moduleID}/{name} for static serving.
func (r *Resolver) OpenAsset(moduleID, name string) (fs.File, error) {
	if err := checkSegment(moduleID); err != nil {
		return nil, err
	}
	if err := checkSegment(name); err != nil {
		return nil, err
	}
	f, err := r.fsys.Open(path.Join("modulos", moduleID, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, moduleID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	return f, nil
}

func (r *Resolver) read(moduleID, name string) ([]byte, error) {
	p := path.Join("modulos", moduleID, name)
	data, err := fs.ReadFile(r.fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		slog.Error("reading module content failed", "path", p, "error", err)
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

func (r *Resolver) decode(kind Kind, data []byte, v any) error {
	res, err := r.schemas[kind].Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

func (r *Resolver) decodeEvaluation(data []byte) (quiz.Evaluation, error) {
	var eval quiz.Evaluation
	if err := r.decode(KindEvaluation, data, &eval); err != nil {
		return quiz.Evaluation{}, err
	}
	if err := eval.Validate(); err != nil {
		return quiz.Evaluation{}, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	return eval, nil
}

// checkSegment rejects anything that is not a single plain path element.
func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || !fs.ValidPath(s) {
		return fmt.Errorf("%w: invalid path segment %q", ErrNotFound, s)
	}
	return nil
}
