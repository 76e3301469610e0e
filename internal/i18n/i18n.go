package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// Catalog holds the translation bundle and the default language.
type Catalog struct {
	bundle   *i18n.Bundle
	fallback *i18n.Localizer
	lang     string
	log      *slog.Logger
}

// New loads the embedded translations with lang as the default language.
func New(lang string, log *slog.Logger) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load all locale files from embedded FS.
	var loaded []language.Tag
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		mf, err := bundle.ParseMessageFileBytes(data, e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		loaded = append(loaded, mf.Tag)
		log.Debug("loaded locale file", "file", e.Name())
	}

	if !supported(loaded, tag) {
		return nil, fmt.Errorf("no translations for language %q", lang)
	}

	return &Catalog{
		bundle:   bundle,
		fallback: i18n.NewLocalizer(bundle, lang),
		lang:     lang,
		log:      log,
	}, nil
}

func supported(loaded []language.Tag, tag language.Tag) bool {
	base, _ := tag.Base()
	for _, t := range loaded {
		if b, _ := t.Base(); b == base {
			return true
		}
	}
	return false
}

// Lang returns the default language.
func (c *Catalog) Lang() string {
	return c.lang
}

// Localizer returns a localizer preferring the given Accept-Language
// values and falling back to the default language.
func (c *Catalog) Localizer(accept ...string) *i18n.Localizer {
	return i18n.NewLocalizer(c.bundle, append(accept, c.lang)...)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func (c *Catalog) localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return c.fallback
}

// T translates a message by ID. Unknown IDs are returned unchanged.
func (c *Catalog) T(ctx context.Context, msgID string) string {
	s, err := c.localizerFromCtx(ctx).Localize(&i18n.LocalizeConfig{MessageID: msgID})
	if err != nil {
		c.log.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Td translates a message by ID with template data.
func (c *Catalog) Td(ctx context.Context, msgID string, data map[string]any) string {
	s, err := c.localizerFromCtx(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		c.log.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}
