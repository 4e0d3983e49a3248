package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http1"
	"github.com/marmos91/dittohttp/pkg/content"
)

// TimePlaceholder is replaced with the current time by TemplateHandler.
const TimePlaceholder = "{time}"

// DefaultTimeLayout formats the substituted time.
const DefaultTimeLayout = "2006-01-02T15:04:05.000"

// TemplateHandler serves a page from the content store with every
// TimePlaceholder replaced by the current local time.
type TemplateHandler struct {
	store  content.ContentStore
	id     content.ContentID
	path   string
	layout string
	now    func() time.Time
}

// NewTemplateHandler creates a handler rendering the page stored under the
// ID derived from path.
func NewTemplateHandler(store content.ContentStore, path string) (*TemplateHandler, error) {
	if store == nil {
		return nil, errors.New("content store cannot be nil")
	}
	id, err := content.IDFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return &TemplateHandler{
		store:  store,
		id:     id,
		path:   path,
		layout: DefaultTimeLayout,
		now:    time.Now,
	}, nil
}

// Path returns the request path the template is served on.
func (t *TemplateHandler) Path() string {
	return t.path
}

// WithClock replaces the time source. Used by tests.
func (t *TemplateHandler) WithClock(now func() time.Time) *TemplateHandler {
	t.now = now
	return t
}

// Handle implements registry.Handler.
func (t *TemplateHandler) Handle(ctx context.Context, req *http1.Request, w *http1.ResponseWriter) error {
	if req == nil {
		return w.WriteEmpty(http1.StatusBadRequest)
	}

	rc, err := t.store.ReadContent(ctx, t.id)
	if errors.Is(err, content.ErrContentNotFound) {
		logger.Debug("Template %s not in store", t.id)
		return w.WriteEmpty(http1.StatusNotFound)
	}
	if err != nil {
		return fmt.Errorf("open template %s: %w", t.id, err)
	}
	defer func() { _ = rc.Close() }()

	page, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read template %s: %w", t.id, err)
	}

	stamp := t.now().Local().Format(t.layout)
	page = bytes.ReplaceAll(page, []byte(TimePlaceholder), []byte(stamp))

	return w.WriteResponse(http1.StatusOK, ContentType(t.path, page), page)
}
