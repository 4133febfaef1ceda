package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grafana/pincers/core"
)

// TracedBackend wraps a core.Backend so that every call is recorded as a
// span named "pincers.<Operation>". Failed calls mark their span as errored.
type TracedBackend struct {
	next   core.Backend
	ctx    context.Context
	tracer trace.Tracer
}

// NewTracedBackend returns next wrapped with spans from tracer. Spans are
// children of the span in ctx, if any.
func NewTracedBackend(ctx context.Context, next core.Backend, tracer trace.Tracer) *TracedBackend {
	return &TracedBackend{next: next, ctx: ctx, tracer: tracer}
}

// Unwrap returns the wrapped backend.
func (t *TracedBackend) Unwrap() core.Backend {
	return t.next
}

func (t *TracedBackend) start(op string, attrs ...attribute.KeyValue) trace.Span {
	_, span := t.tracer.Start(t.ctx, "pincers."+op, trace.WithAttributes(attrs...))
	return span
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *TracedBackend) DocumentRoot() ([]core.ElementHandle, error) {
	span := t.start("DocumentRoot")
	els, err := t.next.DocumentRoot()
	end(span, err)
	return els, err
}

func (t *TracedBackend) DocumentURL() (string, error) {
	span := t.start("DocumentURL")
	u, err := t.next.DocumentURL()
	end(span, err)
	return u, err
}

func (t *TracedBackend) DocumentTitle() (string, error) {
	span := t.start("DocumentTitle")
	title, err := t.next.DocumentTitle()
	end(span, err)
	return title, err
}

func (t *TracedBackend) FetchCookies() ([]core.Cookie, error) {
	span := t.start("FetchCookies")
	cookies, err := t.next.FetchCookies()
	span.SetAttributes(attribute.Int("pincers.cookies", len(cookies)))
	end(span, err)
	return cookies, err
}

func (t *TracedBackend) NavigateTo(url string) error {
	span := t.start("NavigateTo", attribute.String("url.full", url))
	err := t.next.NavigateTo(url)
	end(span, err)
	return err
}

func (t *TracedBackend) NavigateForward(steps int) error {
	span := t.start("NavigateForward", attribute.Int("pincers.steps", steps))
	err := t.next.NavigateForward(steps)
	end(span, err)
	return err
}

func (t *TracedBackend) NavigateBack(steps int) error {
	span := t.start("NavigateBack", attribute.Int("pincers.steps", steps))
	err := t.next.NavigateBack(steps)
	end(span, err)
	return err
}

func (t *TracedBackend) RefreshDocument() error {
	span := t.start("RefreshDocument")
	err := t.next.RefreshDocument()
	end(span, err)
	return err
}

func (t *TracedBackend) search(
	op, selector string, el core.ElementHandle,
	fn func(core.ElementHandle, string) ([]core.ElementHandle, error),
) ([]core.ElementHandle, error) {
	span := t.start(op, attribute.String("pincers.selector", selector))
	els, err := fn(el, selector)
	span.SetAttributes(attribute.Int("pincers.matches", len(els)))
	end(span, err)
	return els, err
}

func (t *TracedBackend) SearchByCSS(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	return t.search("SearchByCSS", selector, el, t.next.SearchByCSS)
}

func (t *TracedBackend) SearchByXPath(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	return t.search("SearchByXPath", selector, el, t.next.SearchByXPath)
}

func (t *TracedBackend) ExtractElementTag(el core.ElementHandle) (string, error) {
	span := t.start("ExtractElementTag")
	v, err := t.next.ExtractElementTag(el)
	end(span, err)
	return v, err
}

func (t *TracedBackend) ExtractElementText(el core.ElementHandle) (string, error) {
	span := t.start("ExtractElementText")
	v, err := t.next.ExtractElementText(el)
	end(span, err)
	return v, err
}

func (t *TracedBackend) ExtractElementHTML(el core.ElementHandle) (string, error) {
	span := t.start("ExtractElementHTML")
	v, err := t.next.ExtractElementHTML(el)
	end(span, err)
	return v, err
}

func (t *TracedBackend) ExtractElementAttribute(el core.ElementHandle, name string) (string, bool, error) {
	span := t.start("ExtractElementAttribute", attribute.String("pincers.attribute", name))
	v, ok, err := t.next.ExtractElementAttribute(el, name)
	end(span, err)
	return v, ok, err
}

func (t *TracedBackend) SetElementText(el core.ElementHandle, value string) error {
	span := t.start("SetElementText")
	err := t.next.SetElementText(el, value)
	end(span, err)
	return err
}

func (t *TracedBackend) ClickOnElement(el core.ElementHandle) error {
	span := t.start("ClickOnElement")
	err := t.next.ClickOnElement(el)
	end(span, err)
	return err
}

func (t *TracedBackend) SwitchToFrame(el core.ElementHandle) error {
	span := t.start("SwitchToFrame")
	err := t.next.SwitchToFrame(el)
	end(span, err)
	return err
}

func (t *TracedBackend) SwitchToTopFrame() error {
	span := t.start("SwitchToTopFrame")
	err := t.next.SwitchToTopFrame()
	end(span, err)
	return err
}

func (t *TracedBackend) SwitchToParentFrame() error {
	span := t.start("SwitchToParentFrame")
	err := t.next.SwitchToParentFrame()
	end(span, err)
	return err
}

func (t *TracedBackend) check(
	op string, els []core.ElementHandle, fn func([]core.ElementHandle) (bool, error),
) (bool, error) {
	span := t.start(op, attribute.Int("pincers.elements", len(els)))
	ok, err := fn(els)
	span.SetAttributes(attribute.Bool("pincers.result", ok))
	end(span, err)
	return ok, err
}

func (t *TracedBackend) CheckPresent(els []core.ElementHandle) (bool, error) {
	return t.check("CheckPresent", els, t.next.CheckPresent)
}

func (t *TracedBackend) CheckNotPresent(els []core.ElementHandle) (bool, error) {
	return t.check("CheckNotPresent", els, t.next.CheckNotPresent)
}

func (t *TracedBackend) CheckVisible(els []core.ElementHandle) (bool, error) {
	return t.check("CheckVisible", els, t.next.CheckVisible)
}

func (t *TracedBackend) CheckNotVisible(els []core.ElementHandle) (bool, error) {
	return t.check("CheckNotVisible", els, t.next.CheckNotVisible)
}

func (t *TracedBackend) CheckEnabled(els []core.ElementHandle) (bool, error) {
	return t.check("CheckEnabled", els, t.next.CheckEnabled)
}

var _ core.Backend = &TracedBackend{}
