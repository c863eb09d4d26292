package mockinstance

import "testing"

func TestRenderTemplatePathVariable(t *testing.T) {
	ctx := TemplateContext{PathVariables: map[string]string{"id": "42"}}
	got := RenderTemplate(`{"userId":"${pathVariables.id}"}`, ctx)
	want := `{"userId":"42"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderTemplateBodyPath(t *testing.T) {
	ctx := TemplateContext{Body: map[string]any{"user": map[string]any{"name": "ada"}}}
	got := RenderTemplate("hello ${body.user.name}", ctx)
	if got != "hello ada" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderTemplateHeadersAndCookies(t *testing.T) {
	ctx := TemplateContext{
		Headers: map[string]string{"X-Trace-Id": "abc"},
		Cookies: map[string]string{"session": "xyz"},
	}
	got := RenderTemplate("${headers.X-Trace-Id}/${cookies.session}", ctx)
	if got != "abc/xyz" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderTemplateUnknownExpressionIsEmpty(t *testing.T) {
	got := RenderTemplate("[${pathVariables.missing}]", TemplateContext{PathVariables: map[string]string{}})
	if got != "[]" {
		t.Fatalf("got %q", got)
	}
}
