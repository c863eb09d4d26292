package mockinstance

import (
	"encoding/json"
	"regexp"
	"strings"
)

// TemplateContext is the data a Template response is rendered over.
type TemplateContext struct {
	PathVariables map[string]string
	Headers       map[string]string
	Body          any // parsed JSON if the request body was valid JSON, else nil
	Cookies       map[string]string
}

var templateExprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// RenderTemplate evaluates every "${expression}" occurrence in tpl against
// ctx and returns the substituted text. Stateless and side-effect free, per
// the render(tpl, ctx) -> string boundary contract. Unknown expressions
// resolve to an empty string rather than erroring, so a single bad
// reference degrades gracefully instead of failing the whole response.
func RenderTemplate(tpl string, ctx TemplateContext) string {
	return templateExprPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])
		return resolveExpr(expr, ctx)
	})
}

func resolveExpr(expr string, ctx TemplateContext) string {
	root, rest, hasRest := strings.Cut(expr, ".")

	switch root {
	case "pathVariables":
		if !hasRest {
			return ""
		}
		return ctx.PathVariables[rest]
	case "headers":
		if !hasRest {
			return ""
		}
		return ctx.Headers[rest]
	case "cookies":
		if !hasRest {
			return ""
		}
		return ctx.Cookies[rest]
	case "body":
		if !hasRest {
			return stringify(ctx.Body)
		}
		return resolveBodyPath(ctx.Body, strings.Split(rest, "."))
	default:
		return ""
	}
}

func resolveBodyPath(body any, path []string) string {
	cur := body
	for _, segment := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[segment]
		if !ok {
			return ""
		}
	}
	return stringify(cur)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
