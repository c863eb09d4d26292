package mockinstance

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Match tests an incoming request against an ordered list of expectations
// and returns the first one that fully satisfies its match conditions,
// along with the path variables it captured. Unlike a best-score matcher,
// ties are broken by insertion order: the first full match wins.
func Match(expectations []Expectation, r *http.Request, body []byte) (*Expectation, map[string]string, bool) {
	for i := range expectations {
		e := &expectations[i]
		if vars, ok := matchOne(e.Match, r, body); ok {
			return e, vars, true
		}
	}
	return nil, nil, false
}

func matchOne(m Match, r *http.Request, body []byte) (map[string]string, bool) {
	if m.Method != "" && !strings.EqualFold(m.Method, r.Method) {
		return nil, false
	}

	vars, ok := matchPath(m.Path, r.URL.Path)
	if !ok {
		return nil, false
	}

	if !matchQuery(m.Query, r.URL.Query()) {
		return nil, false
	}

	if !matchHeaders(m.Headers, r.Header) {
		return nil, false
	}

	if m.Body != nil && !matchBody(*m.Body, body) {
		return nil, false
	}

	return vars, true
}

// matchPath splits both pattern and path into segments on "/", trailing
// slashes normalized away. Segments must be equal in count; a "{name}"
// pattern segment binds to the request's segment at that position, other
// segments must be literal-equal.
func matchPath(pattern, path string) (map[string]string, bool) {
	if pattern == "" {
		return map[string]string{}, true
	}

	patSegs := splitPath(pattern)
	pathSegs := splitPath(path)
	if len(patSegs) != len(pathSegs) {
		return nil, false
	}

	vars := make(map[string]string)
	for i, seg := range patSegs {
		if len(seg) >= 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := seg[1 : len(seg)-1]
			vars[name] = pathSegs[i]
			continue
		}
		if seg != pathSegs[i] {
			return nil, false
		}
	}
	return vars, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

func matchQuery(required map[string]string, actual map[string][]string) bool {
	for name, want := range required {
		values, ok := actual[name]
		if !ok || !containsValue(values, want) {
			return false
		}
	}
	return true
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func matchHeaders(required map[string]string, actual http.Header) bool {
	for name, want := range required {
		if actual.Get(name) != want {
			return false
		}
	}
	return true
}

func matchBody(pred BodyPredicate, body []byte) bool {
	switch pred.Mode {
	case BodyEquals:
		return string(body) == pred.Value
	case BodyContains:
		return strings.Contains(string(body), pred.Value)
	case BodyJSONSubset:
		var actual map[string]any
		if err := json.Unmarshal(body, &actual); err != nil {
			return false
		}
		return jsonSubset(pred.JSON, actual)
	default:
		return true
	}
}

// jsonSubset reports whether every key/value in want also appears in got,
// recursing into nested objects. Arrays and scalars are compared for
// equality by their JSON encodings.
func jsonSubset(want, got map[string]any) bool {
	for k, wv := range want {
		gv, ok := got[k]
		if !ok {
			return false
		}
		wantMap, wantIsMap := wv.(map[string]any)
		gotMap, gotIsMap := gv.(map[string]any)
		if wantIsMap && gotIsMap {
			if !jsonSubset(wantMap, gotMap) {
				return false
			}
			continue
		}
		if wantIsMap != gotIsMap {
			return false
		}
		if !jsonEqual(wv, gv) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}
