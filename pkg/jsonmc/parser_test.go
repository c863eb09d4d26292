package jsonmc

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{
			name:  "no variables",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "defined no default",
			input: `@{HOST}`,
			env:   map[string]string{"HOST": "example.com"},
			want:  "example.com",
		},
		{
			name:    "undefined no default is an error",
			input:   `@{HOST}`,
			wantErr: true,
		},
		{
			name:  "default used when unset",
			input: `@{PORT:-9000}`,
			want:  "9000",
		},
		{
			name:  "default ignored when set and non-empty",
			input: `@{PORT:-9000}`,
			env:   map[string]string{"PORT": "8080"},
			want:  "8080",
		},
		{
			name:  "default used when set but empty",
			input: `@{PORT:-9000}`,
			env:   map[string]string{"PORT": ""},
			want:  "9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := ExpandEnv(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteComments(t *testing.T) {
	input := `{ // name
  "name": "x",
  /* port */
  "port": 9000 }`
	got, err := Rewrite(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v any
	if err := unmarshalJSON(got, &v); err != nil {
		t.Fatalf("rewritten text is not valid JSON: %v\n%s", err, got)
	}
	m := v.(map[string]any)
	if m["name"] != "x" || m["port"].(float64) != 9000 {
		t.Fatalf("unexpected parsed value: %#v", m)
	}
}

func TestRewriteMultilineString(t *testing.T) {
	input := "{ \"body\": `line1\nline2 \"q\"` }"
	got, err := Rewrite(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v any
	if err := unmarshalJSON(got, &v); err != nil {
		t.Fatalf("rewritten text is not valid JSON: %v\n%s", err, got)
	}
	m := v.(map[string]any)
	if m["body"] != "line1\nline2 \"q\"" {
		t.Fatalf("unexpected body: %q", m["body"])
	}
}

func TestRewriteUnterminatedMultilineString(t *testing.T) {
	_, err := Rewrite("{ \"body\": `line1")
	if err == nil {
		t.Fatal("expected an unterminated-backtick error")
	}
}

func TestRewriteUnterminatedBlockComment(t *testing.T) {
	_, err := Rewrite("{ /* oops \"a\": 1 }")
	if err == nil {
		t.Fatal("expected an unterminated-comment error")
	}
}

func TestParseEndToEndScenario(t *testing.T) {
	input := `{ // name
  "name": "x",
  /* port */
  "port": @{PORT:-9000},
  "body": ` + "`line1\nline2 \"q\"`" + ` }`

	got, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"name": "x",
		"port": float64(9000),
		"body": "line1\nline2 \"q\"",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestParsePureJSONRoundTrip(t *testing.T) {
	input := `{"a":1,"b":[true,false,null],"c":"plain"}`
	got, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var want any
	if err := json.Unmarshal([]byte(input), &want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round-trip mismatch: %#v vs %#v", got, want)
	}
}

func unmarshalJSON(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
