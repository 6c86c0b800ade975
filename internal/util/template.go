package util

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
)

var (
	templateFuncs = template.FuncMap{
		"default": func(fallback, v any) any {
			if v == nil || v == "" {
				return fallback
			}
			return v
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": Capitalize,
		"join": func(sep string, items []any) string {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				parts = append(parts, fmt.Sprint(it))
			}
			return strings.Join(parts, sep)
		},
	}

	// parsed templates keyed by source text; instructions render every turn.
	templates sync.Map
)

type parsedTemplate struct {
	tmpl *template.Template
	// keys are the top-level state keys the template reads.
	keys []string
}

// RenderTemplate executes text as a text/template over state. Missing keys
// render as the empty string and text without "{{" is returned as is.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	pt, err := parseTemplate(text)
	if err != nil {
		return "", err
	}

	data := make(map[string]any, len(state)+len(pt.keys))
	for _, k := range pt.keys {
		data[k] = ""
	}
	for k, v := range state {
		data[k] = v
	}

	var sb strings.Builder
	if err := pt.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func parseTemplate(text string) (*parsedTemplate, error) {
	if pt, ok := templates.Load(text); ok {
		return pt.(*parsedTemplate), nil
	}

	t, err := template.New("instruction").Option("missingkey=zero").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, err
	}

	keys := map[string]struct{}{}
	collectKeys(t.Root, keys)

	pt := &parsedTemplate{tmpl: t, keys: make([]string, 0, len(keys))}
	for k := range keys {
		pt.keys = append(pt.keys, k)
	}

	actual, _ := templates.LoadOrStore(text, pt)

	return actual.(*parsedTemplate), nil
}

// collectKeys records single-segment field references such as {{ .unit }}.
func collectKeys(node parse.Node, keys map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectKeys(c, keys)
		}
	case *parse.ActionNode:
		collectKeys(n.Pipe, keys)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			collectKeys(c, keys)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			collectKeys(a, keys)
		}
	case *parse.ChainNode:
		collectKeys(n.Node, keys)
	case *parse.FieldNode:
		if len(n.Ident) == 1 {
			keys[n.Ident[0]] = struct{}{}
		}
	case *parse.IfNode:
		collectBranch(&n.BranchNode, keys)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, keys)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, keys)
	case *parse.TemplateNode:
		collectKeys(n.Pipe, keys)
	}
}

func collectBranch(b *parse.BranchNode, keys map[string]struct{}) {
	collectKeys(b.Pipe, keys)
	collectKeys(b.List, keys)
	collectKeys(b.ElseList, keys)
}

// Capitalize upper-cases the first rune of s and lower-cases the rest
// ("new YORK" becomes "New york").
func Capitalize(s string) string {
	for i := range s {
		if i > 0 {
			return strings.ToUpper(s[:i]) + strings.ToLower(s[i:])
		}
	}

	return strings.ToUpper(s)
}
