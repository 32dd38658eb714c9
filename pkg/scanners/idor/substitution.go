// pkg/scanners/idor/substitution.go
package idor

// SubstituteParams returns a copy of doc in which every object key listed in
// replacements, at any depth, holds the replacement string. Arrays are
// walked element by element. Containers nested deeper than
// MaxIdentityDepth are copied unchanged. doc itself is never modified.
func SubstituteParams(doc any, replacements map[string]string) any {
	type task struct {
		src   any
		set   func(any)
		depth int
	}

	var root any
	stack := []task{{src: doc, set: func(v any) { root = v }, depth: 0}}

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := t.src.(type) {
		case map[string]any:
			if t.depth > MaxIdentityDepth {
				t.set(node)
				continue
			}
			out := make(map[string]any, len(node))
			t.set(out)
			for key, val := range node {
				if replacement, ok := replacements[key]; ok {
					out[key] = replacement
					continue
				}
				key := key
				stack = append(stack, task{src: val, set: func(v any) { out[key] = v }, depth: t.depth + 1})
			}
		case []any:
			if t.depth > MaxIdentityDepth {
				t.set(node)
				continue
			}
			out := make([]any, len(node))
			t.set(out)
			for i, val := range node {
				i := i
				stack = append(stack, task{src: val, set: func(v any) { out[i] = v }, depth: t.depth + 1})
			}
		default:
			t.set(node)
		}
	}

	return root
}
