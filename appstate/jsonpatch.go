package appstate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/arcanrun/arcane/orcherr"
)

// jsonPatchOp is one RFC 6902 operation.
type jsonPatchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (s *AppState) applyJSONPatch(raw json.RawMessage) error {
	var ops []jsonPatchOp
	if err := json.Unmarshal(raw, &ops); err != nil {
		return orcherr.Wrap(orcherr.CodeState, "invalid json patch", err)
	}

	next := deepCopyMap(s.Data)
	var root any = next
	for _, op := range ops {
		var err error
		root, err = applyOp(root, op)
		if err != nil {
			return orcherr.Wrap(orcherr.CodeState, fmt.Sprintf("apply op %q at %q", op.Op, op.Path), err)
		}
	}
	m, ok := root.(map[string]any)
	if !ok {
		return orcherr.New(orcherr.CodeState, "json patch result is not an object")
	}
	s.Data = m
	s.bumpRevision()
	return nil
}

func applyOp(root any, op jsonPatchOp) (any, error) {
	tokens := splitPointer(op.Path)
	switch op.Op {
	case "add":
		var v any
		if err := json.Unmarshal(op.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return setAt(root, tokens, v, true)
	case "replace":
		var v any
		if err := json.Unmarshal(op.Value, &v); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return setAt(root, tokens, v, false)
	case "remove":
		return removeAt(root, tokens)
	case "copy":
		v, err := getAt(root, splitPointer(op.From))
		if err != nil {
			return nil, err
		}
		return setAt(root, tokens, v, true)
	case "move":
		v, err := getAt(root, splitPointer(op.From))
		if err != nil {
			return nil, err
		}
		root, err = removeAt(root, splitPointer(op.From))
		if err != nil {
			return nil, err
		}
		return setAt(root, tokens, v, true)
	case "test":
		var want any
		if err := json.Unmarshal(op.Value, &want); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		got, err := getAt(root, tokens)
		if err != nil {
			return nil, err
		}
		if !deepEqual(got, want) {
			return nil, fmt.Errorf("test failed at %q", op.Path)
		}
		return root, nil
	default:
		return nil, fmt.Errorf("unsupported op %q", op.Op)
	}
}

func splitPointer(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	raw := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		t = strings.ReplaceAll(t, "~1", "/")
		t = strings.ReplaceAll(t, "~0", "~")
		tokens[i] = t
	}
	return tokens
}

func getAt(root any, tokens []string) (any, error) {
	cur := root
	for _, tok := range tokens {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[tok]
			if !ok {
				return nil, fmt.Errorf("path not found: %q", tok)
			}
			cur = v
		case []any:
			idx, err := arrayIndex(tok, len(c))
			if err != nil {
				return nil, err
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("cannot descend into scalar at %q", tok)
		}
	}
	return cur, nil
}

func setAt(root any, tokens []string, value any, insert bool) (any, error) {
	if len(tokens) == 0 {
		return value, nil
	}
	return setAtRec(root, tokens, value, insert)
}

func setAtRec(node any, tokens []string, value any, insert bool) (any, error) {
	tok := tokens[0]
	rest := tokens[1:]

	switch c := node.(type) {
	case map[string]any:
		if len(rest) == 0 {
			if !insert {
				if _, ok := c[tok]; !ok {
					return nil, fmt.Errorf("path not found: %q", tok)
				}
			}
			c[tok] = value
			return c, nil
		}
		child, ok := c[tok]
		if !ok {
			child = map[string]any{}
		}
		updated, err := setAtRec(child, rest, value, insert)
		if err != nil {
			return nil, err
		}
		c[tok] = updated
		return c, nil
	case []any:
		if tok == "-" {
			if len(rest) != 0 {
				return nil, fmt.Errorf("cannot descend past array append token")
			}
			return append(c, value), nil
		}
		idx, err := arrayIndex(tok, len(c)+1)
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			if insert {
				if idx > len(c) {
					return nil, fmt.Errorf("index out of range: %d", idx)
				}
				out := make([]any, 0, len(c)+1)
				out = append(out, c[:idx]...)
				out = append(out, value)
				out = append(out, c[idx:]...)
				return out, nil
			}
			if idx >= len(c) {
				return nil, fmt.Errorf("index out of range: %d", idx)
			}
			c[idx] = value
			return c, nil
		}
		if idx >= len(c) {
			return nil, fmt.Errorf("index out of range: %d", idx)
		}
		updated, err := setAtRec(c[idx], rest, value, insert)
		if err != nil {
			return nil, err
		}
		c[idx] = updated
		return c, nil
	default:
		return nil, fmt.Errorf("cannot descend into scalar at %q", tok)
	}
}

func removeAt(root any, tokens []string) (any, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("cannot remove root")
	}
	return removeAtRec(root, tokens)
}

func removeAtRec(node any, tokens []string) (any, error) {
	tok := tokens[0]
	rest := tokens[1:]

	switch c := node.(type) {
	case map[string]any:
		if len(rest) == 0 {
			if _, ok := c[tok]; !ok {
				return nil, fmt.Errorf("path not found: %q", tok)
			}
			delete(c, tok)
			return c, nil
		}
		child, ok := c[tok]
		if !ok {
			return nil, fmt.Errorf("path not found: %q", tok)
		}
		updated, err := removeAtRec(child, rest)
		if err != nil {
			return nil, err
		}
		c[tok] = updated
		return c, nil
	case []any:
		idx, err := arrayIndex(tok, len(c))
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			out := make([]any, 0, len(c)-1)
			out = append(out, c[:idx]...)
			out = append(out, c[idx+1:]...)
			return out, nil
		}
		updated, err := removeAtRec(c[idx], rest)
		if err != nil {
			return nil, err
		}
		c[idx] = updated
		return c, nil
	default:
		return nil, fmt.Errorf("cannot descend into scalar at %q", tok)
	}
}

func arrayIndex(tok string, length int) (int, error) {
	idx, err := strconv.Atoi(tok)
	if err != nil || idx < 0 || idx >= length {
		return 0, fmt.Errorf("invalid array index: %q", tok)
	}
	return idx, nil
}

func deepEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
