package document

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// RefError describes a $ref that cannot be resolved.
type RefError struct {
	Ref    string
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("error resolving $ref pointer %q: %s", e.Ref, e.Reason)
}

// Lookup evaluates a same-document JSON pointer such as "#/components/schemas/User".
func Lookup(root *Value, ref string) (*Value, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, &RefError{Ref: ref, Reason: "external references are not supported"}
	}
	pointer := ref[1:]
	if pointer == "" {
		return root, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, &RefError{Ref: ref, Reason: "pointer must start with \"/\""}
	}

	cur := root
	for _, raw := range strings.Split(pointer[1:], "/") {
		token, err := url.PathUnescape(raw)
		if err != nil {
			return nil, &RefError{Ref: ref, Reason: fmt.Sprintf("invalid escape in %q", raw)}
		}
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")

		switch cur.Kind() {
		case Map:
			if !cur.Has(token) {
				return nil, &RefError{Ref: ref, Reason: fmt.Sprintf("token %q does not exist", token)}
			}
			cur = cur.Get(token)
		case Seq:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= cur.Len() {
				return nil, &RefError{Ref: ref, Reason: fmt.Sprintf("index %q is out of range", token)}
			}
			cur = cur.Items()[i]
		default:
			return nil, &RefError{Ref: ref, Reason: fmt.Sprintf("token %q does not exist", token)}
		}
	}
	return cur, nil
}

// DefaultNodeLimit caps the number of nodes Resolve may produce.
const DefaultNodeLimit = 1 << 20

// ErrNodeLimit is returned when expanding references would exceed the node limit.
var ErrNodeLimit = errors.New("reference expansion exceeds the node limit")

// Resolve returns a copy of root in which every internal $ref node is
// replaced by a copy of its target. Keys next to a $ref are laid over the
// resolved mapping. A $ref that points back into its own expansion is left in
// place, so recursive schemas stay finite.
func Resolve(root *Value) (*Value, error) {
	return ResolveWithLimit(root, DefaultNodeLimit)
}

// ResolveWithLimit is Resolve with an explicit cap on produced nodes.
func ResolveWithLimit(root *Value, limit int) (*Value, error) {
	r := &resolver{
		root:   root,
		limit:  limit,
		cache:  make(map[string]cachedRef),
		minCut: math.MaxInt,
	}
	return r.resolve(root)
}

type cachedRef struct {
	value *Value
	nodes int
	// refs holds every pointer followed while expanding value
	refs map[string]bool
}

type resolver struct {
	root  *Value
	stack []string
	// frames collects the pointers followed under each stack entry
	frames []map[string]bool
	limit  int
	nodes  int
	cache  map[string]cachedRef
	// minCut is the lowest stack index a cycle was cut at in the current subtree
	minCut int
}

// follows records pointers as used by the innermost expansion
func (r *resolver) follows(refs ...string) {
	if len(r.frames) == 0 {
		return
	}
	top := r.frames[len(r.frames)-1]
	for _, ref := range refs {
		top[ref] = true
	}
}

// reusable reports whether a cached expansion would come out the same under the current stack
func (r *resolver) reusable(hit cachedRef) bool {
	for _, active := range r.stack {
		if hit.refs[active] {
			return false
		}
	}
	return true
}

func (r *resolver) count(n int) error {
	r.nodes += n
	if r.nodes > r.limit {
		return fmt.Errorf("%w (%d)", ErrNodeLimit, r.limit)
	}
	return nil
}

func (r *resolver) resolve(v *Value) (*Value, error) {
	switch v.Kind() {
	case Map:
		if v.Has("$ref") {
			return r.resolveRef(v)
		}
		if err := r.count(1); err != nil {
			return nil, err
		}
		out := NewMap()
		for _, m := range v.Members() {
			rv, err := r.resolve(m.Value)
			if err != nil {
				return nil, err
			}
			out.Set(m.Key, rv)
		}
		return out, nil
	case Seq:
		if err := r.count(1); err != nil {
			return nil, err
		}
		out := NewSeq()
		for _, item := range v.Items() {
			rv, err := r.resolve(item)
			if err != nil {
				return nil, err
			}
			out.Append(rv)
		}
		return out, nil
	default:
		if err := r.count(1); err != nil {
			return nil, err
		}
		return v.Clone(), nil
	}
}

// target expands the value a pointer refers to. Expansions that did not cut a
// cycle at an outer reference do not depend on where they appear and are cached.
func (r *resolver) target(ref string) (*Value, error) {
	r.follows(ref)
	for i, active := range r.stack {
		if active == ref {
			r.minCut = min(r.minCut, i)
			return nil, nil
		}
	}

	if hit, ok := r.cache[ref]; ok && r.reusable(hit) {
		if err := r.count(hit.nodes); err != nil {
			return nil, err
		}
		for followed := range hit.refs {
			r.follows(followed)
		}
		return hit.value.Clone(), nil
	}

	target, err := Lookup(r.root, ref)
	if err != nil {
		return nil, err
	}

	depth := len(r.stack)
	outerCut, before := r.minCut, r.nodes
	r.minCut = math.MaxInt
	r.stack = append(r.stack, ref)
	r.frames = append(r.frames, map[string]bool{ref: true})
	resolved, err := r.resolve(target)
	refs := r.frames[depth]
	r.stack = r.stack[:depth]
	r.frames = r.frames[:depth]
	innerCut := r.minCut
	r.minCut = min(outerCut, innerCut)
	if err != nil {
		return nil, err
	}

	for followed := range refs {
		r.follows(followed)
	}
	if innerCut >= depth {
		r.cache[ref] = cachedRef{value: resolved.Clone(), nodes: r.nodes - before, refs: refs}
	}
	return resolved, nil
}

func (r *resolver) resolveRef(node *Value) (*Value, error) {
	ref, ok := node.Get("$ref").Str()
	if !ok {
		return nil, &RefError{Reason: "$ref must be a string, got " + node.Get("$ref").Kind().String()}
	}

	resolved, err := r.target(ref)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		if err := r.count(node.Len() + 1); err != nil {
			return nil, err
		}
		return node.Clone(), nil
	}

	if node.Len() > 1 && resolved.Kind() == Map {
		for _, m := range node.Members() {
			if m.Key == "$ref" {
				continue
			}
			sibling, err := r.resolve(m.Value)
			if err != nil {
				return nil, err
			}
			resolved.Set(m.Key, sibling)
		}
	}
	return resolved, nil
}
