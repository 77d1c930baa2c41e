package object

import (
	"errors"
	"fmt"
	"sort"

	"github.com/odvcencio/snap/pkg/fault"
)

// Ref is a typed pointer to an object, as held by HEAD, a commit, a tree
// manifest or an index entry. Objects carry no type of their own, so the
// kind comes from whoever points at them.
type Ref struct {
	Kind Kind
	Hash Hash
}

func (r Ref) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Hash)
}

// Reachability is the result of walking the object graph.
type Reachability struct {
	Reachable map[Hash]Kind
	Missing   []Ref // referenced but not in the store
	Broken    []Ref // present but unreadable as their kind
}

// Reachable returns every object reachable from roots by following commit
// parents, commit trees and tree entries. Missing and unparsable objects
// are recorded instead of stopping the walk; only filesystem failures are
// returned as errors.
func (s *Store) Reachable(roots []Ref) (*Reachability, error) {
	out := &Reachability{Reachable: make(map[Hash]Kind)}

	stack := make([]Ref, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		if roots[i].Hash != "" {
			stack = append(stack, roots[i])
		}
	}
	missing := make(map[Hash]struct{})

	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := out.Reachable[ref.Hash]; seen {
			continue
		}
		if _, seen := missing[ref.Hash]; seen {
			continue
		}

		children, err := s.references(ref)
		switch {
		case errors.Is(err, fault.ErrNotFound):
			missing[ref.Hash] = struct{}{}
			out.Missing = append(out.Missing, ref)
			continue
		case errors.Is(err, fault.ErrIO):
			return nil, fmt.Errorf("reachable %s: %w", ref, err)
		case err != nil:
			out.Reachable[ref.Hash] = ref.Kind
			out.Broken = append(out.Broken, ref)
			continue
		}
		out.Reachable[ref.Hash] = ref.Kind
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	sortRefs(out.Missing)
	sortRefs(out.Broken)
	return out, nil
}

// references returns the objects ref points at.
func (s *Store) references(ref Ref) ([]Ref, error) {
	switch ref.Kind {
	case KindBlob:
		if !s.Has(ref.Hash) {
			return nil, fault.NotFound("object %s", ref.Hash)
		}
		return nil, nil
	case KindTree:
		tr, err := s.GetTree(ref.Hash)
		if err != nil {
			return nil, err
		}
		refs := make([]Ref, 0, len(tr.Entries))
		for _, e := range tr.Entries {
			refs = append(refs, Ref{Kind: e.Kind, Hash: e.Hash})
		}
		return refs, nil
	case KindCommit:
		c, err := s.GetCommit(ref.Hash)
		if err != nil {
			return nil, err
		}
		refs := []Ref{{Kind: KindTree, Hash: c.TreeHash}}
		if c.Parent != "" {
			refs = append(refs, Ref{Kind: KindCommit, Hash: c.Parent})
		}
		return refs, nil
	default:
		return nil, fault.InvalidInput("unsupported object kind %q", ref.Kind)
	}
}

func sortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Hash != refs[j].Hash {
			return refs[i].Hash < refs[j].Hash
		}
		return refs[i].Kind < refs[j].Kind
	})
}
