package mesh

import "slices"

// Request is a batch of mesh changes for one attachment. Removals are
// applied before additions, so a key in both lists ends up in the set.
type Request struct {
	Add    []Key
	Remove []Key
}

// Empty reports whether the request changes nothing.
func (r Request) Empty() bool { return len(r.Add) == 0 && len(r.Remove) == 0 }

// pendingRequest accumulates requests that arrive while a pass is in
// flight.
type pendingRequest struct {
	add    []Key
	remove map[Key]struct{}
}

// merge folds r into p. A removal cancels a pending addition of the same
// key; an addition cancels a pending removal.
func (p *pendingRequest) merge(r Request) {
	for _, k := range r.Remove {
		p.add = slices.DeleteFunc(p.add, func(x Key) bool { return x == k })
		if p.remove == nil {
			p.remove = make(map[Key]struct{})
		}
		p.remove[k] = struct{}{}
	}
	for _, k := range r.Add {
		delete(p.remove, k)
		if !slices.Contains(p.add, k) {
			p.add = append(p.add, k)
		}
	}
}

func (p *pendingRequest) empty() bool { return len(p.add) == 0 && len(p.remove) == 0 }

// take returns the accumulated request and resets p.
func (p *pendingRequest) take() Request {
	r := Request{Add: p.add}
	for k := range p.remove {
		r.Remove = append(r.Remove, k)
	}
	slices.Sort(r.Remove)
	p.add, p.remove = nil, nil
	return r
}

// apply returns keys with r applied, keeping the order of surviving keys
// and appending new ones.
func (r Request) apply(keys []Key) []Key {
	out := slices.DeleteFunc(slices.Clone(keys), func(k Key) bool { return slices.Contains(r.Remove, k) })
	for _, k := range r.Add {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
