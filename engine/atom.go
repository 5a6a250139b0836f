package engine

// Atom is an interned property key. Atom 0 is invalid.
type Atom uint32

type atomEntry struct {
	str  string
	refs int32
}

// internAtom interns a key string, incrementing its reference count.
func (e *Engine) internAtom(s string) Atom {
	if a, ok := e.atoms[s]; ok {
		e.atomCells[a-1].refs++
		return a
	}

	entry := atomEntry{str: s, refs: 1}
	if len(e.freeAtoms) > 0 {
		a := e.freeAtoms[len(e.freeAtoms)-1]
		e.freeAtoms = e.freeAtoms[:len(e.freeAtoms)-1]
		e.atomCells[a-1] = entry
		e.atoms[s] = a
		return a
	}

	e.atomCells = append(e.atomCells, entry)
	a := Atom(len(e.atomCells))
	e.atoms[s] = a
	return a
}

// FreeAtom releases one reference to an interned key.
func (e *Engine) FreeAtom(a Atom) {
	if a == 0 || int(a) > len(e.atomCells) {
		return
	}
	entry := &e.atomCells[a-1]
	if entry.refs == 0 {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(e.atoms, entry.str)
		entry.str = ""
		e.freeAtoms = append(e.freeAtoms, a)
	}
}

// atomString returns the interned string for a live atom.
func (e *Engine) atomString(a Atom) (string, bool) {
	if a == 0 || int(a) > len(e.atomCells) {
		return "", false
	}
	entry := &e.atomCells[a-1]
	if entry.refs == 0 {
		return "", false
	}
	return entry.str, true
}

// LiveAtoms reports the number of interned keys. Intended for tests.
func (e *Engine) LiveAtoms() int {
	return len(e.atoms)
}
