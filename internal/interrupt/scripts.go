package interrupt

import (
	"sort"
)

// ScriptKey identifies a live script by file and base line.
type ScriptKey struct {
	Filename string
	BaseLine int
}

// scriptRecord is one live script.
type scriptRecord struct {
	script Script
	seq    uint64
}

// scriptRegistry tracks every script the engine has loaded and not yet
// destroyed.
type scriptRegistry struct {
	records map[ScriptKey]scriptRecord
	nextSeq uint64
}

func newScriptRegistry() *scriptRegistry {
	return &scriptRegistry{
		records: make(map[ScriptKey]scriptRecord),
	}
}

// insert records a newly loaded script. A record already stored under the
// same key is replaced; the later load wins.
func (r *scriptRegistry) insert(key ScriptKey, s Script) {
	r.nextSeq++
	r.records[key] = scriptRecord{script: s, seq: r.nextSeq}
}

// remove drops the record for a destroyed script. The record is only
// removed if it still refers to the same handle, so destroying a replaced
// script leaves its successor in place.
func (r *scriptRegistry) remove(key ScriptKey, s Script) bool {
	rec, ok := r.records[key]
	if !ok || rec.script != s {
		return false
	}
	delete(r.records, key)
	return true
}

// floor returns the script for filename whose base line is the largest one
// not greater than line. A key holds at most one live record.
func (r *scriptRegistry) floor(filename string, line int) (Script, bool) {
	var (
		best  Script
		base  int
		found bool
	)
	for key, rec := range r.records {
		if key.Filename != filename || key.BaseLine > line {
			continue
		}
		if !found || key.BaseLine > base {
			best, base, found = rec.script, key.BaseLine, true
		}
	}
	return best, found
}

// each calls fn for every live script in load order.
func (r *scriptRegistry) each(fn func(key ScriptKey, s Script)) {
	for _, key := range r.keys() {
		fn(key, r.records[key].script)
	}
}

// keys returns the live keys in load order.
func (r *scriptRegistry) keys() []ScriptKey {
	keys := make([]ScriptKey, 0, len(r.records))
	for key := range r.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return r.records[keys[i]].seq < r.records[keys[j]].seq
	})
	return keys
}
