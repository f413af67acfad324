// Package storetest provides an in-memory store.Store used by tests. It
// mirrors the adapter semantics the engine relies on: snapshot reads inside
// transactions, read-your-writes, atomic commit, idempotent deletes, and
// set-semantics array mutations. Every operation is recorded so tests can
// assert which documents were touched.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gatherly/server/internal/store"
)

type Memory struct {
	mu   sync.Mutex
	cols map[string]map[string]store.Document

	// Ops records every store touch as "op collection/id". Transactional
	// operations are prefixed with "tx.".
	Ops []string

	// FailOps maps an op name ("get", "set", "update", "delete", "findByIDs",
	// "findNotContaining", "tx") to an error to return instead of executing.
	FailOps map[string]error

	// BeforeTransaction runs once per RunTransaction call, before the
	// transaction takes the store lock. Tests use it to interleave writes
	// between a caller's pre-check and its transaction.
	BeforeTransaction func(m *Memory)

	// ForceTxRetries discards the callback's writes and re-runs it this many
	// times before letting a transaction commit, simulating the store
	// client's optimistic-conflict retry.
	ForceTxRetries int

	// TxRuns counts callback executions across all transactions.
	TxRuns int
}

func NewMemory() *Memory {
	return &Memory{
		cols:    make(map[string]map[string]store.Document),
		FailOps: make(map[string]error),
	}
}

// Seed inserts a document without recording an op, for test setup.
func (m *Memory) Seed(collection, id string, doc store.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.col(collection)[id] = deepCopyDoc(doc)
}

// Doc returns a copy of the stored document, for test assertions.
func (m *Memory) Doc(collection, id string) (store.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.col(collection)[id]
	if !ok {
		return nil, false
	}
	return deepCopyDoc(doc), true
}

// CountOps returns how many recorded ops contain substr.
func (m *Memory) CountOps(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, op := range m.Ops {
		if strings.Contains(op, substr) {
			n++
		}
	}
	return n
}

func (m *Memory) col(name string) map[string]store.Document {
	c, ok := m.cols[name]
	if !ok {
		c = make(map[string]store.Document)
		m.cols[name] = c
	}
	return c
}

func (m *Memory) record(format string, args ...any) {
	m.Ops = append(m.Ops, fmt.Sprintf(format, args...))
}

func (m *Memory) Get(ctx context.Context, collection, id string) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get %s/%s", collection, id)
	if err := m.FailOps["get"]; err != nil {
		return nil, err
	}
	doc, ok := m.col(collection)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return deepCopyDoc(doc), nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("set %s/%s", collection, id)
	if err := m.FailOps["set"]; err != nil {
		return err
	}
	m.col(collection)[id] = deepCopyDoc(doc)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("update %s/%s", collection, id)
	if err := m.FailOps["update"]; err != nil {
		return err
	}
	doc, ok := m.col(collection)[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = deepCopyValue(v)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete %s/%s", collection, id)
	if err := m.FailOps["delete"]; err != nil {
		return err
	}
	delete(m.col(collection), id)
	return nil
}

func (m *Memory) FindByIDs(ctx context.Context, collection string, ids []string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("findByIDs %s", collection)
	if err := m.FailOps["findByIDs"]; err != nil {
		return nil, err
	}
	docs := []store.Document{}
	for _, id := range ids {
		if doc, ok := m.col(collection)[id]; ok {
			docs = append(docs, deepCopyDoc(doc))
		}
	}
	return docs, nil
}

func (m *Memory) FindNotContaining(ctx context.Context, collection string, arrayFields []string, member string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("findNotContaining %s", collection)
	if err := m.FailOps["findNotContaining"]; err != nil {
		return nil, err
	}
	docs := []store.Document{}
	for _, doc := range m.col(collection) {
		if docContainsMember(doc, arrayFields, member) {
			continue
		}
		docs = append(docs, deepCopyDoc(doc))
	}
	return docs, nil
}

func (m *Memory) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if hook := m.BeforeTransaction; hook != nil {
		hook(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("tx begin")
	if err := m.FailOps["tx"]; err != nil {
		return err
	}

	// Discarded runs simulate the store client re-executing the callback
	// after an optimistic conflict: all buffered writes are dropped and the
	// callback starts over against committed state.
	for i := 0; i < m.ForceTxRetries; i++ {
		m.TxRuns++
		tx := &memTx{mem: m, writes: map[string]map[string]store.Document{}, deletes: map[string]map[string]bool{}}
		if err := fn(tx); err != nil {
			return err
		}
	}

	m.TxRuns++
	tx := &memTx{mem: m, writes: map[string]map[string]store.Document{}, deletes: map[string]map[string]bool{}}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx buffers writes in an overlay and applies them on commit, giving the
// callback snapshot reads plus read-your-writes.
type memTx struct {
	mem     *Memory
	writes  map[string]map[string]store.Document
	deletes map[string]map[string]bool
}

func (t *memTx) lookup(collection, id string) (store.Document, bool) {
	if t.deletes[collection][id] {
		return nil, false
	}
	if doc, ok := t.writes[collection][id]; ok {
		return doc, true
	}
	doc, ok := t.mem.col(collection)[id]
	return doc, ok
}

func (t *memTx) stage(collection, id string, doc store.Document) {
	if t.writes[collection] == nil {
		t.writes[collection] = make(map[string]store.Document)
	}
	t.writes[collection][id] = doc
	if t.deletes[collection] != nil {
		delete(t.deletes[collection], id)
	}
}

func (t *memTx) Get(collection, id string) (store.Document, error) {
	t.mem.record("tx.get %s/%s", collection, id)
	doc, ok := t.lookup(collection, id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return deepCopyDoc(doc), nil
}

func (t *memTx) Set(collection, id string, doc store.Document) error {
	t.mem.record("tx.set %s/%s", collection, id)
	t.stage(collection, id, deepCopyDoc(doc))
	return nil
}

func (t *memTx) Update(collection, id string, fields store.Document) error {
	t.mem.record("tx.update %s/%s", collection, id)
	doc, ok := t.lookup(collection, id)
	if !ok {
		return store.ErrNotFound
	}
	updated := deepCopyDoc(doc)
	for k, v := range fields {
		updated[k] = deepCopyValue(v)
	}
	t.stage(collection, id, updated)
	return nil
}

func (t *memTx) Delete(collection, id string) error {
	t.mem.record("tx.delete %s/%s", collection, id)
	if t.deletes[collection] == nil {
		t.deletes[collection] = make(map[string]bool)
	}
	t.deletes[collection][id] = true
	if t.writes[collection] != nil {
		delete(t.writes[collection], id)
	}
	return nil
}

func (t *memTx) AddToSet(collection, id, field string, values ...string) error {
	t.mem.record("tx.addToSet %s/%s %s", collection, id, field)
	doc, ok := t.lookup(collection, id)
	if !ok {
		return store.ErrNotFound
	}
	updated := deepCopyDoc(doc)
	set := stringSlice(updated[field])
	for _, v := range values {
		if !containsString(set, v) {
			set = append(set, v)
		}
	}
	updated[field] = set
	t.stage(collection, id, updated)
	return nil
}

func (t *memTx) RemoveFromSet(collection, id, field string, values ...string) error {
	t.mem.record("tx.removeFromSet %s/%s %s", collection, id, field)
	doc, ok := t.lookup(collection, id)
	if !ok {
		return nil
	}
	updated := deepCopyDoc(doc)
	set := stringSlice(updated[field])
	kept := set[:0]
	for _, s := range set {
		if !containsString(values, s) {
			kept = append(kept, s)
		}
	}
	updated[field] = kept
	t.stage(collection, id, updated)
	return nil
}

func (t *memTx) commit() {
	for collection, ids := range t.deletes {
		for id := range ids {
			delete(t.mem.col(collection), id)
		}
	}
	for collection, docs := range t.writes {
		for id, doc := range docs {
			t.mem.col(collection)[id] = doc
		}
	}
}

func docContainsMember(doc store.Document, arrayFields []string, member string) bool {
	for _, field := range arrayFields {
		if containsString(stringSlice(doc[field]), member) {
			return true
		}
	}
	return false
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func deepCopyDoc(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
