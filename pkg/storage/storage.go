package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/pkg/model"
)

// Store is the Snapshot Store. It owns a single BadgerDB instance and
// serializes writes behind mu, matching the single-writer/concurrent-
// readers concurrency model.
type Store struct {
	db *badger.DB
	mu sync.Mutex
}

// Config configures where the store keeps its data on disk.
type Config struct {
	// DataDir is the directory BadgerDB uses for its log and SST files.
	DataDir string
}

// Open opens (creating if necessary) the BadgerDB instance backing the
// store.
func Open(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, ferrors.NewConfigError(
			"storage data directory not set",
			"Config.DataDir was empty",
			"set DataDir to a writable path",
			nil,
		)
	}

	opts := badger.DefaultOptions(filepath.Clean(cfg.DataDir)).
		WithCompression(options.ZSTD).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, ferrors.NewStorageError(
			"cannot open snapshot store",
			err.Error(),
			"check that the data directory is writable and not locked by another funcqc process",
			err,
		)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- key layout ---

func headerKey(snapshotID string) []byte {
	return []byte("snap/" + snapshotID + "/header")
}

func functionKeyPrefix(snapshotID string) []byte {
	return []byte("snap/" + snapshotID + "/fn/")
}

func functionKey(snapshotID, physicalID string) []byte {
	return append(functionKeyPrefix(snapshotID), []byte(physicalID)...)
}

func edgeKeyPrefix(snapshotID string) []byte {
	return []byte("snap/" + snapshotID + "/edge/")
}

func edgeKey(snapshotID, edgeID string) []byte {
	return append(edgeKeyPrefix(snapshotID), []byte(edgeID)...)
}

func fileKeyPrefix(snapshotID string) []byte {
	return []byte("snap/" + snapshotID + "/file/")
}

func fileKey(snapshotID, fileID string) []byte {
	return append(fileKeyPrefix(snapshotID), []byte(fileID)...)
}

const (
	headerKeyPrefix    = "snap/"
	headerKeySuffix    = "/header"
	lineagePrefix      = "lineage/"
	descriptionPrefix  = "description/"
)

func lineageKey(id string) []byte {
	return []byte(lineagePrefix + id)
}

func descriptionKey(semanticID string) []byte {
	return []byte(descriptionPrefix + semanticID)
}

// --- write contract ---

// SnapshotOptions carries the caller-supplied, non-derived header
// fields for a new snapshot.
type SnapshotOptions struct {
	Label       string
	Comment     string
	GitCommit   string
	GitBranch   string
	GitTag      string
	ProjectRoot string
	ConfigHash  string
	Scope       string
}

// SaveSnapshot implements the write contract's first phase: it mints a
// new snapshot id, persists the header plus every Function Record and
// Source File in one BadgerDB transaction, and stores the rolled-up
// metadata computed over those rows. The snapshot's analysis level is
// "basic" on return. If the transaction fails, nothing is persisted —
// BadgerDB discards the whole write.
func (s *Store) SaveSnapshot(ctx context.Context, functions []model.Record, files []model.SourceFile, opts SnapshotOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctxErr(ctx); err != nil {
		return "", err
	}

	snap := model.Snapshot{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Label:       opts.Label,
		Comment:     opts.Comment,
		GitCommit:   opts.GitCommit,
		GitBranch:   opts.GitBranch,
		GitTag:      opts.GitTag,
		ProjectRoot: opts.ProjectRoot,
		ConfigHash:  opts.ConfigHash,
		Scope:       opts.Scope,
		Level:       model.AnalysisBasic,
		Metadata:    computeMetadata(functions, files, model.AnalysisBasic),
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, headerKey(snap.ID), snap); err != nil {
			return err
		}
		for i := range functions {
			if err := putJSON(txn, functionKey(snap.ID, functions[i].PhysicalID), functions[i]); err != nil {
				return err
			}
		}
		for i := range files {
			if files[i].ID == "" {
				files[i].ID = uuid.NewString()
			}
			if err := putJSON(txn, fileKey(snap.ID, files[i].ID), files[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", ferrors.NewStorageError(
			"failed to write snapshot",
			err.Error(),
			"retry the scan; no partial snapshot was persisted",
			err,
		)
	}
	return snap.ID, nil
}

// WriteCallEdges implements the write contract's second phase: it
// validates edge integrity (every caller must resolve to a Function
// Record already persisted in this snapshot), writes all edges in one
// transaction, and promotes the snapshot's analysis level to
// "call-graph". The level is never demoted — this is the only writer
// of this field's terminal value.
func (s *Store) WriteCallEdges(ctx context.Context, snapshotID string, edges []model.CallEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctxErr(ctx); err != nil {
		return err
	}

	snap, err := s.getSnapshotHeader(snapshotID)
	if err != nil {
		return err
	}

	known, err := s.functionIDSet(snapshotID)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if !known[e.CallerPhysicalID] {
			return ferrors.NewStorageError(
				"call edge integrity violation",
				fmt.Sprintf("caller %q is not a function record in snapshot %s", e.CallerPhysicalID, snapshotID),
				"this indicates a Call-Graph Builder bug; report it",
				nil,
			)
		}
		if e.CalleePhysicalID != "" && !known[e.CalleePhysicalID] {
			return ferrors.NewStorageError(
				"call edge integrity violation",
				fmt.Sprintf("resolved callee %q is not a function record in snapshot %s", e.CalleePhysicalID, snapshotID),
				"this indicates a Call-Graph Builder bug; report it",
				nil,
			)
		}
	}

	snap.Level = model.AnalysisCallGraph
	snap.Metadata.AnalysisLevel = model.AnalysisCallGraph
	snap.Metadata.CallGraphAnalysisCompleted = true

	err = s.db.Update(func(txn *badger.Txn) error {
		for i := range edges {
			if edges[i].ID == "" {
				edges[i].ID = uuid.NewString()
			}
			if err := putJSON(txn, edgeKey(snapshotID, edges[i].ID), edges[i]); err != nil {
				return err
			}
		}
		return putJSON(txn, headerKey(snapshotID), snap)
	})
	if err != nil {
		return ferrors.NewStorageError(
			"failed to write call edges",
			err.Error(),
			"retry the call-graph phase; the snapshot's basic analysis is untouched",
			err,
		)
	}
	return nil
}

func (s *Store) functionIDSet(snapshotID string) (map[string]bool, error) {
	ids := map[string]bool{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := functionKeyPrefix(snapshotID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids[strings.TrimPrefix(key, string(prefix))] = true
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.NewStorageError("failed to read function records", err.Error(), "", err)
	}
	return ids, nil
}

// --- query contract ---

// FilterOp is the comparison applied by a Filter.
type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpNeq     FilterOp = "neq"
	OpGt      FilterOp = "gt"
	OpGte     FilterOp = "gte"
	OpLt      FilterOp = "lt"
	OpLte     FilterOp = "lte"
	OpLike    FilterOp = "like"
	OpIn      FilterOp = "in"
	OpKeyword FilterOp = "keyword" // substring match over name/display_name/js_doc/source_code; Value ignored by Field
)

// Filter is one predicate in a queryFunctions call. Field names the
// Function Record attribute to compare (see fieldValue); for
// OpKeyword, Field is ignored and Value is the search term.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// SortKey orders queryFunctions results by one Function Record field.
type SortKey struct {
	Field      string
	Descending bool
}

// QueryOptions is the full queryFunctions request.
type QueryOptions struct {
	SnapshotID string
	Filters    []Filter
	Sort       []SortKey
	Limit      int
	Offset     int
}

// QueryFunctions implements queryFunctions(filters, sort, limit,
// offset): equality/comparison/LIKE/IN filters plus a keyword
// predicate, stable-ordered by the requested sort keys with a
// secondary order by (file_path, start_line) for determinism.
func (s *Store) QueryFunctions(ctx context.Context, opts QueryOptions) ([]model.Record, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var records []model.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := functionKeyPrefix(opts.SnapshotID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec model.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if matchesAll(&rec, opts.Filters) {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.NewStorageError("failed to query functions", err.Error(), "", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range opts.Sort {
			c := compareField(&records[i], &records[j], key.Field)
			if c == 0 {
				continue
			}
			if key.Descending {
				return c > 0
			}
			return c < 0
		}
		if records[i].FilePath != records[j].FilePath {
			return records[i].FilePath < records[j].FilePath
		}
		return records[i].StartLine < records[j].StartLine
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(records) {
			return nil, nil
		}
		records = records[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[:opts.Limit]
	}
	return records, nil
}

func fieldValue(rec *model.Record, field string) any {
	switch field {
	case "name":
		return rec.Name
	case "display_name":
		return rec.DisplayName
	case "file_path":
		return rec.FilePath
	case "kind":
		return string(rec.Kind)
	case "start_line":
		return rec.StartLine
	case "end_line":
		return rec.EndLine
	case "is_exported":
		return rec.Exported
	case "is_async":
		return rec.Async
	case "is_generator":
		return rec.Generator
	case "is_method":
		return rec.Method
	case "is_constructor":
		return rec.Constructor
	case "is_static":
		return rec.Static
	case "access_modifier":
		return string(rec.AccessModifier)
	case "parameter_count":
		return len(rec.Parameters)
	case "cyclomatic_complexity":
		return rec.Metrics.CyclomaticComplexity
	case "cognitive_complexity":
		return rec.Metrics.CognitiveComplexity
	case "lines_of_code":
		return rec.Metrics.LinesOfCode
	case "maintainability_index":
		return rec.Metrics.MaintainabilityIndex
	default:
		return nil
	}
}

func matchesAll(rec *model.Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec *model.Record, f Filter) bool {
	if f.Op == OpKeyword {
		term := strings.ToLower(fmt.Sprint(f.Value))
		haystacks := []string{rec.Name, rec.DisplayName, rec.JSDoc, rec.SourceCode}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), term) {
				return true
			}
		}
		return false
	}

	actual := fieldValue(rec, f.Field)
	if actual == nil {
		return false
	}

	switch f.Op {
	case OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range values {
			if compareAny(actual, v) == 0 {
				return true
			}
		}
		return false
	case OpLike:
		as, aok := actual.(string)
		vs, vok := f.Value.(string)
		return aok && vok && strings.Contains(strings.ToLower(as), strings.ToLower(vs))
	case OpEq:
		return compareAny(actual, f.Value) == 0
	case OpNeq:
		return compareAny(actual, f.Value) != 0
	case OpGt:
		return compareAny(actual, f.Value) > 0
	case OpGte:
		return compareAny(actual, f.Value) >= 0
	case OpLt:
		return compareAny(actual, f.Value) < 0
	case OpLte:
		return compareAny(actual, f.Value) <= 0
	default:
		return false
	}
}

func compareField(a, b *model.Record, field string) int {
	return compareAny(fieldValue(a, field), fieldValue(b, field))
}

// compareAny orders two filter values of the same dynamic type
// (string, int, float64, or bool); mismatched or unsupported types
// compare equal so they fall through to the next sort key.
func compareAny(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case float64:
		bv, ok := b.(float64)
		if !ok {
			if iv, iok := b.(int); iok {
				bv, ok = float64(iv), true
			}
		}
		if ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			if av == bv {
				return 0
			}
			if av {
				return 1
			}
			return -1
		}
	}
	return 0
}

// --- snapshot retrieval ---

// ScopeQuery is the getSnapshots request.
type ScopeQuery struct {
	Scope  string
	Limit  int
	Offset int
}

// GetSnapshots implements getSnapshots: returns snapshot headers
// matching the optional scope, most-recent-first by default.
func (s *Store) GetSnapshots(ctx context.Context, q ScopeQuery) ([]model.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	snaps, err := s.allHeaders()
	if err != nil {
		return nil, err
	}

	var filtered []model.Snapshot
	for _, snap := range snaps {
		if q.Scope != "" && snap.Scope != q.Scope {
			continue
		}
		filtered = append(filtered, snap)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(filtered) {
			return nil, nil
		}
		filtered = filtered[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(filtered) {
		filtered = filtered[:q.Limit]
	}
	return filtered, nil
}

// GetSnapshot returns one snapshot header by exact id.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return s.getSnapshotHeader(id)
}

// FindSnapshotsByIDPrefix returns every snapshot whose id starts with
// prefix, for the Snapshot Resolver's prefix-match step.
func (s *Store) FindSnapshotsByIDPrefix(ctx context.Context, prefix string) ([]model.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	all, err := s.allHeaders()
	if err != nil {
		return nil, err
	}
	var matched []model.Snapshot
	for _, snap := range all {
		if strings.HasPrefix(snap.ID, prefix) {
			matched = append(matched, snap)
		}
	}
	return matched, nil
}

// FindSnapshotsByLabel returns every snapshot with the exact label.
func (s *Store) FindSnapshotsByLabel(ctx context.Context, label string) ([]model.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	all, err := s.allHeaders()
	if err != nil {
		return nil, err
	}
	var matched []model.Snapshot
	for _, snap := range all {
		if snap.Label == label {
			matched = append(matched, snap)
		}
	}
	return matched, nil
}

func (s *Store) allHeaders() ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(headerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasSuffix(key, headerKeySuffix) {
				continue
			}
			var snap model.Snapshot
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			}); err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.NewStorageError("failed to read snapshots", err.Error(), "", err)
	}
	return snaps, nil
}

func (s *Store) getSnapshotHeader(id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ferrors.NewNotFoundError(
			fmt.Sprintf("snapshot %q not found", id),
			"no header row exists for this id",
			"check the id with `funcqc snapshots`",
		)
	}
	if err != nil {
		return nil, ferrors.NewStorageError("failed to read snapshot", err.Error(), "", err)
	}
	return &snap, nil
}

// --- lineage ---

// SaveLineages persists draft Lineage candidates.
func (s *Store) SaveLineages(ctx context.Context, lineages []model.Lineage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctxErr(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range lineages {
			if lineages[i].ID == "" {
				lineages[i].ID = uuid.NewString()
			}
			if err := putJSON(txn, lineageKey(lineages[i].ID), lineages[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ferrors.NewStorageError("failed to write lineages", err.Error(), "", err)
	}
	return nil
}

// GetLineages returns every persisted Lineage, optionally filtered to
// one status.
func (s *Store) GetLineages(ctx context.Context, status model.LineageStatus) ([]model.Lineage, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var out []model.Lineage
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(lineagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var l model.Lineage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return err
			}
			if status != "" && l.Status != status {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.NewStorageError("failed to read lineages", err.Error(), "", err)
	}
	return out, nil
}

// --- function descriptions ---

// SaveFunctionDescriptions upserts one Function Description per
// semantic id, overwriting any prior description for the same id.
func (s *Store) SaveFunctionDescriptions(ctx context.Context, descriptions []model.FunctionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctxErr(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, d := range descriptions {
			if err := putJSON(txn, descriptionKey(d.SemanticID), d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ferrors.NewStorageError("failed to write function descriptions", err.Error(), "", err)
	}
	return nil
}

// GetFunctionDescription looks up the persisted description for one
// semantic id, returning (nil, nil) when none exists.
func (s *Store) GetFunctionDescription(ctx context.Context, semanticID string) (*model.FunctionDescription, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var desc *model.FunctionDescription
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(descriptionKey(semanticID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var d model.FunctionDescription
			if err := json.Unmarshal(val, &d); err != nil {
				return err
			}
			desc = &d
			return nil
		})
	})
	if err != nil {
		return nil, ferrors.NewStorageError("failed to read function description", err.Error(), "", err)
	}
	return desc, nil
}

// --- metadata roll-up ---

func computeMetadata(functions []model.Record, files []model.SourceFile, level model.AnalysisLevel) model.SnapshotMetadata {
	m := model.SnapshotMetadata{
		TotalFunctions:         len(functions),
		TotalFiles:             len(files),
		ComplexityDistribution: map[string]int{},
		FileExtensions:         map[string]int{},
		AnalysisLevel:          level,
		BasicAnalysisCompleted: true,
	}

	var complexitySum int
	for _, f := range functions {
		cc := f.Metrics.CyclomaticComplexity
		complexitySum += cc
		if cc > m.MaxComplexity {
			m.MaxComplexity = cc
		}
		if f.Exported {
			m.ExportedFunctions++
		}
		if f.Async {
			m.AsyncFunctions++
		}
		m.ComplexityDistribution[complexityBucket(cc)]++
	}
	if len(functions) > 0 {
		m.AvgComplexity = float64(complexitySum) / float64(len(functions))
	}

	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.FilePath))
		if ext == "" {
			continue
		}
		m.FileExtensions[ext]++
	}

	return m
}

func complexityBucket(cc int) string {
	switch {
	case cc <= 5:
		return "1-5"
	case cc <= 10:
		return "6-10"
	case cc <= 20:
		return "11-20"
	default:
		return "21+"
	}
}

// --- helpers ---

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ferrors.NewStorageError("snapshot store operation cancelled", ctx.Err().Error(), "", ctx.Err())
	default:
		return nil
	}
}
