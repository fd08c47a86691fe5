// Package pipeline orchestrates a full analysis run: it drives the
// Source Walker, Function Extractor, Identity Minter, and Metric
// Calculator over every enumerated file, persists the result as a new
// Snapshot, then runs the Call-Graph Builder over the whole set and
// writes its edges against that snapshot. It also exposes the
// comparison half: loading two snapshots' Function Records and handing
// them to the Diff Engine and, optionally, the Lineage Detector.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/pkg/callgraph"
	"github.com/funcqc/funcqc/pkg/diff"
	"github.com/funcqc/funcqc/pkg/extract"
	"github.com/funcqc/funcqc/pkg/identity"
	"github.com/funcqc/funcqc/pkg/lineage"
	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/quality"
	"github.com/funcqc/funcqc/pkg/storage"
	"github.com/funcqc/funcqc/pkg/walker"
)

// Config carries the per-run, caller-supplied settings: which files to
// scan and how to label the resulting snapshot. It is deliberately a
// subset of internal/config.Config, since a pipeline run doesn't know
// about the Snapshot Store's location or the lineage detector's
// thresholds.
type Config struct {
	Roots        []string
	ExcludeGlobs []string
	Extensions   []string
	// ParseWorkers bounds the parse-stage worker pool. Fewer than 10
	// files always runs sequentially regardless of this value.
	ParseWorkers int

	Label       string
	Comment     string
	GitCommit   string
	GitBranch   string
	GitTag      string
	ProjectRoot string
}

// Pipeline runs one analysis pass end to end against a Snapshot Store.
type Pipeline struct {
	cfg    Config
	store  *storage.Store
	logger *slog.Logger

	extractor  *extract.Extractor
	calculator *quality.Calculator
	builder    *callgraph.Builder
}

// New creates a Pipeline. store must already be open.
func New(cfg Config, store *storage.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		extractor:  extract.New(),
		calculator: quality.New(),
		builder:    callgraph.New(),
	}
}

// Result summarizes one Run.
type Result struct {
	SnapshotID      string
	RunID           string
	FilesScanned    int
	FunctionsFound  int
	CallEdgesFound  int
	ParseErrors     int
	ParseDuration   time.Duration
	BuildDuration   time.Duration
	WriteDuration   time.Duration
	TotalDuration   time.Duration
}

// parsedFile is one walked file's extraction output, kept together so
// the parallel worker pool can hand back ordered-by-index results.
type parsedFile struct {
	file      walker.File
	records   []model.Record
	language  string
	parseErr  error
}

// generateRunID derives a stable identifier for log correlation from
// the run's start time and configured roots.
func generateRunID(startTime time.Time, roots []string) string {
	base := fmt.Sprintf("run-%s-%d", strings.Join(roots, ","), startTime.Unix())
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:16])
}

// Run walks the configured roots, extracts and scores every function,
// persists a new Snapshot, then builds and persists its Call Edges.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	runID := generateRunID(startTime, p.cfg.Roots)
	p.logger.Info("pipeline.run.start", "run_id", runID, "roots", p.cfg.Roots)

	w := walker.New(walker.Options{
		Roots:        p.cfg.Roots,
		ExcludeGlobs: p.cfg.ExcludeGlobs,
		Extensions:   p.cfg.Extensions,
	})

	var files []walker.File
	if err := w.Walk(ctx, func(f walker.File) error {
		files = append(files, f)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	p.logger.Info("pipeline.run.walked", "run_id", runID, "file_count", len(files))

	parseStart := time.Now()
	workers := p.cfg.ParseWorkers
	if workers <= 0 {
		workers = 4
	}
	parsed, parseErrors := p.extractFilesParallel(ctx, files, workers)
	parseDuration := time.Since(parseStart)

	functions, sourceFiles := p.assembleRecords(parsed)
	p.logger.Info("pipeline.run.extracted", "run_id", runID,
		"functions", len(functions), "files", len(sourceFiles), "parse_errors", parseErrors,
		"duration_ms", parseDuration.Milliseconds())

	writeStart := time.Now()
	snapshotID, err := p.store.SaveSnapshot(ctx, functions, sourceFiles, storage.SnapshotOptions{
		Label:       p.cfg.Label,
		Comment:     p.cfg.Comment,
		GitCommit:   p.cfg.GitCommit,
		GitBranch:   p.cfg.GitBranch,
		GitTag:      p.cfg.GitTag,
		ProjectRoot: p.cfg.ProjectRoot,
	})
	if err != nil {
		return nil, ferrors.NewStorageError(
			"cannot save snapshot",
			err.Error(),
			"check that the data directory is writable and not locked by another funcqc process",
			err,
		)
	}
	p.logger.Info("pipeline.run.snapshot.saved", "run_id", runID, "snapshot_id", snapshotID)

	buildStart := time.Now()
	edges, err := p.buildCallGraph(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("build call graph: %w", err)
	}
	buildDuration := time.Since(buildStart)

	if err := p.store.WriteCallEdges(ctx, snapshotID, edges); err != nil {
		return nil, ferrors.NewStorageError(
			"cannot write call edges",
			err.Error(),
			"check that the data directory is writable and not locked by another funcqc process",
			err,
		)
	}
	writeDuration := time.Since(writeStart)

	p.logger.Info("pipeline.run.complete", "run_id", runID, "snapshot_id", snapshotID,
		"functions", len(functions), "call_edges", len(edges),
		"total_duration_ms", time.Since(startTime).Milliseconds())

	return &Result{
		SnapshotID:     snapshotID,
		RunID:          runID,
		FilesScanned:   len(files),
		FunctionsFound: len(functions),
		CallEdgesFound: len(edges),
		ParseErrors:    parseErrors,
		ParseDuration:  parseDuration,
		BuildDuration:  buildDuration,
		WriteDuration:  writeDuration,
		TotalDuration:  time.Since(startTime),
	}, nil
}

// extractFilesParallel runs the extractor and metric calculator over
// every file using a worker pool, falling back to sequential execution
// for small file sets where pool setup would dominate the cost.
func (p *Pipeline) extractFilesParallel(ctx context.Context, files []walker.File, numWorkers int) ([]parsedFile, int) {
	if len(files) == 0 {
		return nil, 0
	}
	if len(files) < 10 || numWorkers <= 1 {
		return p.extractFilesSequential(ctx, files)
	}

	jobs := make(chan int, len(files))
	results := make([]parsedFile, len(files))
	var errorCount int32
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results[i] = p.extractOne(ctx, files[i])
				if results[i].parseErr != nil {
					atomic.AddInt32(&errorCount, 1)
					p.logger.Warn("pipeline.parse.error", "path", files[i].Path, "err", results[i].parseErr)
				}
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, int(errorCount)
}

func (p *Pipeline) extractFilesSequential(ctx context.Context, files []walker.File) ([]parsedFile, int) {
	results := make([]parsedFile, len(files))
	errorCount := 0
	for i, f := range files {
		select {
		case <-ctx.Done():
			return results[:i], errorCount
		default:
		}
		results[i] = p.extractOne(ctx, f)
		if results[i].parseErr != nil {
			errorCount++
			p.logger.Warn("pipeline.parse.error", "path", f.Path, "err", results[i].parseErr)
		}
	}
	return results, errorCount
}

func (p *Pipeline) extractOne(ctx context.Context, f walker.File) parsedFile {
	isTSX := strings.HasSuffix(f.Path, ".tsx") || strings.HasSuffix(f.Path, ".jsx")
	records, err := p.extractor.ExtractFile(ctx, f.Path, f.Content, isTSX)
	if err != nil {
		return parsedFile{file: f, parseErr: err}
	}
	for i := range records {
		identity.Mint(&records[i])
		records[i].Metrics = p.calculator.Compute(records[i].SourceCode, records[i].Name)
	}
	return parsedFile{file: f, records: records, language: languageOf(f.Path)}
}

func languageOf(path string) string {
	switch filepath.Ext(path) {
	case ".ts", ".mts":
		return "typescript"
	case ".tsx":
		return "typescript-tsx"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "javascript-jsx"
	case ".cts":
		return "typescript"
	default:
		return "unknown"
	}
}

// assembleRecords flattens the per-file parse results into the two
// slices SaveSnapshot expects, skipping files that failed to parse.
func (p *Pipeline) assembleRecords(parsed []parsedFile) ([]model.Record, []model.SourceFile) {
	var functions []model.Record
	var sourceFiles []model.SourceFile

	for _, pf := range parsed {
		if pf.parseErr != nil {
			continue
		}
		functions = append(functions, pf.records...)

		content := string(pf.file.Content)
		exportCount, importCount := 0, 0
		for _, rec := range pf.records {
			if rec.Exported {
				exportCount++
			}
		}
		importCount = strings.Count(content, "\nimport ") + strings.Count(content, "import ")

		sourceFiles = append(sourceFiles, model.SourceFile{
			FilePath:      pf.file.Path,
			FileContent:   content,
			FileHash:      pf.file.Hash,
			Encoding:      "utf-8",
			FileSizeBytes: len(pf.file.Content),
			LineCount:     strings.Count(content, "\n") + 1,
			Language:      pf.language,
			FunctionCount: len(pf.records),
			ExportCount:   exportCount,
			ImportCount:   importCount,
		})
	}

	return functions, sourceFiles
}

// buildCallGraph assembles a callgraph.FileSet from the parsed files
// and runs the Call-Graph Builder over it.
func (p *Pipeline) buildCallGraph(ctx context.Context, parsed []parsedFile) ([]model.CallEdge, error) {
	fs := &callgraph.FileSet{
		ProjectRoot: p.cfg.ProjectRoot,
		Files:       make(map[string][]byte),
		Records:     make(map[string][]*model.Record),
	}

	for _, pf := range parsed {
		if pf.parseErr != nil {
			continue
		}
		fs.Files[pf.file.Path] = pf.file.Content
		recs := make([]*model.Record, len(pf.records))
		for i := range pf.records {
			recs[i] = &pf.records[i]
		}
		fs.Records[pf.file.Path] = recs
	}

	return p.builder.Build(ctx, fs)
}

// Compare loads the Function Records of two snapshots and hands them
// to the Diff Engine.
func (p *Pipeline) Compare(ctx context.Context, fromSnapshotID, toSnapshotID string) (*diff.Diff, error) {
	fromFns, err := p.store.QueryFunctions(ctx, storage.QueryOptions{SnapshotID: fromSnapshotID})
	if err != nil {
		return nil, ferrors.NewStorageError(
			"cannot load snapshot",
			err.Error(),
			"check that the snapshot id is correct",
			err,
		)
	}
	toFns, err := p.store.QueryFunctions(ctx, storage.QueryOptions{SnapshotID: toSnapshotID})
	if err != nil {
		return nil, ferrors.NewStorageError(
			"cannot load snapshot",
			err.Error(),
			"check that the snapshot id is correct",
			err,
		)
	}

	return diff.Compute(fromSnapshotID, toSnapshotID, fromFns, toFns), nil
}

// DetectLineage runs the Lineage Detector over a Diff and, if persist
// is true, saves the resulting draft Lineage records.
func (p *Pipeline) DetectLineage(ctx context.Context, d *diff.Diff, cfg lineage.Config, gitCommit string, persist bool) ([]model.Lineage, error) {
	candidates := lineage.Detect(d, cfg)
	lineages := lineage.ToLineages(candidates, gitCommit)

	if persist && len(lineages) > 0 {
		if err := p.store.SaveLineages(ctx, lineages); err != nil {
			return nil, ferrors.NewStorageError(
				"cannot save lineage candidates",
				err.Error(),
				"check that the data directory is writable",
				err,
			)
		}
	}

	return lineages, nil
}
