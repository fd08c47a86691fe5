// Package model defines the in-memory domain types shared by every stage
// of the analysis pipeline: Function Record, Parameter, Quality Metrics,
// Call Edge, Snapshot, Lineage, and Source File.
package model

import "time"

// FunctionKind tags the syntactic shape a Function Record was extracted
// from. Extraction paths differ per kind but all converge on Record.
type FunctionKind string

const (
	KindDeclaration FunctionKind = "declaration"
	KindMethod      FunctionKind = "method"
	KindArrow       FunctionKind = "arrow"
	KindLocal       FunctionKind = "local"
)

// AccessModifier mirrors a TypeScript class-member access qualifier.
type AccessModifier string

const (
	AccessPublic    AccessModifier = "public"
	AccessPrivate   AccessModifier = "private"
	AccessProtected AccessModifier = "protected"
	AccessAbsent    AccessModifier = ""
)

// Parameter describes one formal parameter of a Function Record, owned
// by that record and ordered by Position.
type Parameter struct {
	Name         string
	Type         string
	TypeSimple   string
	Position     int
	Optional     bool
	Rest         bool
	DefaultValue string
	Description  string
}

// QualityMetrics is the per-function scalar metric set computed once at
// persistence time by the Metric Calculator.
type QualityMetrics struct {
	LinesOfCode           int
	TotalLines            int
	CommentLines          int
	CodeToCommentRatio    float64
	CyclomaticComplexity  int
	CognitiveComplexity   int
	MaxNestingLevel       int
	ParameterCount        int
	ReturnStatementCount  int
	BranchCount           int
	LoopCount             int
	TryCatchCount         int
	AsyncAwaitCount       int
	CallbackCount         int
	HalsteadVolume        float64
	HalsteadDifficulty    float64
	MaintainabilityIndex  float64
}

// Record is the canonical in-memory representation of one extracted
// function, method, arrow, or local function.
type Record struct {
	// Identity
	PhysicalID string
	SemanticID string
	ContentID  string

	// Descriptive
	Name        string
	DisplayName string
	Signature   string
	Parameters  []Parameter
	ReturnType  string

	// Location
	FilePath    string
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int

	// Flags
	Exported    bool
	Async       bool
	Generator   bool
	Arrow       bool
	Method      bool
	Constructor bool
	Static      bool
	Accessor    bool

	AccessModifier AccessModifier
	ContextPath    []string
	Kind           FunctionKind
	NestingLevel   int

	ASTHash    string
	JSDoc      string
	SourceCode string

	Metrics QualityMetrics
}

// CallType classifies how a call site was resolved.
type CallType string

const (
	CallDirect      CallType = "direct"
	CallConditional CallType = "conditional"
	CallAsync       CallType = "async"
	CallExternal    CallType = "external"
	CallDynamic     CallType = "dynamic"
)

// CallEdge is a directed caller→callee relation observed at the AST
// level, with a call-type classification and a resolver confidence.
type CallEdge struct {
	ID               string
	CallerPhysicalID string
	CalleePhysicalID string // empty when unresolved/external
	CalleeName       string
	CalleeSignature  string
	CallerClassName  string
	CalleeClassName  string
	CallType         CallType
	CallContext      string
	Line             int
	Column           int
	Async            bool
	Chained          bool
	Confidence       float64
	Metadata         map[string]string
}

// AnalysisLevel is a progress marker on a Snapshot.
type AnalysisLevel string

const (
	AnalysisNone       AnalysisLevel = "none"
	AnalysisBasic      AnalysisLevel = "basic"
	AnalysisCallGraph  AnalysisLevel = "call-graph"
)

// SnapshotMetadata is the rolled-up aggregate computed after a snapshot
// write completes.
type SnapshotMetadata struct {
	TotalFunctions           int
	TotalFiles               int
	AvgComplexity            float64
	MaxComplexity            int
	ExportedFunctions        int
	AsyncFunctions           int
	ComplexityDistribution   map[string]int // bucket label -> count
	FileExtensions           map[string]int
	AnalysisLevel            AnalysisLevel
	BasicAnalysisCompleted   bool
	CallGraphAnalysisCompleted bool
}

// SourceFile is the persisted blob backing a Function Record's
// FilePath, one row per analyzed file per snapshot.
type SourceFile struct {
	ID             string
	SnapshotID     string
	FilePath       string
	FileContent    string
	FileHash       string
	Encoding       string
	FileSizeBytes  int
	LineCount      int
	Language       string
	FunctionCount  int
	ExportCount    int
	ImportCount    int
	FileModifiedAt *time.Time
}

// Snapshot is a versioned, immutable container for one analysis pass.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Label       string
	Comment     string
	GitCommit   string
	GitBranch   string
	GitTag      string
	ProjectRoot string
	ConfigHash  string
	Scope       string
	Level       AnalysisLevel
	Metadata    SnapshotMetadata
}

// LineageKind classifies the proposed historical relation.
type LineageKind string

const (
	LineageRename           LineageKind = "rename"
	LineageSignatureChange  LineageKind = "signature-change"
	LineageInline           LineageKind = "inline"
	LineageSplit            LineageKind = "split"
)

// LineageStatus is the human review state of a Lineage candidate.
type LineageStatus string

const (
	LineageDraft     LineageStatus = "draft"
	LineageConfirmed LineageStatus = "confirmed"
	LineageRejected  LineageStatus = "rejected"
)

// Lineage proposes a historical relation between one or more source
// (removed) physical ids and one or more target (appeared) physical ids.
type Lineage struct {
	ID              string
	FromPhysicalIDs []string
	ToPhysicalIDs   []string
	Kind            LineageKind
	Status          LineageStatus
	Confidence      float64
	Note            string
	GitCommit       string
	CreatedAt       time.Time
}

// DescriptionSource tags who or what authored a Function Description.
type DescriptionSource string

const (
	DescriptionHuman DescriptionSource = "human"
	DescriptionAI    DescriptionSource = "ai"
	DescriptionJSDoc DescriptionSource = "jsdoc"
)

// FunctionDescription is a human- or AI-authored free-text description
// keyed by the semantic id it was written against, consumed by the
// (out-of-scope) description/semantic-search subsystem. Batch-imported
// via a JSON array of these, keyed by SemanticID.
type FunctionDescription struct {
	SemanticID            string
	Description           string
	Source                DescriptionSource
	CreatedBy             string
	AIModel               string
	ConfidenceScore        float64
	ValidatedForContentID string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
