// Package canonical defines the provider-neutral intermediate
// representation every source artifact passes through on its way to a
// target system.
package canonical

// Kind discriminates which artifact shape a canonical record carries. Added
// beyond the bare field list so a single mapper function can dispatch on
// it; without a discriminator a provider-neutral record that mixes
// projects, folders, test cases, and executions cannot round-trip.
type Kind string

const (
	KindProject   Kind = "project"
	KindFolder    Kind = "folder"
	KindTestCase  Kind = "test_case"
	KindExecution Kind = "execution"
)

// Priority is the canonical priority enum.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Status is the canonical status enum.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusReady      Status = "READY"
	StatusApproved   Status = "APPROVED"
	StatusDeprecated Status = "DEPRECATED"
	StatusPassed     Status = "PASSED"
	StatusFailed     Status = "FAILED"
	StatusNotRun     Status = "NOT_RUN"
	StatusBlocked    Status = "BLOCKED"
	StatusOther      Status = "OTHER"
)

// CustomAttributeOriginalStatus and CustomAttributeOriginalPriority are the
// custom-attribute keys under which a non-canonical source value is
// preserved when Status/Priority falls back to OTHER.
const (
	CustomAttributeOriginalStatus   = "originalStatus"
	CustomAttributeOriginalPriority = "originalPriority"
)

// Step is one ordered test step.
type Step struct {
	Action           string `json:"action"`
	ExpectedOutcome  string `json:"expectedOutcome"`
}

// Attachment is a logical reference to binary content; the content itself
// is fetched separately via the provider adapter.
type Attachment struct {
	LogicalID string `json:"logicalId"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Artifact is the canonical, provider-neutral record.
type Artifact struct {
	Kind Kind `json:"kind"`

	SourceID    string `json:"sourceId"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Steps    []Step   `json:"steps"`
	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`
	Tags     []string `json:"tags"`

	ParentFolderRef string `json:"parentFolderRef,omitempty"`

	CustomAttributes map[string]string `json:"customAttributes,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
}

// WithOriginalStatus records a non-canonical source status under the
// preservation key and returns Status OTHER, per the lossless round-trip
// requirement.
func (a *Artifact) WithOriginalStatus(original string) {
	a.Status = StatusOther
	a.setCustomAttribute(CustomAttributeOriginalStatus, original)
}

// WithOriginalPriority records a non-canonical source priority under the
// preservation key; canonical Priority has no OTHER value, so callers pick
// the nearest canonical value and still preserve the original string.
func (a *Artifact) WithOriginalPriority(original string) {
	a.setCustomAttribute(CustomAttributeOriginalPriority, original)
}

func (a *Artifact) setCustomAttribute(key, value string) {
	if a.CustomAttributes == nil {
		a.CustomAttributes = make(map[string]string)
	}
	a.CustomAttributes[key] = value
}

// FieldMapper is the injected source<->canonical<->target translation the
// core treats as an external collaborator. SourceToCanonical and
// CanonicalToTarget are supplied by the caller of the orchestrator; this
// repository does not fix their internal tables beyond the OTHER/
// originalStatus/originalPriority preservation contract above.
type FieldMapper interface {
	SourceToCanonical(sourceProviderID string, raw any) (Artifact, error)
	CanonicalToTarget(targetProviderID string, art Artifact) (any, error)
}
