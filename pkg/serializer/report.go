package serializer

import "fmt"

// Entity names the kind of document entry an Issue is about.
type Entity string

const (
	EntityNode       Entity = "node"
	EntityConnection Entity = "connection"
)

// Reason explains why an entry was dropped.
type Reason string

const (
	ReasonMalformed       Reason = "malformed"
	ReasonMissingID       Reason = "missing_id"
	ReasonDuplicateID     Reason = "duplicate_id"
	ReasonInvalidKind     Reason = "invalid_kind"
	ReasonUnknownTemplate Reason = "unknown_template"
	ReasonSelfLoop        Reason = "self_loop"
	ReasonDuplicatePair   Reason = "duplicate_pair"
	ReasonDanglingEnd     Reason = "dangling_endpoint"
)

// Issue records one entry dropped while loading a document.
type Issue struct {
	Entity Entity `json:"entity"`
	ID     string `json:"id,omitempty"`
	Reason Reason `json:"reason"`
}

func (i Issue) String() string {
	if i.ID == "" {
		return fmt.Sprintf("%s dropped: %s", i.Entity, i.Reason)
	}

	return fmt.Sprintf("%s %s dropped: %s", i.Entity, i.ID, i.Reason)
}

// Report lists what Deserialize dropped. A clean report means the document loaded as is.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Clean() bool {
	return r == nil || len(r.Issues) == 0
}

func (r *Report) add(entity Entity, id string, reason Reason) {
	r.Issues = append(r.Issues, Issue{Entity: entity, ID: id, Reason: reason})
}

// Count returns how many entries of the given entity were dropped.
func (r *Report) Count(entity Entity) int {
	if r == nil {
		return 0
	}

	count := 0

	for _, issue := range r.Issues {
		if issue.Entity == entity {
			count++
		}
	}

	return count
}
