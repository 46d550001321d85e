package canvas

// ChangeKind tells observers which part of the session changed.
type ChangeKind int

const (
	GraphChanged ChangeKind = iota + 1
	ViewportChanged
	ConnectModeChanged
	SaveStatusChanged
	WorkflowLoaded
)

func (k ChangeKind) String() string {
	switch k {
	case GraphChanged:
		return "graph_changed"
	case ViewportChanged:
		return "viewport_changed"
	case ConnectModeChanged:
		return "connect_mode_changed"
	case SaveStatusChanged:
		return "save_status_changed"
	case WorkflowLoaded:
		return "workflow_loaded"
	default:
		return "unknown"
	}
}

// SaveStatus is the state of the most recent save.
type SaveStatus int

const (
	SaveIdle SaveStatus = iota
	SaveInFlight
	SaveSucceeded
	SaveFailed
)

func (s SaveStatus) String() string {
	switch s {
	case SaveIdle:
		return "idle"
	case SaveInFlight:
		return "in_flight"
	case SaveSucceeded:
		return "succeeded"
	case SaveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Change is delivered to observers. SaveStatus and Err are set for SaveStatusChanged.
type Change struct {
	Kind       ChangeKind
	SaveStatus SaveStatus
	Err        error
}

// changeSet collects the kinds touched while applying one batch of intents so each
// kind is announced once.
type changeSet []ChangeKind

func (c *changeSet) add(kind ChangeKind) {
	for _, existing := range *c {
		if existing == kind {
			return
		}
	}

	*c = append(*c, kind)
}
