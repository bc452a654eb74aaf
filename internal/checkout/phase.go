package checkout

type Phase string

const (
	PhaseLoading    Phase = "LOADING"
	PhaseReady      Phase = "READY"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSucceeded  Phase = "SUCCEEDED"
	PhaseFailed     Phase = "FAILED"
	// PhaseAborted is entered when the view redirects away on load.
	PhaseAborted Phase = "ABORTED"
)

func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseAborted
}

// Editable reports whether the form accepts input and submission.
func (p Phase) Editable() bool {
	return p == PhaseReady || p == PhaseFailed
}

func (p Phase) String() string {
	return string(p)
}
