package deploy

// State is a node of the linear deployment state machine:
//
//	START → PREFLIGHT → CHECKOUT_READY → UPDATED → ENV_READY → INSTALLED → (TESTED | SKIPPED) → DONE
//
// Any step may instead move to FAILED.
type State int

const (
	StateStart State = iota
	StatePreflight
	StateCheckoutReady
	StateUpdated
	StateEnvReady
	StateInstalled
	StateTested
	StateSkipped
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateStart:         "START",
	StatePreflight:     "PREFLIGHT",
	StateCheckoutReady: "CHECKOUT_READY",
	StateUpdated:       "UPDATED",
	StateEnvReady:      "ENV_READY",
	StateInstalled:     "INSTALLED",
	StateTested:        "TESTED",
	StateSkipped:       "SKIPPED",
	StateDone:          "DONE",
	StateFailed:        "FAILED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

type Step string

const (
	StepPreflight   Step = "preflight"
	StepCheckout    Step = "checkout"
	StepUpdate      Step = "update"
	StepEnvironment Step = "environment"
	StepInstall     Step = "install"
	StepTest        Step = "test"
)

// Steps in execution order.
var Steps = []Step{StepPreflight, StepCheckout, StepUpdate, StepEnvironment, StepInstall, StepTest}

func (s Step) String() string { return string(s) }
