package proxy

// Stage is a step of the per-request state machine. Stages advance strictly
// in declaration order; StageErrored is reachable from any of them.
type Stage int

const (
	StageReceived Stage = iota
	StageRiskAttached
	StageReported
	StageCached
	StageForwarded
	StageResponseAugmented
	StageCORSApplied
	StageDone
	StageErrored
)

var stageNames = [...]string{
	StageReceived:          "received",
	StageRiskAttached:      "risk_attached",
	StageReported:          "reported",
	StageCached:            "cached",
	StageForwarded:         "forwarded",
	StageResponseAugmented: "response_augmented",
	StageCORSApplied:       "cors_applied",
	StageDone:              "done",
	StageErrored:           "errored",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
