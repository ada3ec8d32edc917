package scan

// State of the pipeline. Result is terminal until Restart.
type State int

const (
	Idle State = iota
	Compressing
	Classifying
	Result
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Compressing:
		return "compressing"
	case Classifying:
		return "classifying"
	case Result:
		return "result"
	default:
		return "unknown"
	}
}
