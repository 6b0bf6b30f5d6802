package domain

type Action string

const (
	ActionTurnOn   Action = "turn_on"
	ActionTurnOff  Action = "turn_off"
	ActionSetAll   Action = "set_all"
	ActionSetLevel Action = "set_level"
	ActionRemind   Action = "remind"
	ActionAdd      Action = "add_device"
	ActionNone     Action = "none"
)

// Result is the outcome of interpreting one utterance. Handled=false means the
// text is not a command and belongs to the chat model.
type Result struct {
	Handled  bool   `json:"handled"`
	Action   Action `json:"action"`
	Response string `json:"response,omitempty"`
	Found    bool   `json:"found"`
}

func NotHandled() Result {
	return Result{Action: ActionNone}
}
