package sim

// InputFrame is one tick's worth of button state. Frames carry held state,
// not edges: when no newer frame has arrived the previous one applies again,
// which is what lets the server ride out short input gaps.
type InputFrame struct {
	Left   bool `json:"left,omitempty"`
	Right  bool `json:"right,omitempty"`
	Jump   bool `json:"jump,omitempty"`
	Crouch bool `json:"crouch,omitempty"`
	Attack bool `json:"attack,omitempty"`
	Parry  bool `json:"parry,omitempty"`
	Sprint bool `json:"sprint,omitempty"`
}
