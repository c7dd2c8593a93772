package entities

// Settings holds per-installation preferences.
type Settings struct {
	// Lang is a BCP-47 language tag.
	Lang string `yaml:"lang" cbor:"lang" validate:"omitempty,bcp47_language_tag"`
}

// RawContext is a saved session record: where the reader is, the session
// locals and everything displayed so far.
//
// Append to History with PushHistory, not append, so each entry snapshots
// the position and locals it was shown with.
type RawContext struct {
	CurPara string          `cbor:"cur_para"`
	CurAct  int             `cbor:"cur_act"`
	Locals  VarMap          `cbor:"locals"`
	History []HistoryAction `cbor:"history"`
}

// HistoryAction is one displayed Action plus the RawContext state it was
// displayed in.
type HistoryAction struct {
	CurPara string `cbor:"cur_para"`
	CurAct  int    `cbor:"cur_act"`
	Locals  VarMap `cbor:"locals"`
	Action  Action `cbor:"action"`
}

// PushHistory records action together with a snapshot of the current
// position and locals.
func (c *RawContext) PushHistory(action Action) {
	c.History = append(c.History, HistoryAction{
		CurPara: c.CurPara,
		CurAct:  c.CurAct,
		Locals:  c.Locals.Clone(),
		Action:  action,
	})
}
