package host

import (
	"context"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/internal/abi"
)

// Export names of the typed plugin surface.
const (
	ExportProcessAction = "process_action"
	ExportTextCommands  = "text_commands"
	ExportProcessGame   = "process_game"
)

// PluginType returns the capabilities the plugin advertises.
func (h *Host) PluginType(ctx context.Context) (entities.Capability, error) {
	var caps entities.Capability
	if err := h.Call(ctx, abi.ExportPluginType, nil, &caps); err != nil {
		return 0, err
	}
	return caps, nil
}

// DispatchMethod calls a script method exported by a Script plugin.
func (h *Host) DispatchMethod(ctx context.Context, name string, args []entities.Value) (entities.Value, error) {
	if args == nil {
		args = []entities.Value{}
	}
	var res entities.Value
	if err := h.Call(ctx, name, []any{args}, &res); err != nil {
		return entities.Unit(), err
	}
	return res, nil
}

// ProcessAction lets an Action plugin rewrite the Action about to be shown.
func (h *Host) ProcessAction(ctx context.Context, pctx entities.ActionProcessContext) (entities.Action, error) {
	var res entities.Action
	if err := h.Call(ctx, ExportProcessAction, []any{pctx}, &res); err != nil {
		return entities.Action{}, err
	}
	return res, nil
}

// TextCommands lists the text commands a Text plugin handles.
func (h *Host) TextCommands(ctx context.Context) ([]string, error) {
	var cmds []string
	if err := h.Call(ctx, ExportTextCommands, nil, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

// DispatchCommand runs the text command name exported by a Text plugin.
func (h *Host) DispatchCommand(ctx context.Context, name string, args []string, pctx entities.TextProcessContext) (entities.TextProcessResult, error) {
	if args == nil {
		args = []string{}
	}
	var res entities.TextProcessResult
	if err := h.Call(ctx, name, []any{args, pctx}, &res); err != nil {
		return entities.TextProcessResult{}, err
	}
	return res, nil
}

// ProcessGame lets a Game plugin add properties to the game.
func (h *Host) ProcessGame(ctx context.Context, pctx entities.GameProcessContext) (entities.GameProcessResult, error) {
	var res entities.GameProcessResult
	if err := h.Call(ctx, ExportProcessGame, []any{pctx}, &res); err != nil {
		return entities.GameProcessResult{}, err
	}
	return res, nil
}
