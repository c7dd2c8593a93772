package galrt

import (
	"context"
	"fmt"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
)

// ProcessAction passes action through every Action plugin in load order,
// each receiving the output of the previous one.
func (a *App) ProcessAction(ctx context.Context, props entities.VarMap, action entities.Action) (entities.Action, error) {
	for _, name := range a.plugins.ActionPlugins() {
		h, _ := a.plugins.Host(name)
		next, err := h.ProcessAction(ctx, entities.ActionProcessContext{
			GameProps:    props,
			FrontendType: a.frontend,
			Action:       action,
		})
		if err != nil {
			return action, fmt.Errorf("action plugin %s: %w", name, err)
		}
		action = next
	}
	return action, nil
}

// DispatchCommand renders a text command with the plugin that registered it.
func (a *App) DispatchCommand(ctx context.Context, props entities.VarMap, name string, args []string) (entities.TextProcessResult, error) {
	owner, ok := a.plugins.CommandOwner(name)
	if !ok {
		return entities.TextProcessResult{}, fmt.Errorf("%w: %s", errors.ErrUnknownCommand, name)
	}
	h, _ := a.plugins.Host(owner)
	return h.DispatchCommand(ctx, name, args, entities.TextProcessContext{
		GameProps:    props,
		FrontendType: a.frontend,
	})
}

// ProcessGame lets every Game plugin add properties to the game. Each
// plugin sees the properties merged so far; later plugins override earlier
// ones. props is not modified.
func (a *App) ProcessGame(ctx context.Context, title, author string, props entities.VarMap) (entities.VarMap, error) {
	merged := props.Clone()
	if merged == nil {
		merged = entities.VarMap{}
	}
	for _, name := range a.plugins.GamePlugins() {
		h, _ := a.plugins.Host(name)
		res, err := h.ProcessGame(ctx, entities.GameProcessContext{
			Title:  title,
			Author: author,
			Props:  merged,
		})
		if err != nil {
			return nil, fmt.Errorf("game plugin %s: %w", name, err)
		}
		for k, v := range res.Props {
			merged[k] = v
		}
	}
	return merged, nil
}
