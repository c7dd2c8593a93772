// Package galrt is the host runtime of a plugin-extensible visual novel
// engine.
//
// An App ties a configuration file to everything a frontend needs: the
// loaded plugins, the resource chain scripts read through res.*, the
// installation settings and the saved session records. Scripts run against
// an App with Eval and EvalText; namespaced calls dispatch to the plugin of
// the same name.
//
//	cfg, err := config.Load("galrt.yaml")
//	if err != nil {
//		return err
//	}
//	app, err := galrt.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer app.Close(ctx)
//
//	v, err := app.Eval(ctx, locals, program)
package galrt
