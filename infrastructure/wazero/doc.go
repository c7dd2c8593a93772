// Package wazero runs plugin modules on the wazero WebAssembly runtime.
//
// An Engine owns one wazero runtime with WASI preview1 and one host module
// per import module of its hostfuncs.ImportRegistry ("log" and "async" by
// default). Each guest is instantiated under its plugin name; host imports
// called by a guest are routed to the ports.HostEnv it was instantiated
// with.
//
//	engine, err := wazero.NewEngine(ctx, wazero.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close(ctx)
//
//	h, err := host.Load(ctx, engine, "ruby", wasm)
package wazero
