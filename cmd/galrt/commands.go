package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/gal-dev/galrt"
	"github.com/gal-dev/galrt/application/schema"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/infrastructure/parser"
)

func (c *cli) runPlugins(app *galrt.App) error {
	plugins := app.Plugins()
	names := plugins.Names()
	if len(names) == 0 {
		fmt.Fprintln(c.stdout, "No plugins loaded.")
		return nil
	}

	owned := make(map[string][]string)
	for _, cmd := range plugins.Commands() {
		owner, _ := plugins.CommandOwner(cmd)
		owned[owner] = append(owned[owner], cmd)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCAPABILITIES\tCOMMANDS")
	for _, name := range names {
		caps, _ := plugins.Capability(name)
		cmds := "-"
		if len(owned[name]) > 0 {
			cmds = strings.Join(owned[name], ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, caps, cmds)
	}
	return w.Flush()
}

func (c *cli) runCall(ctx context.Context, app *galrt.App, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: call <plugin> <method> [args]", errUsage)
	}
	h, ok := app.Plugins().Host(args[0])
	if !ok {
		return fmt.Errorf("plugin %s is not loaded", args[0])
	}
	v, err := h.DispatchMethod(ctx, args[1], parser.ParseValues(args[2:]))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, v)
	return nil
}

func (c *cli) runCommand(ctx context.Context, app *galrt.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: command <name> [args]", errUsage)
	}
	res, err := app.DispatchCommand(ctx, nil, args[0], args[1:])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s\t%s\n", res.Line.Type, res.Line.Data)
	return nil
}

func (c *cli) runSettings(ctx context.Context, app *galrt.App, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	lang := fs.String("lang", "", "set the language (BCP-47 tag)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := app.Settings()
	if *lang != "" {
		settings.Lang = *lang
		if err := app.SaveSettings(ctx, settings); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = c.stdout.Write(data)
	return err
}

func (c *cli) runRecords(ctx context.Context, app *galrt.App) error {
	records, err := app.Records(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(c.stdout, "No records saved.")
		return nil
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tPARAGRAPH\tACTION\tHISTORY\tLAST")
	for i, rec := range records {
		last := "-"
		if n := len(rec.History); n > 0 {
			last = rec.History[n-1].Action.Text()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", i, rec.CurPara, rec.CurAct, len(rec.History), last)
	}
	return w.Flush()
}

func (c *cli) runSchema(args []string) error {
	r := schema.NewRegistry()
	if err := schema.RegisterDocuments(r); err != nil {
		return err
	}
	if len(args) == 0 {
		for _, kind := range r.List() {
			fmt.Fprintln(c.stdout, kind)
		}
		return nil
	}
	s, ok := r.GetSchema(args[0])
	if !ok {
		return &errors.ConfigError{Field: "kind", Err: fmt.Errorf("unknown schema kind %q", args[0])}
	}
	fmt.Fprintln(c.stdout, s)
	return nil
}
