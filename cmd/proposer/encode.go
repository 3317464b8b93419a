package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/axiomesh/proposer/action"
	"github.com/urfave/cli/v2"
)

var templatesCMD = &cli.Command{
	Name:   "templates",
	Usage:  "List the supported action templates and their fields",
	Action: listTemplates,
}

var encodeCMD = &cli.Command{
	Name:  "encode",
	Usage: "Validate action parameters and print the encoded call data",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "template",
			Aliases:  []string{"t"},
			Usage:    "action template id",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "field value as key=value, repeatable",
		},
	},
	Action: encode,
}

func listTemplates(ctx *cli.Context) error {
	for _, t := range action.Templates() {
		fmt.Printf("%s (%s) - %s\n", t.ID, t.Category, t.Name)
		fmt.Printf("  %s\n", t.Description)
		for _, f := range t.Fields {
			required := "optional"
			if f.Required {
				required = "required"
			}
			line := fmt.Sprintf("    %-16s %-8s %-8s %s", f.ID, f.Kind, required, f.Name)
			if len(f.Options) > 0 {
				line += fmt.Sprintf(" [%s]", strings.Join(f.Options, " | "))
			}
			fmt.Println(line)
		}
		fmt.Println()
	}
	return nil
}

func parseParams(raw []string) (action.ParameterSet, error) {
	params := make(action.ParameterSet, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q is not in key=value form", kv)
		}
		params[key] = value
	}
	return params, nil
}

func encode(ctx *cli.Context) error {
	tmpl, err := action.TemplateByID(ctx.String("template"))
	if err != nil {
		return err
	}
	params, err := parseParams(ctx.StringSlice("param"))
	if err != nil {
		return err
	}

	validated, err := action.Validate(tmpl, params)
	if err != nil {
		var verr *action.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Printf("%s: %s\n", f.Field, f.Message)
			}
			return cli.Exit("invalid parameters", 1)
		}
		return err
	}

	encoded, err := action.Encode(tmpl.ID, validated)
	if err != nil {
		return err
	}
	if encoded.Fallback {
		fmt.Println("warning: template has no ABI encoding, raw parameters used")
	}
	fmt.Println(encoded.Data.Hex())
	return nil
}
