package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pickupform "github.com/goliatone/go-pickupform"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/validation"
)

func newValidateCmd(opts *options) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "validate <request.yaml>",
		Short: "Check a request file against a rule variant",
		Long: `Reads a contact request from YAML (form keys, e.g. name, postalCode,
service), normalises every value the way the form does and reports the
first failing check of the selected variant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			variant, err := pickupform.SelectVariant(cfg.RulesFile, cfg.Variant)
			if err != nil {
				return err
			}
			req, err := readRequest(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := validation.New().Validate(req, variant); err != nil {
				if verr, ok := validation.AsError(err); ok {
					fmt.Fprintf(out, "NG [%s] %s\n", variant.Name, verr.Message)
					fmt.Fprintf(out, "fields: %s\n", verr.FieldPath())
				}
				return err
			}
			fmt.Fprintf(out, "OK [%s]\n", variant.Name)
			if summary {
				text, err := pickupform.Summarize(req, cfg.ComposeOptions()...)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print the composed summary when the request is valid")
	return cmd
}

// readRequest decodes a YAML request on top of the form defaults and
// normalises each value.
func readRequest(path string) (model.ContactRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ContactRequest{}, fmt.Errorf("validate: %w", err)
	}
	req := model.Defaults()
	if err := yaml.Unmarshal(data, &req); err != nil {
		return model.ContactRequest{}, fmt.Errorf("validate: decode %s: %w", path, err)
	}
	for _, field := range model.Fields() {
		if field.Kind == model.KindFiles {
			continue
		}
		value, _ := req.Get(field.Key)
		req.Set(field.Key, model.Normalize(field.Key, value))
	}
	for i := range req.Images {
		req.Images[i].Name = strings.TrimSpace(req.Images[i].Name)
	}
	return req, nil
}
