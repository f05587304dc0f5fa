package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/query"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
)

type crudFlags struct {
	entity     string
	version    string
	query      string
	projection string
	sort       string
	from       int
	to         int
	data       string
	update     string
	upsert     bool
}

func crudCommands(a *app) []*cobra.Command {
	commands := []struct {
		op    request.Operation
		short string
	}{
		{op: request.OpFind, short: "Find documents"},
		{op: request.OpInsert, short: "Insert documents"},
		{op: request.OpSave, short: "Save (replace) documents"},
		{op: request.OpUpdate, short: "Update documents matching a query"},
		{op: request.OpDelete, short: "Delete documents matching a query"},
	}
	cmds := make([]*cobra.Command, 0, len(commands))
	for _, s := range commands {
		cmds = append(cmds, crudCmd(a, s.op, s.short))
	}
	return cmds
}

func crudCmd(a *app, op request.Operation, short string) *cobra.Command {
	// from and to are only registered for find; -1 keeps other operations
	// from requesting a range.
	f := &crudFlags{from: -1, to: -1}
	cmd := &cobra.Command{
		Use:   op.Segment(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.descriptor(op)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			defer c.Close()

			env, err := c.ExecuteRequest(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), env.Text())

			hasErr, err := env.HasError()
			if err != nil {
				return err
			}
			if hasErr {
				return errServiceStatus
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.entity, "entity", "", "entity name")
	flags.StringVar(&f.version, "version", "", "entity version")
	_ = cmd.MarkFlagRequired("entity")

	switch op {
	case request.OpFind:
		flags.StringVar(&f.query, "query", "", "query expression (JSON)")
		flags.StringVar(&f.projection, "projection", "", "projection (JSON object or array)")
		flags.StringVar(&f.sort, "sort", "", "sort keys (JSON object or array)")
		flags.IntVar(&f.from, "from", -1, "first result index")
		flags.IntVar(&f.to, "to", -1, "last result index, inclusive")
	case request.OpInsert, request.OpSave:
		flags.StringVar(&f.data, "data", "", "documents (JSON object or array)")
		flags.StringVar(&f.projection, "projection", "", "projection of the returned documents")
		if op == request.OpSave {
			flags.BoolVar(&f.upsert, "upsert", false, "insert documents that do not exist")
		}
	case request.OpUpdate:
		flags.StringVar(&f.query, "query", "", "query expression (JSON)")
		flags.StringVar(&f.update, "update", "", "update expression (JSON object or array)")
		flags.StringVar(&f.projection, "projection", "", "projection of the returned documents")
	case request.OpDelete:
		flags.StringVar(&f.query, "query", "", "query expression (JSON)")
	}
	return cmd
}

func (f *crudFlags) descriptor(op request.Operation) (*request.Descriptor, error) {
	b := request.New(op, f.entity).Version(f.version)

	if f.query != "" {
		q, err := objects(f.query, "query")
		if err != nil {
			return nil, err
		}
		if len(q) != 1 {
			return nil, errors.New("--query must be a single JSON object")
		}
		b.Where(query.Expression(q[0]))
	}
	if f.projection != "" {
		items, err := objects(f.projection, "projection")
		if err != nil {
			return nil, err
		}
		for _, p := range items {
			b.Project(query.Projection(p))
		}
	}
	if f.sort != "" {
		items, err := objects(f.sort, "sort")
		if err != nil {
			return nil, err
		}
		for _, s := range items {
			b.SortBy(query.Sort(s))
		}
	}
	if f.from >= 0 || f.to >= 0 {
		b.Range(f.from, f.to)
	}
	if f.data != "" {
		items, err := objects(f.data, "data")
		if err != nil {
			return nil, err
		}
		for _, doc := range items {
			b.Documents(doc)
		}
	}
	if f.update != "" {
		items, err := objects(f.update, "update")
		if err != nil {
			return nil, err
		}
		for _, u := range items {
			b.Apply(query.Update(u))
		}
	}
	if f.upsert {
		b.Upsert(true)
	}
	return b.Build()
}

// objects decodes a JSON object, or an array of objects, from a flag value.
func objects(text, flag string) ([]map[string]any, error) {
	tree, err := lbapi.Decode(strings.TrimSpace(text))
	if err != nil {
		return nil, errors.Wrapf(err, "--%s is not valid JSON", flag)
	}
	items, ok := tree.([]any)
	if !ok {
		items = []any{tree}
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Errorf("--%s must hold JSON objects", flag)
		}
		out = append(out, obj)
	}
	return out, nil
}
