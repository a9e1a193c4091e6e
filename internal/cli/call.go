package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/singly-connect/pkg/request"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type callFlags struct {
	method    string
	params    []string
	headers   []string
	data      string
	file      string
	query     string
	async     bool
	anonymous bool
}

func newCallCmd(rt *runtime) *cobra.Command {
	var f callFlags

	cmd := &cobra.Command{
		Use:   "call [ENDPOINT]",
		Short: "Perform one API request and print the JSON response",
		Long: `Perform one API request and print the JSON response.

The endpoint is resolved against api_base_url. Authorized requests carry the
configured access token or, failing that, the stored session.

Example:
  singly call /profile
  singly call /types/statuses -X POST -p to=twitter -d '{"body":"hello"}'
  singly call -f request.yaml --async
  singly call /services --anonymous --query twitter.name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.build(args)
			if err != nil {
				return err
			}

			value, err := rt.client.Call(cmd.Context(), req, f.async)
			if err != nil {
				return err
			}

			out, err := render(value, f.query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.method, "method", "X", "", "HTTP method (default GET)")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Raw JSON request body")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Load the request from a YAML or JSON file")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Print only the value at this gjson path")
	cmd.Flags().BoolVar(&f.async, "async", false, "Perform the request through the completion-callback path")
	cmd.Flags().BoolVar(&f.anonymous, "anonymous", false, "Send the request without an access token")
	return cmd
}

func (f callFlags) build(args []string) (*request.Request, error) {
	if f.file != "" {
		if len(args) > 0 {
			return nil, errors.New("use either an endpoint argument or --file, not both")
		}
		return request.LoadFile(f.file)
	}
	if len(args) == 0 {
		return nil, errors.New("endpoint is required")
	}

	opts := make([]request.Option, 0, len(f.params)+len(f.headers)+3)
	if f.method != "" {
		opts = append(opts, request.WithMethod(f.method))
	}
	for _, p := range f.params {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", p)
		}
		opts = append(opts, request.WithParam(key, value))
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --header %q (expected 'Name: value')", h)
		}
		opts = append(opts, request.WithHeader(name, value))
	}
	if f.data != "" {
		if !json.Valid([]byte(f.data)) {
			return nil, errors.New("--data is not valid JSON")
		}
		opts = append(opts, request.WithBody([]byte(f.data), "application/json"))
	}
	if f.anonymous {
		opts = append(opts, request.Unauthorized())
	}
	return request.New(args[0], opts...)
}

// render formats value as indented JSON, or the value at query when set.
func render(value any, query string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}

	if query = strings.TrimSpace(query); query != "" {
		res := gjson.GetBytes(raw, query)
		if !res.Exists() {
			return "", fmt.Errorf("no value at %q", query)
		}
		if !res.IsObject() && !res.IsArray() {
			return res.String(), nil
		}
		raw = []byte(res.Raw)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format response: %w", err)
	}
	return buf.String(), nil
}
