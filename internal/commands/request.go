package commands

import (
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/rurl/httpclient"
)

// RequestOptions holds the flags of the request commands.
type RequestOptions struct {
	Method string
	Params []string
	Data   string
}

func newGetCommand(global *GlobalOptions, env *Env) *cobra.Command {
	opts := &RequestOptions{Method: nethttp.MethodGet}
	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Perform a GET request",
		Example: `  rurl get https://example.com/search -p q=cookies -p page=2
  rurl --cookie-dir ~/.rurl get https://example.com/account`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, global, opts, env, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Query parameter key=value (repeatable)")
	return cmd
}

func newPostCommand(global *GlobalOptions, env *Env) *cobra.Command {
	opts := &RequestOptions{Method: nethttp.MethodPost}
	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Perform a POST request",
		Long: `Perform a POST request. The body is --data when given, otherwise the
--param pairs form-encoded.`,
		Example: `  rurl post https://example.com/login -p user=alice -p password=secret
  rurl post https://example.com/api -H "Content-Type: application/json" -d '{"a":1}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, global, opts, env, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Form field key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Raw request body")
	return cmd
}

func newRequestCommand(global *GlobalOptions, env *Env) *cobra.Command {
	opts := &RequestOptions{}
	cmd := &cobra.Command{
		Use:     "request URL",
		Short:   "Perform a request with any method",
		Example: `  rurl request -X DELETE https://example.com/items/7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, global, opts, env, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Method, "request", "X", nethttp.MethodGet, "HTTP method")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Parameter key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Raw request body")
	return cmd
}

func runRequest(cmd *cobra.Command, global *GlobalOptions, opts *RequestOptions, env *Env, rawURL string) error {
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}
	headers, err := parseHeaders(global.Headers)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, global, env)
	if err != nil {
		return err
	}
	defer s.close()

	req := &httpclient.Request{URL: rawURL, Headers: headers, Options: &httpclient.Options{}}
	if len(params) > 0 {
		req.Params = params
	}
	if cmd.Flags().Changed("data") {
		req.Body = []byte(opts.Data)
	}

	out := env.Stdout
	if global.OutputFile != "" {
		f, err := env.Fs.Create(global.OutputFile)
		if err != nil {
			return &httpclient.RequestError{Code: httpclient.CodeWriteError, Message: "failed creating output file", Err: err}
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	// Headers must precede the body, so --include keeps the body until they are printed.
	req.Options.ReturnBody = httpclient.Bool(global.Include)
	req.Options.Output = out

	method := strings.ToUpper(opts.Method)
	resp, err := s.client.Do(cmd.Context(), method, req)
	if err != nil {
		return err
	}
	if resp.CacheErr != nil {
		s.log.Warn().Err(resp.CacheErr).Msg("Cookie cache not updated")
	}

	if global.Include {
		if err := writeHead(out, resp); err != nil {
			return &httpclient.RequestError{Code: httpclient.CodeWriteError, Message: "failed writing headers", Err: err}
		}
		if _, err := out.Write(resp.Body); err != nil {
			return &httpclient.RequestError{Code: httpclient.CodeWriteError, Message: "failed writing body", Err: err}
		}
	}
	return nil
}

// parseParams turns key=value pairs into url.Values. A pair without "=" has an empty value.
func parseParams(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		if k == "" {
			return nil, fmt.Errorf("invalid parameter %q: empty key", p)
		}
		values.Add(k, v)
	}
	return values, nil
}

// parseHeaders turns "Name: value" strings into a header map.
func parseHeaders(lines []string) (map[string]string, error) {
	headers := make(map[string]string, len(lines))
	for _, l := range lines {
		k, v, ok := strings.Cut(l, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q: want \"Name: value\"", l)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}

func writeHead(w io.Writer, resp *httpclient.Response) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s\r\n", resp.Proto, resp.StatusCode, nethttp.StatusText(resp.StatusCode))
	keys := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Headers[k] {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}
