// Package request describes calls against the Singly API.
//
// A Request is immutable once built: options are applied by New and the
// accessors return copies, so a Request may be shared across goroutines.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the public Singly API endpoint.
	DefaultBaseURL = "https://api.singly.com"

	// AccessTokenParam carries the session token on authorized requests.
	AccessTokenParam = "access_token"

	contentTypeJSON = "application/json"
)

// ErrMissingToken is returned when an authorized request is serialized without a token.
var ErrMissingToken = errors.New("authorized request has no access token")

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
	http.MethodHead:   {},
}

// Request is an immutable description of a single API call.
type Request struct {
	method      string
	endpoint    string
	params      url.Values
	headers     map[string]string
	body        []byte
	contentType string
	token       string
	authorized  bool
}

// Option configures a Request during New.
type Option func(*Request) error

// New builds a Request for endpoint. Requests are authorized by default and
// default to GET.
func New(endpoint string, opts ...Option) (*Request, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	params := url.Values{}
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		parsed, err := url.ParseQuery(endpoint[i+1:])
		if err != nil {
			return nil, fmt.Errorf("parse endpoint query: %w", err)
		}
		params = parsed
		endpoint = endpoint[:i]
	}

	r := &Request{
		method:     http.MethodGet,
		endpoint:   endpoint,
		params:     params,
		token:      strings.TrimSpace(params.Get(AccessTokenParam)),
		authorized: true,
	}
	r.params.Del(AccessTokenParam)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithMethod sets the HTTP verb.
func WithMethod(method string) Option {
	return func(r *Request) error {
		m := strings.ToUpper(strings.TrimSpace(method))
		if _, ok := allowedMethods[m]; !ok {
			return fmt.Errorf("unsupported http method %q", method)
		}
		r.method = m
		return nil
	}
}

// WithParam adds a query parameter. Repeated keys are kept in order.
func WithParam(key, value string) Option {
	return func(r *Request) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("parameter name is empty")
		}
		r.params.Add(key, value)
		return nil
	}
}

// WithParams adds every entry of params as a query parameter.
func WithParams(params map[string]string) Option {
	return func(r *Request) error {
		for k, v := range params {
			if err := WithParam(k, v)(r); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithHeader sets a request header. Empty names or values are ignored.
func WithHeader(name, value string) Option {
	return func(r *Request) error {
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "" || value == "" {
			return nil
		}
		if r.headers == nil {
			r.headers = make(map[string]string)
		}
		r.headers[name] = value
		return nil
	}
}

// WithBody attaches a raw body sent with the given content type.
func WithBody(body []byte, contentType string) Option {
	return func(r *Request) error {
		r.body = append([]byte(nil), body...)
		r.contentType = strings.TrimSpace(contentType)
		return nil
	}
}

// WithJSONBody marshals v and attaches it as an application/json body.
func WithJSONBody(v any) Option {
	return func(r *Request) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		r.body = raw
		r.contentType = contentTypeJSON
		return nil
	}
}

// WithAccessToken attaches the session token and marks the request authorized.
func WithAccessToken(token string) Option {
	return func(r *Request) error {
		r.token = strings.TrimSpace(token)
		r.authorized = true
		return nil
	}
}

// Unauthorized marks the request as public; no token is ever attached.
func Unauthorized() Option {
	return func(r *Request) error {
		r.authorized = false
		r.token = ""
		return nil
	}
}

func (r *Request) Method() string      { return r.method }
func (r *Request) Endpoint() string    { return r.endpoint }
func (r *Request) ContentType() string { return r.contentType }
func (r *Request) Authorized() bool    { return r.authorized }
func (r *Request) HasToken() bool      { return r.token != "" }

// Params returns a copy of the query parameters.
func (r *Request) Params() url.Values {
	out := make(url.Values, len(r.params))
	for k, v := range r.params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Body returns a copy of the request body.
func (r *Request) Body() []byte {
	if len(r.body) == 0 {
		return nil
	}
	return append([]byte(nil), r.body...)
}

// Headers returns the headers to send, including Content-Type when a body is set.
func (r *Request) Headers() map[string]string {
	out := make(map[string]string, len(r.headers)+2)
	for k, v := range r.headers {
		out[k] = v
	}
	if len(r.body) > 0 && r.contentType != "" {
		out["Content-Type"] = r.contentType
	}
	if _, ok := out["Accept"]; !ok {
		out["Accept"] = contentTypeJSON
	}
	return out
}

// WithToken returns a copy of r carrying token. r itself is left untouched.
// Unauthorized requests are returned unchanged.
func (r *Request) WithToken(token string) *Request {
	if !r.authorized {
		return r
	}
	cp := *r
	cp.params = r.Params()
	cp.body = r.Body()
	if r.headers != nil {
		cp.headers = make(map[string]string, len(r.headers))
		for k, v := range r.headers {
			cp.headers[k] = v
		}
	}
	cp.token = strings.TrimSpace(token)
	return &cp
}

// URL resolves the request against baseURL, encoding parameters and the access
// token into the query string.
func (r *Request) URL(baseURL string) (string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", baseURL)
	}

	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + r.endpoint
	q := r.Params()
	if r.authorized {
		if r.token == "" {
			return "", ErrMissingToken
		}
		q.Set(AccessTokenParam, r.token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// String renders the request for logs; the access token is never included.
func (r *Request) String() string {
	if len(r.params) == 0 {
		return r.method + " " + r.endpoint
	}
	return r.method + " " + r.endpoint + "?" + r.params.Encode()
}
