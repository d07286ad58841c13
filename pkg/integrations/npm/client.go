package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/deptree/pkg/buildinfo"
	deperrors "github.com/matzehuels/deptree/pkg/errors"
	"github.com/matzehuels/deptree/pkg/integrations"
	"github.com/matzehuels/deptree/pkg/registry"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// Client looks up package metadata in an npm-compatible registry.
type Client struct {
	*integrations.Client
	baseURL string
}

type config struct {
	baseURL string
	timeout time.Duration
	http    []integrations.Option
}

// Option configures a Client.
type Option func(*config)

// WithBaseURL points the client at a mirror or private registry.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds each registry request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHTTPOptions forwards options to the shared HTTP client.
func WithHTTPOptions(opts ...integrations.Option) Option {
	return func(c *config) { c.http = append(c.http, opts...) }
}

// NewClient creates an npm registry client.
func NewClient(opts ...Option) *Client {
	cfg := config{baseURL: DefaultBaseURL, timeout: integrations.DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpOpts := append([]integrations.Option{
		integrations.WithHTTPClient(integrations.NewHTTPClient(cfg.timeout)),
	}, cfg.http...)

	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": buildinfo.UserAgent(),
	}
	return &Client{
		Client:  integrations.NewClient(headers, httpOpts...),
		baseURL: cfg.baseURL,
	}
}

// BaseURL returns the registry the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Lookup fetches the document for name@version. version may be an exact
// version, a dist-tag or a range the registry can resolve.
func (c *Client) Lookup(ctx context.Context, name, version string) (*registry.Metadata, error) {
	if err := deperrors.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}
	if err := deperrors.ValidateVersionSpec(version); err != nil {
		return nil, err
	}

	body, err := c.GetBytes(ctx, c.versionURL(name, version))
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, deperrors.Wrap(deperrors.ErrCodePackageNotFound, err, "npm package %s@%s", name, version)
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, deperrors.Wrap(deperrors.ErrCodeNetwork, err, "fetch %s@%s", name, version)
	}

	m, err := ParseMetadata(body)
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", name, version, err)
	}
	return m, nil
}

func (c *Client) versionURL(name, version string) string {
	return c.baseURL + "/" + escapeName(name) + "/" + url.PathEscape(version)
}

// escapeName encodes the scope separator the way the registry expects:
// "@types/node" becomes "@types%2Fnode".
func escapeName(name string) string {
	return strings.Replace(name, "/", "%2F", 1)
}

// ParseMetadata decodes a single-version registry document. The name and
// version fields are required; dependency entries whose value is not a
// string are skipped.
func ParseMetadata(body []byte) (*registry.Metadata, error) {
	if !gjson.ValidBytes(body) {
		return nil, deperrors.New(deperrors.ErrCodeMalformedPackage, "registry response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, deperrors.New(deperrors.ErrCodeMalformedPackage, "registry response is not an object")
	}

	name, version := doc.Get("name"), doc.Get("version")
	if name.Type != gjson.String || name.Str == "" {
		return nil, deperrors.New(deperrors.ErrCodeMalformedPackage, "registry response missing name")
	}
	if version.Type != gjson.String || version.Str == "" {
		return nil, deperrors.New(deperrors.ErrCodeMalformedPackage, "registry response missing version")
	}

	return &registry.Metadata{
		Name:             name.Str,
		Version:          version.Str,
		Dependencies:     ParseDeps(doc.Get("dependencies")),
		DevDependencies:  ParseDeps(doc.Get("devDependencies")),
		PeerDependencies: ParseDeps(doc.Get("peerDependencies")),
	}, nil
}

// ParseDeps reads a name-to-range object in key order. Anything other than
// an object yields nil.
func ParseDeps(obj gjson.Result) registry.Deps {
	if !obj.IsObject() {
		return nil
	}
	var deps registry.Deps
	obj.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String && k.Str != "" {
			deps = append(deps, registry.Dep{Name: k.Str, Range: v.Str})
		}
		return true
	})
	return deps
}

var _ registry.Source = (*Client)(nil)
