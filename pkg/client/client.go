package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"k8s.io/client-go/kubernetes"

	"github.com/aliyun/oss-credentials/pkg/backoff"
	"github.com/aliyun/oss-credentials/pkg/credential"
	"github.com/aliyun/oss-credentials/pkg/logger"
	"github.com/aliyun/oss-credentials/pkg/signer"
	"github.com/aliyun/oss-credentials/types/config"
)

var log = logger.WithSubSys("client")

var ErrClientClosed = errors.New("client is shut down")

type Option func(c *Client)

// WithProvider skips the resolution chain.
func WithProvider(p credential.Provider) Option {
	return func(c *Client) {
		c.opts.Provider = p
	}
}

func WithKubeClient(k kubernetes.Interface) Option {
	return func(c *Client) {
		c.opts.KubeClient = k
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.opts.HTTPClient = h
	}
}

func WithLookupEnv(lookup credential.LookupEnv) Option {
	return func(c *Client) {
		c.opts.LookupEnv = lookup
	}
}

// Client owns one credential provider, resolved on first use and dropped on
// Shutdown. Clients never share providers.
type Client struct {
	opts              credential.ResolveOptions
	signatureVersion  string
	additionalHeaders []string

	lock     sync.Mutex
	resolved bool
	closed   bool
	provider credential.Provider
	err      error
}

// New validates cfg, nil means the defaults.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		var err error
		cfg, err = config.ParseAndValidate(nil)
		if err != nil {
			return nil, err
		}
	}
	if _, err := signer.ForVersion(cfg.SignatureVersion); err != nil {
		return nil, &credential.ConfigurationError{Field: "signatureVersion", Reason: cfg.SignatureVersion, Err: err}
	}
	if cfg.LogLevel != "" {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return nil, &credential.ConfigurationError{Field: "logLevel", Reason: cfg.LogLevel, Err: err}
		}
	}

	c := &Client{
		opts:              cfg.ResolveOptions(),
		signatureVersion:  cfg.SignatureVersion,
		additionalHeaders: cfg.AdditionalHeaders,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider resolves the provider on the first call, a resolution error is
// returned on every later call too.
func (c *Client) Provider() (credential.Provider, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	if !c.resolved {
		c.provider, c.err = credential.Resolve(c.opts)
		c.resolved = true
		if c.err != nil {
			log.Errorf("resolve credential provider failed, %v", c.err)
		} else {
			log.Infof("use credential provider %s", c.provider.Name())
		}
	}
	return c.provider, c.err
}

// Credentials returns ErrNoCredentials when the provider has none.
func (c *Client) Credentials(ctx context.Context) (*credential.Credentials, error) {
	p, err := c.Provider()
	if err != nil {
		return nil, err
	}
	cr := p.GetCredentials(ctx)
	if cr == nil {
		return nil, credential.ErrNoCredentials
	}
	return cr, nil
}

// WaitCredentials blocks until the provider yields credentials, polling with
// the WaitCredentialsReady backoff. Used at startup when the source may lag,
// e.g. a Secret not yet written.
func (c *Client) WaitCredentials(ctx context.Context) (*credential.Credentials, error) {
	p, err := c.Provider()
	if err != nil {
		return nil, err
	}
	return credential.WaitForCredentials(ctx, p, backoff.Backoff(backoff.WaitCredentialsReady))
}

// Sign a canonical string with the configured signature version.
func (c *Client) Sign(ctx context.Context, stringToSign string) (string, error) {
	cr, err := c.Credentials(ctx)
	if err != nil {
		return "", err
	}
	return signer.Sign(cr, stringToSign, c.signatureVersion)
}

// CanonicalResource in the form the configured signature version signs.
func (c *Client) CanonicalResource(bucket, object string, query url.Values) string {
	return signer.CanonicalResourceFor(c.signatureVersion, bucket, object, query)
}

// SignRequest signs req for resource, see CanonicalResource.
func (c *Client) SignRequest(ctx context.Context, req *http.Request, resource string) error {
	cr, err := c.Credentials(ctx)
	if err != nil {
		return err
	}
	return signer.SignRequest(req, cr, resource, c.signatureVersion, c.additionalHeaders...)
}

// Shutdown drops the provider, later calls return ErrClientClosed.
func (c *Client) Shutdown() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.closed = true
	c.provider = nil
	c.err = nil
}
