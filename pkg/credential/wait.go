package credential

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/util/wait"
)

// WaitForCredentials polls the provider with bo until it yields credentials.
func WaitForCredentials(ctx context.Context, p Provider, bo wait.Backoff) (*Credentials, error) {
	var c *Credentials
	err := wait.ExponentialBackoffWithContext(ctx, bo, func(ctx context.Context) (bool, error) {
		c = p.GetCredentials(ctx)
		if c == nil {
			log.WithField("provider", p.Name()).Info("credentials not ready, retry")
		}
		return c != nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait credentials from %s: %w, %w", p.Name(), ErrNoCredentials, err)
	}
	return c, nil
}
