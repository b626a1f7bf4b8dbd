package proof

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingVerifier wraps a Verifier with a bounded cache of accepting
// verdicts keyed by public inputs. An accept is definitive for the
// (peer, epoch, commitment) triple, so repeats are short-circuited.
// Rejections are never cached: a resubmitted fresh proof of the same
// statement may verify and must reach the wrapped Verifier.
type CachingVerifier struct {
	v Verifier

	cache *lru.Cache[PublicInputs, struct{}]
}

// NewCachingVerifier wraps v with an accept cache of the given capacity.
func NewCachingVerifier(v Verifier, capacity int) (*CachingVerifier, error) {
	c, err := lru.New[PublicInputs, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("init verdict cache: %w", err)
	}

	return &CachingVerifier{
		v:     v,
		cache: c,
	}, nil
}

// Verify implements Verifier.
//
// Only accepting verdicts are cached; rejections and backend failures
// always consult the wrapped Verifier again.
func (c *CachingVerifier) Verify(ctx context.Context, p Proof, pub PublicInputs) error {
	if _, ok := c.cache.Get(pub); ok {
		return nil
	}

	err := c.v.Verify(ctx, p, pub)
	if err == nil {
		c.cache.Add(pub, struct{}{})
	}

	return err
}
