package safe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autocrm/pkg/utils/safe"
)

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	c := &closer{}
	safe.Close(ctx, c)
	gt.Bool(t, c.closed).True()

	failing := &closer{err: errors.New("boom")}
	safe.Close(ctx, failing)
	gt.Bool(t, failing.closed).True()

	safe.Close(ctx, nil)
}
