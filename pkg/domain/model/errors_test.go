package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
)

func TestPathTraversalError(t *testing.T) {
	err := &model.PathTraversalError{
		Member:      "../../etc/passwd",
		Target:      "/etc/passwd",
		Destination: "/work/data",
		Reason:      "member path",
	}

	t.Run("matches sentinel", func(t *testing.T) {
		gt.True(t, errors.Is(err, model.ErrPathTraversal))
		gt.False(t, errors.Is(err, model.ErrDownload))
	})

	t.Run("message names the member", func(t *testing.T) {
		gt.String(t, err.Error()).Contains("../../etc/passwd")
		gt.String(t, err.Error()).Contains("/work/data")
		gt.String(t, err.Error()).Contains("member path")
	})

	t.Run("survives wrapping", func(t *testing.T) {
		wrapped := goerr.Wrap(fmt.Errorf("outer: %w", err), "extraction aborted")
		gt.True(t, errors.Is(wrapped, model.ErrPathTraversal))

		var pte *model.PathTraversalError
		gt.True(t, errors.As(wrapped, &pte))
		gt.String(t, pte.Member).Equal("../../etc/passwd")
	})
}
