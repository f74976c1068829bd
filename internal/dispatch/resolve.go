package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"uk.co.dudmesh.crosspost/internal/model"
)

// missError is a resolution miss. Dispatch turns it into a skipped outcome
// instead of a failure.
type missError struct {
	reason string
}

func (e *missError) Error() string {
	return e.reason
}

func miss(format string, args ...any) error {
	return &missError{reason: fmt.Sprintf(format, args...)}
}

func (d *dispatcher) resolvePost(ctx context.Context, postURL string) (*model.PostRef, error) {
	locator, err := parsePostURL(postURL, d.host)
	if err != nil {
		return nil, miss("%v", err)
	}

	did := locator.Handle
	if !strings.HasPrefix(did, "did:") {
		did, err = d.dest.ResolveHandle(ctx, locator.Handle)
		if errors.Is(err, model.ErrorNotFound) {
			return nil, miss("handle %s not found", locator.Handle)
		}
		if err != nil {
			return nil, fmt.Errorf("resolving handle %s: %w", locator.Handle, err)
		}
	}

	ref, err := d.dest.GetPost(ctx, did, locator.Key)
	if errors.Is(err, model.ErrorNotFound) {
		return nil, miss("post %s not found", postURL)
	}
	if err != nil {
		return nil, fmt.Errorf("getting post %s: %w", postURL, err)
	}
	return ref, nil
}

// resolveRoot walks the hydrated parent chain of post up to its topmost
// node.
func (d *dispatcher) resolveRoot(ctx context.Context, post *model.PostRef) (*model.PostRef, error) {
	node, err := d.dest.GetThread(ctx, post.URI)
	if errors.Is(err, model.ErrorNotFound) || (err == nil && node == nil) {
		return nil, miss("thread for %s not found", post.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread %s: %w", post.URI, err)
	}

	for node.Parent != nil {
		node = node.Parent
	}
	root := node.Ref
	return &root, nil
}
