package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/model"
)

const (
	collectionPost   = "app.bsky.feed.post"
	collectionRepost = "app.bsky.feed.repost"

	// threadParents is the deepest parent chain getPostThread will return.
	threadParents = 1000
)

type HandleCache interface {
	Get(handle string) (string, error)
	Set(handle string, did string) error
}

type client struct {
	xrpc       *xrpc.Client
	identifier string
	password   string
	cache      HandleCache
	expiresAt  time.Time
	now        func() time.Time
}

func New(host string, identifier string, password string, httpClient *http.Client, cache HandleCache) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	userAgent := "crosspost"
	return &client{
		xrpc: &xrpc.Client{
			Client:    httpClient,
			Host:      strings.TrimRight(host, "/"),
			UserAgent: &userAgent,
		},
		identifier: identifier,
		password:   password,
		cache:      cache,
		now:        time.Now,
	}
}

func (c *client) Login(ctx context.Context) error {
	out, err := comatproto.ServerCreateSession(ctx, c.xrpc, &comatproto.ServerCreateSession_Input{
		Identifier: c.identifier,
		Password:   c.password,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", writeError(err))
	}
	c.setSession(out.AccessJwt, out.RefreshJwt, out.Handle, out.Did)
	log.Infof("logged in to %s as %s (%s)", c.xrpc.Host, out.Handle, out.Did)
	return nil
}

func (c *client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.ToLower(handle)
	if did, err := c.cache.Get(handle); err == nil {
		return did, nil
	}

	out, err := comatproto.IdentityResolveHandle(ctx, c.xrpc, handle)
	if err != nil {
		return "", readError(err)
	}
	if err := c.cache.Set(handle, out.Did); err != nil {
		log.Warnf("caching handle %s: %v", handle, err)
	}
	return out.Did, nil
}

func (c *client) GetPost(ctx context.Context, did string, rkey string) (*model.PostRef, error) {
	out, err := comatproto.RepoGetRecord(ctx, c.xrpc, "", collectionPost, did, rkey)
	if err != nil {
		return nil, readError(err)
	}
	if out.Cid == nil {
		return nil, fmt.Errorf("record %s has no cid", out.Uri)
	}
	return &model.PostRef{URI: out.Uri, CID: *out.Cid}, nil
}

// GetThread returns the post at uri with its chain of hydrated parents, or
// nil when the thread is not available as a full view.
func (c *client) GetThread(ctx context.Context, uri string) (*model.ThreadNode, error) {
	out, err := bsky.FeedGetPostThread(ctx, c.xrpc, 0, threadParents, uri)
	if err != nil {
		return nil, readError(err)
	}
	if out.Thread == nil || out.Thread.FeedDefs_ThreadViewPost == nil {
		return nil, nil
	}
	return threadNode(out.Thread.FeedDefs_ThreadViewPost), nil
}

func threadNode(view *bsky.FeedDefs_ThreadViewPost) *model.ThreadNode {
	if view.Post == nil {
		return nil
	}
	node := &model.ThreadNode{Ref: model.PostRef{URI: view.Post.Uri, CID: view.Post.Cid}}
	if view.Parent != nil && view.Parent.FeedDefs_ThreadViewPost != nil {
		node.Parent = threadNode(view.Parent.FeedDefs_ThreadViewPost)
	}
	return node
}

func (c *client) UploadBlob(ctx context.Context, data []byte, contentType string) (*model.Blob, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	// The generated RepoUploadBlob always sends */*, so the call is made
	// directly to carry the real media type.
	var out comatproto.RepoUploadBlob_Output
	err := c.xrpc.Do(ctx, xrpc.Procedure, contentType, "com.atproto.repo.uploadBlob", nil, bytes.NewReader(data), &out)
	if err != nil {
		return nil, fmt.Errorf("uploading %s blob: %w", contentType, writeError(err))
	}
	return &model.Blob{
		Ref:      out.Blob.Ref.String(),
		MimeType: out.Blob.MimeType,
		Size:     out.Blob.Size,
	}, nil
}

func (c *client) Post(ctx context.Context, draft *model.Draft) (*model.PostRef, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	record, err := c.feedPost(ctx, draft)
	if err != nil {
		return nil, err
	}
	return c.createRecord(ctx, collectionPost, &lexutil.LexiconTypeDecoder{Val: record})
}

func (c *client) Repost(ctx context.Context, subject model.PostRef) (*model.PostRef, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	return c.createRecord(ctx, collectionRepost, &lexutil.LexiconTypeDecoder{Val: &bsky.FeedRepost{
		LexiconTypeID: collectionRepost,
		CreatedAt:     c.now().UTC().Format(time.RFC3339),
		Subject:       strongRef(subject),
	}})
}
