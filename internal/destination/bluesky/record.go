package bluesky

import (
	"context"
	"fmt"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/ipfs/go-cid"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/model"
	"uk.co.dudmesh.crosspost/pkg/richtext"
)

func (c *client) createRecord(ctx context.Context, collection string, record *lexutil.LexiconTypeDecoder) (*model.PostRef, error) {
	out, err := comatproto.RepoCreateRecord(ctx, c.xrpc, &comatproto.RepoCreateRecord_Input{
		Collection: collection,
		Repo:       c.xrpc.Auth.Did,
		Record:     record,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", collection, writeError(err))
	}
	return &model.PostRef{URI: out.Uri, CID: out.Cid}, nil
}

func (c *client) feedPost(ctx context.Context, draft *model.Draft) (*bsky.FeedPost, error) {
	post := &bsky.FeedPost{
		LexiconTypeID: collectionPost,
		CreatedAt:     c.now().UTC().Format(time.RFC3339),
		Text:          draft.Text,
		Facets:        c.facets(ctx, draft.Text),
	}

	if draft.Reply != nil {
		post.Reply = &bsky.FeedPost_ReplyRef{
			Root:   strongRef(draft.Reply.Root),
			Parent: strongRef(draft.Reply.Parent),
		}
	}

	switch {
	case draft.Quote != nil:
		post.Embed = &bsky.FeedPost_Embed{
			EmbedRecord: &bsky.EmbedRecord{
				LexiconTypeID: "app.bsky.embed.record",
				Record:        strongRef(*draft.Quote),
			},
		}
	case draft.External != nil:
		external := &bsky.EmbedExternal_External{
			Uri:         draft.External.URL,
			Title:       draft.External.Title,
			Description: draft.External.Description,
		}
		if draft.External.Thumb != nil {
			thumb, err := lexBlob(draft.External.Thumb)
			if err != nil {
				return nil, err
			}
			external.Thumb = thumb
		}
		post.Embed = &bsky.FeedPost_Embed{
			EmbedExternal: &bsky.EmbedExternal{
				LexiconTypeID: "app.bsky.embed.external",
				External:      external,
			},
		}
	case len(draft.Images) > 0:
		images := make([]*bsky.EmbedImages_Image, 0, len(draft.Images))
		for _, image := range draft.Images {
			blob, err := lexBlob(image.Blob)
			if err != nil {
				return nil, err
			}
			embed := &bsky.EmbedImages_Image{Alt: image.Alt, Image: blob}
			if image.Width > 0 && image.Height > 0 {
				embed.AspectRatio = &bsky.EmbedImages_AspectRatio{
					Width:  int64(image.Width),
					Height: int64(image.Height),
				}
			}
			images = append(images, embed)
		}
		post.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				LexiconTypeID: "app.bsky.embed.images",
				Images:        images,
			},
		}
	}

	return post, nil
}

// facets runs on the final text. Mentions whose handle does not resolve are
// left as plain text.
func (c *client) facets(ctx context.Context, text string) []*bsky.RichtextFacet {
	var facets []*bsky.RichtextFacet
	for _, span := range richtext.Detect(text) {
		feature := &bsky.RichtextFacet_Features_Elem{}
		switch span.Kind {
		case richtext.SpanLink:
			feature.RichtextFacet_Link = &bsky.RichtextFacet_Link{
				LexiconTypeID: "app.bsky.richtext.facet#link",
				Uri:           span.Value,
			}
		case richtext.SpanMention:
			did, err := c.ResolveHandle(ctx, span.Value)
			if err != nil {
				log.Warnf("mention @%s not linked: %v", span.Value, err)
				continue
			}
			feature.RichtextFacet_Mention = &bsky.RichtextFacet_Mention{
				LexiconTypeID: "app.bsky.richtext.facet#mention",
				Did:           did,
			}
		}
		facets = append(facets, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{
				ByteStart: int64(span.ByteStart),
				ByteEnd:   int64(span.ByteEnd),
			},
			Features: []*bsky.RichtextFacet_Features_Elem{feature},
		})
	}
	return facets
}

func strongRef(ref model.PostRef) *comatproto.RepoStrongRef {
	return &comatproto.RepoStrongRef{Uri: ref.URI, Cid: ref.CID}
}

func lexBlob(blob *model.Blob) (*lexutil.LexBlob, error) {
	ref, err := cid.Decode(blob.Ref)
	if err != nil {
		return nil, fmt.Errorf("decoding blob ref %s: %w", blob.Ref, err)
	}
	return &lexutil.LexBlob{
		Ref:      lexutil.LexLink(ref),
		MimeType: blob.MimeType,
		Size:     blob.Size,
	}, nil
}
