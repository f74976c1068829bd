package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/model"
	"uk.co.dudmesh.crosspost/pkg/richtext"
)

const maxImages = 4

type Destination interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	GetPost(ctx context.Context, did string, rkey string) (*model.PostRef, error)
	GetThread(ctx context.Context, uri string) (*model.ThreadNode, error)
	UploadBlob(ctx context.Context, data []byte, contentType string) (*model.Blob, error)
	Post(ctx context.Context, draft *model.Draft) (*model.PostRef, error)
	Repost(ctx context.Context, subject model.PostRef) (*model.PostRef, error)
}

type Action string

const (
	ActionReply    Action = "reply"
	ActionRepost   Action = "repost"
	ActionQuote    Action = "quote"
	ActionExternal Action = "external"
	ActionImages   Action = "images"
	ActionText     Action = "text"
)

// Outcome describes what happened to one post. Ref is nil when nothing was
// submitted.
type Outcome struct {
	Action  Action
	Ref     *model.PostRef
	Skipped bool
	Reason  string
}

type Options struct {
	WebURL    string // e.g. https://bsky.app
	MaxLength int
	DryRun    bool
}

type dispatcher struct {
	dest    Destination
	host    string
	options Options
}

func New(dest Destination, options Options) (*dispatcher, error) {
	u, err := url.Parse(options.WebURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid destination web url %q", options.WebURL)
	}
	return &dispatcher{dest: dest, host: u.Host, options: options}, nil
}

// Classify picks the destination action for a post. Commands win over a
// card, a card wins over attachments.
func Classify(post *model.Post) Action {
	if post.Command != nil {
		switch post.Command.Type {
		case model.CommandTypeReply:
			return ActionReply
		case model.CommandTypeRepost:
			return ActionRepost
		case model.CommandTypeQuote:
			return ActionQuote
		}
	}
	if post.Card != nil {
		return ActionExternal
	}
	if len(post.Attachments) > 0 {
		return ActionImages
	}
	return ActionText
}

func (d *dispatcher) Dispatch(ctx context.Context, post *model.Post) (*Outcome, error) {
	action := Classify(post)
	text := d.truncate(post)

	if d.options.DryRun {
		target := ""
		if post.Command != nil {
			target = post.Command.PostURL
		}
		log.Infof("dry run: status %s would %s %s text=%q", post.StatusID, action, target, text)
		return &Outcome{Action: action, Skipped: true, Reason: "dry run"}, nil
	}

	var ref *model.PostRef
	var err error
	switch action {
	case ActionReply:
		ref, err = d.reply(ctx, post.Command.PostURL, text)
	case ActionRepost:
		ref, err = d.repost(ctx, post.Command.PostURL)
	case ActionQuote:
		ref, err = d.quote(ctx, post.Command.PostURL, text)
	case ActionExternal:
		ref, err = d.external(ctx, post.Card, text)
	case ActionImages:
		ref, err = d.images(ctx, post.Attachments, text)
	default:
		ref, err = d.dest.Post(ctx, &model.Draft{Text: text})
	}

	var miss *missError
	if errors.As(err, &miss) {
		log.Warnf("status %s: %s skipped: %v", post.StatusID, action, miss)
		return &Outcome{Action: action, Skipped: true, Reason: miss.Error()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s for status %s: %w", action, post.StatusID, err)
	}
	return &Outcome{Action: action, Ref: ref}, nil
}

func (d *dispatcher) truncate(post *model.Post) string {
	text, changed := richtext.Truncate(post.Content, d.options.MaxLength)
	if changed {
		log.Infof("status %s: text truncated from %d to %d characters",
			post.StatusID, len([]rune(post.Content)), len([]rune(text)))
	}
	return text
}

func (d *dispatcher) reply(ctx context.Context, postURL string, text string) (*model.PostRef, error) {
	parent, err := d.resolvePost(ctx, postURL)
	if err != nil {
		return nil, err
	}
	root, err := d.resolveRoot(ctx, parent)
	if err != nil {
		return nil, err
	}
	return d.dest.Post(ctx, &model.Draft{
		Text:  text,
		Reply: &model.ReplyRef{Root: *root, Parent: *parent},
	})
}

func (d *dispatcher) repost(ctx context.Context, postURL string) (*model.PostRef, error) {
	subject, err := d.resolvePost(ctx, postURL)
	if err != nil {
		return nil, err
	}
	return d.dest.Repost(ctx, *subject)
}

func (d *dispatcher) quote(ctx context.Context, postURL string, text string) (*model.PostRef, error) {
	quoted, err := d.resolvePost(ctx, postURL)
	if err != nil {
		return nil, err
	}
	return d.dest.Post(ctx, &model.Draft{Text: text, Quote: quoted})
}

func (d *dispatcher) external(ctx context.Context, card *model.Card, text string) (*model.PostRef, error) {
	embed := &model.EmbedExternal{
		URL:         card.URL,
		Title:       card.Title,
		Description: card.Description,
	}
	if card.Image != nil {
		thumb, err := d.dest.UploadBlob(ctx, card.Image.Data, card.Image.ContentType)
		if err != nil {
			return nil, fmt.Errorf("uploading card image: %w", err)
		}
		embed.Thumb = thumb
	}
	log.Debugf("external embed %s (%s)", card.URL, card.ProviderName)
	return d.dest.Post(ctx, &model.Draft{Text: text, External: embed})
}

func (d *dispatcher) images(ctx context.Context, attachments []model.Image, text string) (*model.PostRef, error) {
	if len(attachments) > maxImages {
		log.Warnf("%d images attached, only the first %d are posted", len(attachments), maxImages)
		attachments = attachments[:maxImages]
	}

	images := make([]model.EmbedImage, 0, len(attachments))
	for i, image := range attachments {
		blob, err := d.dest.UploadBlob(ctx, image.Data, image.ContentType)
		if err != nil {
			return nil, fmt.Errorf("uploading image %d: %w", i, err)
		}
		images = append(images, model.EmbedImage{
			Blob:   blob,
			Width:  image.Width,
			Height: image.Height,
		})
	}
	return d.dest.Post(ctx, &model.Draft{Text: text, Images: images})
}
