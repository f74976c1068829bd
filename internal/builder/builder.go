package builder

import (
	"context"
	"fmt"

	"uk.co.dudmesh.crosspost/internal/content"
	"uk.co.dudmesh.crosspost/internal/model"
)

type Decoder interface {
	Decode(fragment string) (*content.Decoded, error)
}

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.FetchedImage, error)
}

type builder struct {
	decoder Decoder
	images  ImageFetcher
}

func New(decoder Decoder, images ImageFetcher) *builder {
	return &builder{decoder: decoder, images: images}
}

// Build turns a raw status into a Post. Any image fetch failure fails the
// whole post.
func (b *builder) Build(ctx context.Context, status *model.Status) (*model.Post, error) {
	decoded, err := b.decoder.Decode(status.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding status %s: %w", status.ID, err)
	}

	post := &model.Post{
		StatusID:  status.ID,
		CreatedAt: status.CreatedAt,
		Content:   decoded.Text,
		Command:   decoded.Command,
	}

	if status.Card != nil && decoded.Command == nil && decoded.Mention == "" {
		post.Card, err = b.card(ctx, status.Card)
		if err != nil {
			return nil, err
		}
	}

	for _, media := range status.MediaAttachments {
		if media.Type != model.MediaTypeImage {
			continue
		}
		fetched, err := b.images.Fetch(ctx, media.PreviewURL)
		if err != nil {
			return nil, fmt.Errorf("fetching attachment %s: %w", media.PreviewURL, err)
		}
		post.Attachments = append(post.Attachments, model.Image{
			URL:         media.PreviewURL,
			Width:       media.Width,
			Height:      media.Height,
			Data:        fetched.Data,
			ContentType: fetched.ContentType,
		})
	}

	return post, nil
}

func (b *builder) card(ctx context.Context, source *model.StatusCard) (*model.Card, error) {
	card := &model.Card{
		URL:          source.URL,
		Title:        source.Title,
		Description:  source.Description,
		ProviderName: source.ProviderName,
	}
	if source.Image == "" {
		return card, nil
	}

	fetched, err := b.images.Fetch(ctx, source.Image)
	if err != nil {
		return nil, fmt.Errorf("fetching card image %s: %w", source.Image, err)
	}
	card.Image = &model.Image{
		URL:         source.Image,
		Width:       source.Width,
		Height:      source.Height,
		Data:        fetched.Data,
		ContentType: fetched.ContentType,
	}
	return card, nil
}
