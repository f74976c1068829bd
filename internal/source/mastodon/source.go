package mastodon

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"sort"

	"github.com/labstack/gommon/log"
	"github.com/mattn/go-mastodon"

	"uk.co.dudmesh.crosspost/internal/model"
)

const pageSize = 40

type source struct {
	client *mastodon.Client
}

func New(server string, accessToken string, httpClient *http.Client) *source {
	client := mastodon.NewClient(&mastodon.Config{
		Server:      server,
		AccessToken: accessToken,
	})
	if httpClient != nil {
		client.Client = *httpClient
	}
	return &source{client: client}
}

// StatusesSince yields the user's own statuses newer than minID, oldest
// first, skipping reblogs. Pages are fetched lazily as the caller pulls.
func (s *source) StatusesSince(ctx context.Context, userID string, minID model.StatusID) iter.Seq2[*model.Status, error] {
	return func(yield func(*model.Status, error) bool) {
		cursor := mastodon.ID(minID)
		for {
			page, err := s.client.GetAccountStatuses(ctx, mastodon.ID(userID), &mastodon.Pagination{
				MinID: cursor,
				Limit: pageSize,
			})
			if err != nil {
				yield(nil, fmt.Errorf("listing statuses since %s: %w", cursor, err))
				return
			}
			if len(page) == 0 {
				return
			}

			sort.Slice(page, func(i, j int) bool {
				return olderThan(page[i].ID, page[j].ID)
			})
			for _, status := range page {
				if status.Reblog != nil {
					log.Debugf("skipping reblog %s", status.ID)
					continue
				}
				if !yield(convert(status), nil) {
					return
				}
			}

			cursor = page[len(page)-1].ID
			if len(page) < pageSize {
				return
			}
		}
	}
}

// olderThan compares numeric status ids without parsing them.
func olderThan(a, b mastodon.ID) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func convert(status *mastodon.Status) *model.Status {
	converted := &model.Status{
		ID:        model.StatusID(status.ID),
		URL:       status.URL,
		CreatedAt: status.CreatedAt,
		Content:   status.Content,
	}

	if card := status.Card; card != nil {
		converted.Card = &model.StatusCard{
			URL:          card.URL,
			Title:        card.Title,
			Description:  card.Description,
			ProviderName: card.ProviderName,
			Image:        card.Image,
			Width:        int(card.Width),
			Height:       int(card.Height),
		}
	}

	for _, attachment := range status.MediaAttachments {
		converted.MediaAttachments = append(converted.MediaAttachments, model.StatusMedia{
			Type:       attachment.Type,
			PreviewURL: attachment.PreviewURL,
			Width:      int(attachment.Meta.Small.Width),
			Height:     int(attachment.Meta.Small.Height),
		})
	}

	return converted
}
