package model

import "time"

const MediaTypeImage = "image"

// Status is a raw source status as handed over by the source collaborator.
// Content is still HTML.
type Status struct {
	ID               StatusID
	URL              string
	CreatedAt        time.Time
	Content          string
	Card             *StatusCard
	MediaAttachments []StatusMedia
}

type StatusCard struct {
	URL          string
	Title        string
	Description  string
	ProviderName string
	Image        string
	Width        int
	Height       int
}

type StatusMedia struct {
	Type       string
	PreviewURL string
	Width      int // meta.small
	Height     int // meta.small
}

// FetchedImage is the result of the image-fetch collaborator.
type FetchedImage struct {
	Data        []byte
	ContentType string
}
