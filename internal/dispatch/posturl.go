package dispatch

import (
	"fmt"
	"net/url"
	"strings"

	"uk.co.dudmesh.crosspost/internal/model"
)

type postLocator struct {
	Handle string
	Key    string
}

// parsePostURL accepts exactly https://{host}/profile/{handle}/post/{key}.
func parsePostURL(raw string, host string) (*postLocator, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrorInvalidPostURL, err)
	}
	if u.Scheme != "https" || u.Host != host {
		return nil, fmt.Errorf("%w: %s", model.ErrorInvalidPostURL, raw)
	}

	segments := strings.Split(u.Path, "/")
	if len(segments) != 5 || segments[0] != "" || segments[1] != "profile" || segments[3] != "post" {
		return nil, fmt.Errorf("%w: %s", model.ErrorInvalidPostURL, raw)
	}
	if segments[2] == "" || segments[4] == "" {
		return nil, fmt.Errorf("%w: %s", model.ErrorInvalidPostURL, raw)
	}

	return &postLocator{Handle: segments[2], Key: segments[4]}, nil
}
