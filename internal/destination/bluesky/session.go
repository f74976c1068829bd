package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/model"
)

// refreshMargin is how close to expiry an access token may get before the
// session is refreshed ahead of a write.
const refreshMargin = 2 * time.Minute

var errNotLoggedIn = errors.New("not logged in")

var notFoundErrors = map[string]bool{
	"NotFound":       true,
	"RecordNotFound": true,
	"InvalidRequest": true,
}

func (c *client) setSession(accessJwt string, refreshJwt string, handle string, did string) {
	c.xrpc.Auth = &xrpc.AuthInfo{
		AccessJwt:  accessJwt,
		RefreshJwt: refreshJwt,
		Handle:     handle,
		Did:        did,
	}
	c.expiresAt = tokenExpiry(accessJwt)
}

func (c *client) ensureSession(ctx context.Context) error {
	if c.xrpc.Auth == nil {
		return errNotLoggedIn
	}
	if c.expiresAt.IsZero() || c.expiresAt.Sub(c.now()) > refreshMargin {
		return nil
	}

	previous := *c.xrpc.Auth
	c.xrpc.Auth.AccessJwt = previous.RefreshJwt
	out, err := comatproto.ServerRefreshSession(ctx, c.xrpc)
	if err != nil {
		c.xrpc.Auth = &previous
		return fmt.Errorf("refreshing session: %w", writeError(err))
	}
	c.setSession(out.AccessJwt, out.RefreshJwt, out.Handle, out.Did)
	log.Infof("session refreshed, valid until %s", c.expiresAt.Format(time.RFC3339))
	return nil
}

// tokenExpiry reads exp from an access token without verifying it; the PDS
// is the one that verifies. Zero when unknown.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		log.Debugf("access token expiry unknown, session will not be refreshed: %v", err)
		return time.Time{}
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(exp), 0)
}

func xrpcError(err error) (*xrpc.Error, string) {
	var xe *xrpc.Error
	if !errors.As(err, &xe) {
		return nil, ""
	}
	if body, ok := xe.Wrapped.(*xrpc.XRPCError); ok {
		return xe, body.ErrStr
	}
	return xe, ""
}

// readError maps lookups the destination could not satisfy to
// model.ErrorNotFound.
func readError(err error) error {
	xe, name := xrpcError(err)
	if xe != nil && (xe.StatusCode == http.StatusBadRequest || xe.StatusCode == http.StatusNotFound) && notFoundErrors[name] {
		return fmt.Errorf("%w: %v", model.ErrorNotFound, err)
	}
	return err
}

// writeError marks 4xx responses as rejected so the failure can be told
// apart from a transient one.
func writeError(err error) error {
	xe, _ := xrpcError(err)
	if xe != nil && xe.StatusCode >= 400 && xe.StatusCode < 500 {
		return &model.RejectedError{StatusCode: xe.StatusCode, Err: err}
	}
	return err
}
