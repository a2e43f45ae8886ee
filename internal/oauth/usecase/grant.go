package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

const (
	paramGrantType  = "grant_type"
	paramGuestCode  = "guest_code"
	paramShareCode  = "share_code"
	paramResourceID = "resource_id"
)

type grantRequest struct {
	code       string
	resourceID string
}

type grantResult struct {
	principal entity.Principal
	// recordName is the principal name token management looks records up by.
	recordName string
	scopes     []string
	expiresAt  time.Time
	attributes map[string]any
	extra      map[string]string
}

// grantProvider is one extension grant: parse fails with invalid_request,
// resolve with invalid_grant or an infrastructure error.
type grantProvider interface {
	parse(params url.Values) (*grantRequest, error)
	resolve(ctx context.Context, req *grantRequest) (*grantResult, error)
}

// singleParam returns the value of a parameter sent exactly once and not
// blank.
func singleParam(params url.Values, name string) (string, bool) {
	vals := params[name]
	if len(vals) != 1 {
		return "", false
	}
	v := strings.TrimSpace(vals[0])
	return v, v != ""
}

func invalidGrant(err error) error {
	desc := "Invalid or expired code"
	if errors.Is(err, entity.ErrResourceMismatch) {
		desc = "Resource ID mismatch"
	}
	return entity.NewOAuth2Error(entity.ErrCodeInvalidGrant, desc).WithCause(err)
}

type guestGrant struct {
	codes *codeService[entity.GuestClaims]
}

func (g *guestGrant) parse(params url.Values) (*grantRequest, error) {
	code, ok := singleParam(params, paramGuestCode)
	if !ok {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: guest_code")
	}
	resourceID, ok := singleParam(params, paramResourceID)
	if !ok {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: resource_id")
	}
	return &grantRequest{code: code, resourceID: resourceID}, nil
}

func (g *guestGrant) resolve(ctx context.Context, req *grantRequest) (*grantResult, error) {
	dc, err := g.codes.validate(ctx, req.code, req.resourceID)
	if errors.Is(err, entity.ErrInvalidOrExpiredCode) || errors.Is(err, entity.ErrResourceMismatch) {
		return nil, invalidGrant(err)
	}
	if err != nil {
		return nil, err
	}

	guest := dc.Subject
	return &grantResult{
		principal: entity.Principal{
			Subject:     guest.Email,
			Name:        guest.Name,
			Email:       guest.Email,
			WorkspaceID: dc.WorkspaceID,
			Authorities: []string{entity.AuthorityGuest},
		},
		recordName: guest.Email,
		scopes:     dc.Scopes(),
		expiresAt:  dc.ExpiresAt,
		attributes: map[string]any{
			"resource_id":    dc.ResourceID,
			"resource_owner": guest.OwnerEmail,
			"guest_email":    guest.Email,
			"access_type":    entity.AccessTypeGuest,
			"workspace_id":   dc.WorkspaceID,
		},
		extra: map[string]string{
			"resource_id":    dc.ResourceID,
			"resource_owner": guest.OwnerEmail,
			"guest_email":    guest.Email,
			"name":           guest.Name,
			"email":          guest.Email,
			"access_type":    entity.AccessTypeGuest,
			"workspace_id":   dc.WorkspaceID,
		},
	}, nil
}

type userReader interface {
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
}

type shareGrant struct {
	codes *codeService[entity.ShareClaims]
	users userReader
}

func (g *shareGrant) parse(params url.Values) (*grantRequest, error) {
	code, ok := singleParam(params, paramShareCode)
	if !ok {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: share_code")
	}
	return &grantRequest{code: code}, nil
}

func (g *shareGrant) resolve(ctx context.Context, req *grantRequest) (*grantResult, error) {
	dc, err := g.codes.validate(ctx, req.code, "")
	if errors.Is(err, entity.ErrInvalidOrExpiredCode) {
		return nil, invalidGrant(err)
	}
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetUserByID(ctx, dc.Subject.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidGrant, "Shared user no longer exists").WithCause(err)
	}
	if err != nil {
		return nil, err
	}

	return &grantResult{
		principal: entity.Principal{
			Subject:     user.ID,
			Name:        user.FullName,
			Email:       user.Email,
			WorkspaceID: dc.WorkspaceID,
			Authorities: user.Roles,
		},
		recordName: user.Email,
		scopes:     dc.Scopes(),
		expiresAt:  dc.ExpiresAt,
		attributes: map[string]any{
			"resource_id":  dc.ResourceID,
			"sub":          user.ID,
			"email":        user.Email,
			"name":         user.FullName,
			"access_type":  entity.AccessTypeGuest,
			"workspace_id": dc.WorkspaceID,
		},
		extra: map[string]string{
			"resource_id":  dc.ResourceID,
			"sub":          user.ID,
			"email":        user.Email,
			"name":         user.FullName,
			"access_type":  entity.AccessTypeGuest,
			"workspace_id": dc.WorkspaceID,
		},
	}, nil
}
