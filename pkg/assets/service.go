package assets

import (
	"context"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
)

// Presigner signs object URLs. *S3Client implements it.
type Presigner interface {
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// MediaGetter loads media objects. *media.Store implements it.
type MediaGetter interface {
	Get(ctx context.Context, id int64) (*media.Media, error)
}

// Service gates presigned URL issuance on the visibility policy.
type Service struct {
	media     MediaGetter
	policy    *policy.Engine
	presigner Presigner
	urlExpiry time.Duration
}

// NewService creates an asset service.
func NewService(mediaStore MediaGetter, engine *policy.Engine, presigner Presigner, urlExpiry time.Duration) *Service {
	if urlExpiry <= 0 {
		urlExpiry = defaultURLExpiry
	}
	return &Service{
		media:     mediaStore,
		policy:    engine,
		presigner: presigner,
		urlExpiry: urlExpiry,
	}
}

// DownloadURL returns a presigned GET URL for the media file. The principal
// must be able to view the object, and — unless they can modify it — the
// object must allow downloads.
func (s *Service) DownloadURL(ctx context.Context, p *identity.Principal, mediaID int64) (string, error) {
	m, err := s.media.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}

	canView, err := s.policy.CanView(ctx, p, m)
	if err != nil {
		return "", err
	}
	if !canView {
		return "", apperr.PolicyViolationf("principal may not view media %d", mediaID)
	}

	if !m.AllowDownload {
		canModify, err := s.policy.CanModify(ctx, p, m)
		if err != nil {
			return "", err
		}
		if !canModify {
			return "", apperr.PolicyViolationf("media %d does not allow downloads", mediaID)
		}
	}

	return s.presigner.PresignDownload(ctx, m.FileKey, s.urlExpiry)
}

// UploadURL returns a presigned PUT URL for replacing the media file. Only
// principals who can modify the object may upload.
func (s *Service) UploadURL(ctx context.Context, p *identity.Principal, mediaID int64) (string, error) {
	m, err := s.media.Get(ctx, mediaID)
	if err != nil {
		return "", err
	}

	canModify, err := s.policy.CanModify(ctx, p, m)
	if err != nil {
		return "", err
	}
	if !canModify {
		return "", apperr.PolicyViolationf("principal may not modify media %d", mediaID)
	}

	return s.presigner.PresignUpload(ctx, m.FileKey, s.urlExpiry)
}
