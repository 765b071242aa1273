package bulk

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mediacms-io/mediacms-go/pkg/apperr"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
)

const defaultWorkers = 8

// Service executes bulk actions.
type Service struct {
	media     *media.Store
	playlists *media.PlaylistStore
	policy    *policy.Engine
	workers   int
	metrics   *observability.Metrics
}

// NewService creates a bulk action service.
func NewService(mediaStore *media.Store, playlists *media.PlaylistStore, engine *policy.Engine) *Service {
	return &Service{
		media:     mediaStore,
		playlists: playlists,
		policy:    engine,
		workers:   defaultWorkers,
	}
}

// Apply runs one action over the requested ids. Only the subset that exists
// and that the actor may modify is operated on; the rest is excluded from
// the succeeded count without failing the batch. Item-level storage errors
// are accumulated in the result.
func (s *Service) Apply(ctx context.Context, p *identity.Principal, ids []int64, action Action, params Params) (*Result, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}
	if err := params.validate(action); err != nil {
		return nil, err
	}
	if p.IsAnonymous() {
		return nil, apperr.PolicyViolationf("bulk actions require a signed-in principal")
	}

	result := &Result{Requested: len(ids)}

	targets, err := s.authorize(ctx, p, ids, result)
	if err != nil {
		return nil, err
	}

	apply, sequential, err := s.itemFn(ctx, p, action, params)
	if err != nil {
		return nil, err
	}

	if sequential {
		s.applySequential(ctx, targets, apply, result)
	} else {
		s.applyConcurrent(ctx, targets, apply, result)
	}

	s.observe(action, result)
	return result, nil
}

// SetMetrics attaches bulk action counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// observe counts one completed batch and its per-item outcomes.
func (s *Service) observe(action Action, result *Result) {
	if s.metrics == nil {
		return
	}
	a := string(action)
	s.metrics.BulkActionsTotal.WithLabelValues(a).Inc()

	outcomes := s.metrics.BulkItemOutcomesTotal
	outcomes.WithLabelValues(a, "succeeded").Add(float64(result.Succeeded))
	outcomes.WithLabelValues(a, "excluded").Add(float64(len(result.Excluded)))
	outcomes.WithLabelValues(a, "skipped").Add(float64(len(result.Skipped)))
	outcomes.WithLabelValues(a, "failed").Add(float64(len(result.Failures)))
}

// authorize resolves the requested ids to the existing, modifiable subset,
// preserving request order. Everything else lands in Excluded.
func (s *Service) authorize(ctx context.Context, p *identity.Principal, ids []int64, result *Result) ([]*media.Media, error) {
	found, err := s.media.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*media.Media, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	targets := make([]*media.Media, 0, len(found))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		m, ok := byID[id]
		if !ok {
			result.exclude(id)
			continue
		}
		allowed, err := s.policy.CanModify(ctx, p, m)
		if err != nil {
			return nil, err
		}
		if !allowed {
			result.exclude(id)
			continue
		}
		targets = append(targets, m)
	}
	return targets, nil
}

// itemFn returns the per-item mutation for the action and whether the items
// must be applied sequentially. Playlist mutations are sequential so the
// capacity check and position assignment stay deterministic.
func (s *Service) itemFn(ctx context.Context, p *identity.Principal, action Action, params Params) (itemFn, bool, error) {
	switch action {
	case ActionEnableComments:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.SetComments(ctx, m.ID, true)
		}, false, nil
	case ActionDisableComments:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.SetComments(ctx, m.ID, false)
		}, false, nil
	case ActionEnableDownload:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.SetDownload(ctx, m.ID, true)
		}, false, nil
	case ActionDisableDownload:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.SetDownload(ctx, m.ID, false)
		}, false, nil
	case ActionDelete:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.Delete(ctx, m.ID)
		}, false, nil
	case ActionChangeOwner:
		return func(ctx context.Context, m *media.Media) error {
			return s.media.SetOwner(ctx, m.ID, params.NewOwnerID)
		}, false, nil
	case ActionCopy:
		return func(ctx context.Context, m *media.Media) error {
			_, err := s.media.Copy(ctx, m.ID, p.UserID())
			return err
		}, false, nil
	case ActionSetState:
		state := params.State
		return func(ctx context.Context, m *media.Media) error {
			_, err := s.media.ApplyTransition(ctx, m.ID, media.Transition{State: &state}, p)
			return err
		}, false, nil
	case ActionAddToPlaylist, ActionRemoveFromPlaylist:
		if err := s.checkPlaylist(ctx, p, params.PlaylistID); err != nil {
			return nil, false, err
		}
		maxItems := s.policy.Configuration().MaxItemsPerPlaylist
		if action == ActionAddToPlaylist {
			return func(ctx context.Context, m *media.Media) error {
				return s.playlists.AddMedia(ctx, params.PlaylistID, m.ID, maxItems)
			}, true, nil
		}
		return func(ctx context.Context, m *media.Media) error {
			return s.playlists.RemoveMedia(ctx, params.PlaylistID, m.ID)
		}, true, nil
	}
	return nil, false, apperr.InvalidArgumentf("invalid bulk action %q", action)
}

// checkPlaylist verifies the target playlist exists and the actor may
// modify it. Unlike batch items this is the action's container, so a
// failure here fails the whole request.
func (s *Service) checkPlaylist(ctx context.Context, p *identity.Principal, playlistID int64) error {
	pl, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		return err
	}
	if !s.policy.CanModifyPlaylist(p, pl) {
		return apperr.PolicyViolationf("principal may not modify playlist %d", playlistID)
	}
	return nil
}

func (s *Service) applySequential(ctx context.Context, targets []*media.Media, apply itemFn, result *Result) {
	for _, m := range targets {
		if err := apply(ctx, m); err != nil {
			if apperr.IsCapacityExceeded(err) {
				result.skip(m.ID)
				continue
			}
			result.fail(m.ID, err)
			continue
		}
		result.succeed()
	}
}

func (s *Service) applyConcurrent(ctx context.Context, targets []*media.Media, apply itemFn, result *Result) {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, m := range targets {
		m := m
		g.Go(func() error {
			err := apply(ctx, m)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Item failures are accumulated, never propagated, so one
				// bad item cannot cancel the rest of the batch.
				result.fail(m.ID, err)
				return nil
			}
			result.succeed()
			return nil
		})
	}
	g.Wait()
}
