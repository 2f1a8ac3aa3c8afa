package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/touchline/internal/domain/quota"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

type mockTierSource struct {
	mock.Mock
}

func (m *mockTierSource) FetchLimits(ctx context.Context, ident Identity) (quota.Limits, error) {
	args := m.Called(ctx, ident)
	limits, _ := args.Get(0).(quota.Limits)
	return limits, args.Error(1)
}

func TestLimitService_GuestNeverCallsSource(t *testing.T) {
	source := &mockTierSource{}
	service := NewLimitService(source, time.Minute, logging.NewNop())

	limits := service.Limits(t.Context(), guestUser())

	assert.Equal(t, quota.TierGuest, limits.Tier)
	source.AssertNotCalled(t, "FetchLimits", mock.Anything, mock.Anything)
}

func TestLimitService_CachesRemoteAnswer(t *testing.T) {
	source := &mockTierSource{}
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Defaults(quota.TierFree), nil).
		Once()
	service := NewLimitService(source, time.Minute, logging.NewNop())

	first := service.Limits(t.Context(), authenticatedUser())
	second := service.Limits(t.Context(), authenticatedUser())

	assert.Equal(t, quota.TierFree, first.Tier)
	assert.Equal(t, first, second)
	source.AssertExpectations(t)
}

func TestLimitService_FallsBackToLastKnownLimits(t *testing.T) {
	source := &mockTierSource{}
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Defaults(quota.TierPremium), nil).
		Once()
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Limits{}, errors.New("connection refused"))
	service := NewLimitService(source, time.Nanosecond, logging.NewNop())

	assert.Equal(t, quota.TierPremium, service.Limits(t.Context(), authenticatedUser()).Tier)
	time.Sleep(time.Millisecond)

	limits := service.Limits(t.Context(), authenticatedUser())
	assert.Equal(t, quota.TierPremium, limits.Tier, "stale premium limits beat guest defaults")
	source.AssertNumberOfCalls(t, "FetchLimits", 2)
}

func TestLimitService_FallsBackToGuestDefaults(t *testing.T) {
	source := &mockTierSource{}
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Limits{}, errors.New("connection refused"))
	service := NewLimitService(source, time.Minute, logging.NewNop())

	limits := service.Limits(t.Context(), authenticatedUser())

	assert.Equal(t, quota.Defaults(quota.TierGuest), limits)
}

func TestLimitService_FillsMissingResourcesFromTierDefaults(t *testing.T) {
	source := &mockTierSource{}
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Limits{Tier: quota.TierFree, Values: map[quota.Resource]int{quota.ResourceSeasons: 7}}, nil)
	service := NewLimitService(source, time.Minute, logging.NewNop())

	limits := service.Limits(t.Context(), authenticatedUser())

	assert.Equal(t, 7, limits.For(quota.ResourceSeasons))
	assert.Equal(t, quota.Defaults(quota.TierFree).For(quota.ResourceOwnedTeams), limits.For(quota.ResourceOwnedTeams))
}

func TestLimitService_InvalidateRefetches(t *testing.T) {
	source := &mockTierSource{}
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Defaults(quota.TierFree), nil).
		Once()
	source.On("FetchLimits", mock.Anything, authenticatedUser()).
		Return(quota.Defaults(quota.TierPremium), nil).
		Once()
	service := NewLimitService(source, time.Minute, logging.NewNop())

	assert.Equal(t, quota.TierFree, service.Limits(t.Context(), authenticatedUser()).Tier)
	service.Invalidate(t.Context(), "user-1")
	assert.Equal(t, quota.TierPremium, service.Limits(t.Context(), authenticatedUser()).Tier)
	source.AssertExpectations(t)
}
