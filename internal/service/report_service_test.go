package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
)

type mockReportGateway struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (m *mockReportGateway) FetchReport(ctx context.Context, session models.Session, name string, query url.Values) (json.RawMessage, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.payload, nil
}

func TestReportFetchWithoutCache(t *testing.T) {
	gw := &mockReportGateway{payload: json.RawMessage(`{"present_rate":0.93}`)}
	svc := NewReportService(gw, nil, time.Minute, nil, zap.NewNop())
	session := models.Session{UserID: "u1", Role: models.RoleCenterAdmin, CenterID: "c1"}

	payload, cached, err := svc.Fetch(context.Background(), session, "monthly-attendance", url.Values{"month": {"2026-03"}})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.JSONEq(t, `{"present_rate":0.93}`, string(payload))
	assert.Equal(t, 1, gw.calls)

	// Every fetch hits the gateway when no cache is wired.
	_, cached, err = svc.Fetch(context.Background(), session, "monthly-attendance", url.Values{"month": {"2026-03"}})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, gw.calls)
}

func TestReportFetchPropagatesErrors(t *testing.T) {
	gw := &mockReportGateway{err: appErrors.ErrNetwork}
	svc := NewReportService(gw, nil, time.Minute, nil, zap.NewNop())

	_, _, err := svc.Fetch(context.Background(), models.Session{UserID: "u1"}, "monthly-fees", nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNetwork))
}

func TestReportCacheKeyScoping(t *testing.T) {
	svc := NewReportService(&mockReportGateway{}, nil, time.Minute, nil, zap.NewNop())

	admin := models.Session{UserID: "u1", Role: models.RoleCenterAdmin, CenterID: "c1"}
	parent := models.Session{UserID: "p1", Role: models.RoleParent, CenterID: "c1"}
	otherCenter := models.Session{UserID: "u2", Role: models.RoleCenterAdmin, CenterID: "c2"}
	query := url.Values{"month": {"2026-03"}}

	adminKey := svc.cacheKey(admin, "monthly-fees", query)
	assert.NotEqual(t, adminKey, svc.cacheKey(parent, "monthly-fees", query))
	assert.NotEqual(t, adminKey, svc.cacheKey(otherCenter, "monthly-fees", query))
	assert.NotEqual(t, adminKey, svc.cacheKey(admin, "monthly-fees", url.Values{"month": {"2026-04"}}))
	assert.Equal(t, adminKey, svc.cacheKey(admin, "monthly-fees", url.Values{"month": {"2026-03"}}))
}
