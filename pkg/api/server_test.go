package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/transitlog/pkg/clock"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/feeds"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/journeyview"
	"github.com/travigo/transitlog/pkg/metrics"
)

var wallClock = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	collector := metrics.NewCollector()

	server := &Server{
		Store:   journeystore.NewStore().WithMetrics(collector),
		Builder: journeyview.NewBuilder(),
		Scheduler: clock.NewScheduler(clock.Options{
			TimeSource: clock.NewManualClock(wallClock),
			Metrics:    collector,
		}),
		Metrics: collector,
	}
	server.Setup()

	return server
}

func position(unixTime int64, lat float64, delay int) *ctdf.PositionEvent {
	lng := 24.94
	return &ctdf.PositionEvent{
		Lat:            &lat,
		Lng:            &lng,
		RecordedAtUnix: unixTime,
		Delay:          delay,
	}
}

func testDocument() feeds.Document {
	base := wallClock.Add(-time.Hour).Unix()

	return feeds.Document{
		Journeys: []*ctdf.Journey{
			{
				JourneyIdentity: ctdf.JourneyIdentity{
					JourneyType:     ctdf.JourneyTypeJourney,
					RouteID:         "1010",
					Direction:       "2",
					DepartureDate:   "2026-03-02",
					DepartureTime:   "07:30:00",
					UniqueVehicleID: "22/1",
				},
				PositionEvents: []*ctdf.PositionEvent{
					position(base+20, 60.1710, 30),
					position(base, 60.1700, 0),
					position(base+40, 60.1720, 60),
				},
			},
		},
	}
}

func doRequest(t *testing.T, server *Server, method string, target string, body io.Reader) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, payload
}

func postDocument(t *testing.T, server *Server, producer string, document feeds.Document) (int, []byte) {
	t.Helper()

	encoded, err := json.Marshal(document)
	require.NoError(t, err)

	return doRequest(t, server, http.MethodPost, "/core/journeys/"+producer, bytes.NewReader(encoded))
}

func journeyPath(key string) string {
	return "/core/journeys/" + url.PathEscape(key)
}

func TestVersion(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodGet, "/core/version", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"v0.1"}`, string(body))
}

func TestHealthWithoutRedis(t *testing.T) {
	server := newTestServer(t)

	status, body := doRequest(t, server, http.MethodGet, "/core/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, _ = doRequest(t, server, http.MethodGet, "/core/queues", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReplaceAndGetJourney(t *testing.T) {
	server := newTestServer(t)

	status, body := postDocument(t, server, "selected", testDocument())
	require.Equal(t, http.StatusOK, status, string(body))

	var replaced struct {
		Producer string `json:"producer"`
		Journeys int    `json:"journeys"`
		Merged   int    `json:"merged"`
	}
	require.NoError(t, json.Unmarshal(body, &replaced))
	assert.Equal(t, "selected", replaced.Producer)
	assert.Equal(t, 1, replaced.Journeys)
	assert.Equal(t, 1, replaced.Merged)

	key := "1010:2:2026-03-02:07:30:00:22/1"

	status, body = doRequest(t, server, http.MethodGet, journeyPath(key)+"?detailed=true", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var journey struct {
		ID              string `json:"id"`
		UniqueVehicleID string `json:"uniqueVehicleId"`
		Positions       []struct {
			RecordedAtUnix int64  `json:"recordedAtUnix"`
			JourneyType    string `json:"journeyType"`
		} `json:"vehiclePositions"`
	}
	require.NoError(t, json.Unmarshal(body, &journey))
	assert.Equal(t, key, journey.ID)
	assert.Equal(t, "22/1", journey.UniqueVehicleID)
	require.Len(t, journey.Positions, 3)
	assert.Less(t, journey.Positions[0].RecordedAtUnix, journey.Positions[1].RecordedAtUnix)
	assert.Less(t, journey.Positions[1].RecordedAtUnix, journey.Positions[2].RecordedAtUnix)
	assert.Equal(t, ctdf.JourneyTypeJourney, journey.Positions[0].JourneyType)

	status, body = doRequest(t, server, http.MethodGet, journeyPath(key), nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(body), "vehiclePositions")

	status, _ = doRequest(t, server, http.MethodGet, journeyPath("missing"), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReplaceErrors(t *testing.T) {
	server := newTestServer(t)

	status, _ := postDocument(t, server, "graphql", testDocument())
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, server, http.MethodPost, "/core/journeys/area", strings.NewReader("{not json"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestJourneyViewAtTime(t *testing.T) {
	server := newTestServer(t)

	status, _ := postDocument(t, server, "area", testDocument())
	require.Equal(t, http.StatusOK, status)

	key := "1010:2:2026-03-02:07:30:00:22/1"
	base := wallClock.Add(-time.Hour).Unix()

	status, body := doRequest(t, server, http.MethodGet, journeyPath(key)+"/view?detailed=true&time="+url.QueryEscape(time.Unix(base+21, 0).UTC().Format(time.RFC3339)), nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var view struct {
		Key         string `json:"key"`
		MarkerEvent *struct {
			RecordedAtUnix int64 `json:"recordedAtUnix"`
		} `json:"markerEvent"`
		CurrentEvent *struct {
			RecordedAtUnix int64 `json:"recordedAtUnix"`
		} `json:"currentEvent"`
		DelayChunks []struct {
			Label string `json:"label"`
		} `json:"delayChunks"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, key, view.Key)
	require.NotNil(t, view.MarkerEvent)
	assert.Equal(t, base+20, view.MarkerEvent.RecordedAtUnix)
	require.NotNil(t, view.CurrentEvent)
	assert.Equal(t, base+20, view.CurrentEvent.RecordedAtUnix)
	assert.NotEmpty(t, view.DelayChunks)

	status, _ = doRequest(t, server, http.MethodGet, journeyPath(key)+"/view?time=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestClockRoutes(t *testing.T) {
	server := newTestServer(t)

	var state clock.State

	status, body := doRequest(t, server, http.MethodGet, "/core/clock", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, clock.ModeManual, state.Mode)
	assert.True(t, state.IsCurrent)
	assert.True(t, state.CurrentTime.Equal(wallClock))

	scrubbed := wallClock.Add(-30 * time.Minute)
	status, body = doRequest(t, server, http.MethodPost, "/core/clock/time?time="+url.QueryEscape(scrubbed.Format(time.RFC3339)), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &state))
	assert.False(t, state.IsCurrent)
	assert.True(t, state.CurrentTime.Equal(scrubbed))

	status, _ = doRequest(t, server, http.MethodPost, "/core/clock/time", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doRequest(t, server, http.MethodPost, "/core/clock/live", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, clock.ModeLive, state.Mode)

	status, body = doRequest(t, server, http.MethodPost, "/core/clock/visibility?foreground=false", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.False(t, state.Foreground)

	status, body = doRequest(t, server, http.MethodPost, "/core/clock/manual", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, clock.ModeManual, state.Mode)

	status, body = doRequest(t, server, http.MethodPost, "/core/clock/now", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.True(t, state.IsCurrent)
	assert.True(t, state.CurrentTime.Equal(wallClock))
}

func TestManualUpdateRefreshesViews(t *testing.T) {
	server := newTestServer(t)

	status, _ := postDocument(t, server, "ingest", testDocument())
	require.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, server, http.MethodGet, "/core/views", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(body), "22/1")

	status, _ = doRequest(t, server, http.MethodPost, "/core/clock/update", nil)
	require.Equal(t, http.StatusOK, status)

	views := server.Views()
	require.Len(t, views, 1)
	assert.Equal(t, "22/1", views[0].UniqueVehicleID)
	assert.True(t, views[0].QueryTime.Equal(wallClock))

	status, body = doRequest(t, server, http.MethodGet, "/core/views", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"uniqueVehicleId":"22/1"`)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	server.Scheduler.ManualUpdate()

	status, body := doRequest(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "transitlog_clock_update_passes_total")
}
