package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/contribution"
	"github.com/andygrunwald/fuelradar/internal/engine"
	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/merger"
	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/store/memory"
)

type fakeCache struct {
	ghosts []models.GhostStation
}

func (f *fakeCache) FetchGhostStations(context.Context, geo.Bounds) []models.GhostStation {
	return f.ghosts
}

func (f *fakeCache) ProviderName() string { return "overpass" }

func (f *fakeCache) ProviderStatus() models.ProviderStatus {
	return models.ProviderStatus{LastFetchSuccess: true, TotalRequests: 3}
}

func (f *fakeCache) Status(context.Context) models.CacheStatus {
	return models.CacheStatus{Backend: "memory", Hits: 2, Misses: 1, EntriesInCache: 1}
}

type fakeSchedule struct{ next time.Time }

func (f fakeSchedule) IsRunning() bool             { return true }
func (f fakeSchedule) NextReconcileAt() time.Time  { return f.next }
func (f fakeSchedule) LastReconcileAt() *time.Time { return nil }

type testServer struct {
	srv     *httptest.Server
	store   *memory.Store
	metrics *Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memory.New()
	cache := &fakeCache{ghosts: []models.GhostStation{
		{ID: "osm-node-7", Name: "Shell Station", Brand: models.BrandShell, Location: models.Location{Lat: 33.60, Lng: -7.62}},
	}}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	coordinator := contribution.New(st, zerolog.Nop())
	coordinator.SetRecorder(metrics)
	e := engine.New(st, merger.New(cache), coordinator, zerolog.Nop())

	status := NewStatusHandler(cache, fakeSchedule{next: time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)}, st, metrics)
	router := NewRouter(NewAPI(e, metrics, zerolog.Nop()), status, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	if _, err := st.UpsertStation(context.Background(), models.Station{
		ID:       "st-1",
		Name:     "Afriquia Maarif",
		Brand:    models.BrandAfriquia,
		Location: models.Location{Lat: 33.58, Lng: -7.64},
		Prices:   models.Prices{models.FuelDiesel: 13.45, models.FuelSansPlomb: 14.90},
	}); err != nil {
		t.Fatal(err)
	}

	return &testServer{srv: srv, store: st, metrics: metrics}
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

const viewportQuery = "south=33.55&west=-7.70&north=33.62&east=-7.60"

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetStations(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/v1/stations?"+viewportQuery)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	stations := decode[[]models.Station](t, resp)
	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(stations))
	}
	if stations[0].ID != "st-1" || stations[1].ID != "osm-node-7" || !stations[1].IsGhost {
		t.Errorf("unexpected stations: %+v", stations)
	}
}

func TestGetStationsBadRequest(t *testing.T) {
	ts := newTestServer(t)

	tests := []string{
		"/v1/stations",
		"/v1/stations?south=33.55&west=-7.70&north=33.62",
		"/v1/stations?south=abc&west=-7.70&north=33.62&east=-7.60",
		"/v1/stations?south=34&west=-7.70&north=33&east=-7.60",
		"/v1/stations?south=-80&west=-170&north=NaN&east=NaN",
		"/v1/stations?south=33.55&west=-7.70&north=Inf&east=-7.60",
	}
	for _, path := range tests {
		if resp := ts.get(t, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestNearbyStations(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/v1/stations/nearby?lat=33.60&lng=-7.62&limit=1&"+viewportQuery)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	nearby := decode[[]engine.NearbyStation](t, resp)
	if len(nearby) != 1 || nearby[0].ID != "osm-node-7" || nearby[0].DistanceMeters != 0 {
		t.Errorf("unexpected nearby: %+v", nearby)
	}

	if resp := ts.get(t, "/v1/stations/nearby?"+viewportQuery); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing origin: status = %d, want 400", resp.StatusCode)
	}
}

func TestPostReport(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/v1/reports", `{"userId":"u1","stationId":"st-1","fuelType":"Diesel","price":13.40,"reportType":"manual"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decode[contribution.Result](t, resp)
	if !res.Success || res.PointsEarned != 50 {
		t.Errorf("unexpected result: %+v", res)
	}

	got, _ := ts.store.GetStation(context.Background(), "st-1")
	if got.Prices[models.FuelDiesel] != 13.40 || got.Prices[models.FuelSansPlomb] != 14.90 {
		t.Errorf("prices = %v", got.Prices)
	}
	if n := testutil.ToFloat64(ts.metrics.ContributionsTotal.WithLabelValues("manual", "success")); n != 1 {
		t.Errorf("contributions metric = %v, want 1", n)
	}
}

func TestPostReportErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"userId":`, http.StatusBadRequest},
		{"invalid price", `{"userId":"u1","stationId":"st-1","fuelType":"Diesel","price":0,"reportType":"manual"}`, http.StatusBadRequest},
		{"unknown station", `{"userId":"u1","stationId":"nope","fuelType":"Diesel","price":13.4,"reportType":"manual"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := ts.post(t, "/v1/reports", tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestPostConfirmation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(t, "/v1/confirmations", `{"userId":"u2","stationId":"st-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decode[contribution.Result](t, resp)
	if !res.Success || res.PointsEarned != 10 {
		t.Errorf("unexpected result: %+v", res)
	}
	got, _ := ts.store.GetStation(context.Background(), "st-1")
	if got.Prices[models.FuelDiesel] != 13.45 {
		t.Errorf("confirmation changed prices: %v", got.Prices)
	}
}

func TestPostStation(t *testing.T) {
	ts := newTestServer(t)

	body := `{"userId":"u1","userName":"amina","userLevel":2,"brand":"winxo","location":{"lat":33.57,"lng":-7.66},"price":13.20}`
	resp := ts.post(t, "/v1/stations", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decode[contribution.Result](t, resp)
	if !res.Success || res.PointsEarned != 200 || res.StationID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := ts.store.GetStation(context.Background(), res.StationID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Brand != models.BrandWinxo || got.TrustScore != contribution.InitialTrustScore || got.IsGhost {
		t.Errorf("unexpected station: %+v", got)
	}

	rewards := decode[models.RewardState](t, ts.get(t, "/v1/users/u1/rewards"))
	if rewards.TotalPoints != 200 || rewards.Level != 2 {
		t.Errorf("unexpected rewards: %+v", rewards)
	}
}

func TestDistance(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/v1/distance?from_lat=0&from_lng=0&to_lat=0&to_lng=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[struct {
		Meters  float64 `json:"meters"`
		Minutes int     `json:"drivingTimeMinutes"`
	}](t, resp)
	if body.Meters < 111100 || body.Meters > 111300 {
		t.Errorf("meters = %v, want about 111195", body.Meters)
	}
	if body.Minutes != 223 {
		t.Errorf("minutes = %d, want 223", body.Minutes)
	}

	for _, path := range []string{
		"/v1/distance?from_lat=0",
		"/v1/distance?from_lat=NaN&from_lng=0&to_lat=0&to_lng=1",
		"/v1/distance?from_lat=0&from_lng=0&to_lat=0&to_lng=-Inf",
	} {
		if resp := ts.get(t, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status := decode[models.StatusResponse](t, resp)
	if status.Status != "healthy" || !status.Database.Connected || status.Database.TotalStations != 1 {
		t.Errorf("unexpected status: %+v", status)
	}
	if !status.SchedulerRunning || status.NextReconcileAt == nil {
		t.Errorf("unexpected scheduler status: %+v", status)
	}
	if p, ok := status.Providers["overpass"]; !ok || p.TotalRequests != 3 {
		t.Errorf("providers = %+v", status.Providers)
	}
	if status.Cache.Backend != "memory" || status.Cache.Hits != 2 {
		t.Errorf("cache = %+v", status.Cache)
	}
	if n := testutil.ToFloat64(ts.metrics.StationsStored); n != 1 {
		t.Errorf("stations gauge = %v, want 1", n)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/v1/stations?"+viewportQuery)

	resp := ts.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if n := testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("/v1/stations", "200")); n != 1 {
		t.Errorf("http requests metric = %v, want 1", n)
	}
}
