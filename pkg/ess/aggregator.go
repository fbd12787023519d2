package ess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/types"
)

// Endpoints are the portal URLs the Aggregator reads from.
type Endpoints struct {
	// Overview returns now/today values for every metric key.
	Overview string
	// Status returns the lifetime value of a single metric key.
	Status string
}

// EndpointsFromBase returns the endpoints below the portal's status API base,
// e.g. https://mein-senec.de/endkunde/api/status.
func EndpointsFromBase(base string) (Endpoints, error) {
	overview, err := url.JoinPath(base, "getstatusoverview.php")
	if err != nil {
		return Endpoints{}, err
	}
	status, err := url.JoinPath(base, "getstatus.php")
	if err != nil {
		return Endpoints{}, err
	}
	return Endpoints{Overview: overview, Status: status}, nil
}

// Aggregator reads telemetry for one installation over an authenticated
// Session and keeps the latest values in Buckets.
type Aggregator struct {
	session        *Session
	installationID string
	endpoints      Endpoints
	buckets        types.Buckets
}

// NewAggregator returns an Aggregator with empty buckets.
func NewAggregator(session *Session, installationID string, endpoints Endpoints) *Aggregator {
	return &Aggregator{
		session:        session,
		installationID: installationID,
		endpoints:      endpoints,
		buckets:        types.NewBuckets(),
	}
}

// Buckets returns a copy of the current values.
func (a *Aggregator) Buckets() types.Buckets {
	return a.buckets.Clone()
}

type overviewEntry struct {
	Now   *float64 `json:"now"`
	Today *float64 `json:"today"`
}

type statusResult struct {
	FullKWh *float64 `json:"fullkwh"`
}

// Refresh fetches the overview (now/today for every key) and then the lifetime
// total of each standard key, one request per key. It returns a copy of the
// buckets after the attempt, including on error.
//
// A non-200 response invalidates the session and returns ErrSessionExpired
// without making any further requests. Values written before the failure are
// kept, so a failed refresh can leave a mix of new and previous values.
//
// Refresh makes no requests and returns ErrNotAuthenticated if the session
// isn't authenticated.
func (a *Aggregator) Refresh(ctx context.Context) (types.Buckets, error) {
	if !a.session.IsAuthenticated() {
		return a.Buckets(), ErrNotAuthenticated
	}

	if err := a.refreshOverview(ctx); err != nil {
		return a.Buckets(), err
	}
	if err := a.refreshTotals(ctx); err != nil {
		return a.Buckets(), err
	}
	return a.Buckets(), nil
}

func (a *Aggregator) refreshOverview(ctx context.Context) error {
	params := url.Values{}
	params.Set("anlageNummer", a.installationID)

	// the overview contains other fields (timestamps, state strings) besides
	// the metric objects so only decode the keys we know about. Some keys may
	// be missing but an overview without any of them is not an overview.
	var raw map[string]json.RawMessage
	if err := a.getJSON(ctx, a.endpoints.Overview, params, &raw); err != nil {
		return fmt.Errorf("overview failed: %w", err)
	}

	entries := make(map[types.MetricKey]overviewEntry, len(raw))
	for _, key := range types.AllKeys() {
		msg, ok := raw[string(key)]
		if !ok {
			log.Ctx(ctx).DebugContext(ctx, "senec overview missing key", slog.String("key", string(key)))
			continue
		}
		var e overviewEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			a.session.Invalidate()
			return fmt.Errorf("%w: overview key %s: %w", ErrMalformedResponse, key, err)
		}
		if e.Now == nil || e.Today == nil {
			a.session.Invalidate()
			return fmt.Errorf("%w: overview key %s is missing now or today", ErrMalformedResponse, key)
		}
		entries[key] = e
	}
	if len(entries) == 0 {
		a.session.Invalidate()
		return fmt.Errorf("%w: overview has none of the known keys", ErrMalformedResponse)
	}

	for key, e := range entries {
		if key.IsExtra() {
			a.buckets.Battery[key.Now()] = *e.Now
			a.buckets.Battery[key.Today()] = *e.Today
		} else {
			a.buckets.Power[key.Now()] = *e.Now
			a.buckets.Energy[key.Today()] = *e.Today
		}
	}
	return nil
}

func (a *Aggregator) refreshTotals(ctx context.Context) error {
	for _, key := range types.StandardKeys {
		params := url.Values{}
		params.Set("type", string(key))
		params.Set("period", "all")
		params.Set("anlageNummer", a.installationID)

		var res statusResult
		if err := a.getJSON(ctx, a.endpoints.Status, params, &res); err != nil {
			return fmt.Errorf("total for %s failed: %w", key, err)
		}
		if res.FullKWh == nil {
			a.session.Invalidate()
			return fmt.Errorf("%w: status for %s is missing fullkwh", ErrMalformedResponse, key)
		}
		a.buckets.Energy[key.Total()] = *res.FullKWh
	}
	return nil
}

// getJSON performs an authenticated GET and decodes the body into dest. Any
// non-200 status or undecodable body invalidates the session. The portal
// answers with its login page instead of JSON once the cookies are stale, so
// a decode failure is treated the same way.
func (a *Aggregator) getJSON(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := a.session.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		a.session.Invalidate()
		log.Ctx(ctx).InfoContext(ctx, "senec request failed, session expired", slog.String("url", endpoint), slog.Int("status", resp.StatusCode))
		return &StatusError{
			Kind:       ErrSessionExpired,
			Op:         "GET",
			URL:        endpoint,
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		a.session.Invalidate()
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode senec response", slog.String("url", endpoint), slog.Any("error", err))
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, endpoint, err)
	}
	return nil
}
