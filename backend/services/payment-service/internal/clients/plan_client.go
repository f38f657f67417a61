package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PlanStatus is the result of a plan lookup.
type PlanStatus int

const (
	// PlanUnknown means the plan service could not give an answer.
	PlanUnknown PlanStatus = iota
	PlanActive
	PlanInactive
)

func (s PlanStatus) String() string {
	switch s {
	case PlanActive:
		return "active"
	case PlanInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Active collapses the status to a boolean; unknown counts as no plan.
func (s PlanStatus) Active() bool {
	return s == PlanActive
}

// PlanCache stores definite plan answers.
type PlanCache interface {
	Get(ctx context.Context, plate string) (active bool, found bool, err error)
	Set(ctx context.Context, plate string, active bool) error
}

// PlanLookupObserver records lookup results.
type PlanLookupObserver interface {
	ObservePlanLookup(result string)
}

// PlanClient queries the user service for a plate's subscription plan.
type PlanClient struct {
	base     *BaseClient
	timeout  time.Duration
	cache    PlanCache
	observer PlanLookupObserver
	logger   *zap.Logger
}

// PlanClientOption customises PlanClient.
type PlanClientOption func(*PlanClient)

// WithPlanCache puts a cache in front of the HTTP lookup.
func WithPlanCache(cache PlanCache) PlanClientOption {
	return func(c *PlanClient) { c.cache = cache }
}

// WithPlanObserver records lookup results.
func WithPlanObserver(o PlanLookupObserver) PlanClientOption {
	return func(c *PlanClient) { c.observer = o }
}

// NewPlanClient returns client. timeout bounds each lookup, including the cache round trip.
func NewPlanClient(baseURL string, httpClient HTTPDoer, timeout time.Duration, logger *zap.Logger, opts ...PlanClientOption) *PlanClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	c := &PlanClient{
		base:    NewBaseClient(baseURL, httpClient),
		timeout: timeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsPlanActive reports whether the plate has an active plan. Failures read as false.
func (c *PlanClient) IsPlanActive(ctx context.Context, plate string) bool {
	return c.Lookup(ctx, plate).Active()
}

// Lookup returns the plan status. It never returns an error: timeouts, transport failures,
// non-200 answers and malformed bodies all yield PlanUnknown.
func (c *PlanClient) Lookup(ctx context.Context, plate string) PlanStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.cache != nil {
		active, found, err := c.cache.Get(ctx, plate)
		if err != nil {
			c.logger.Debug("plan cache read failed", zap.String("plate", plate), zap.Error(err))
		} else if found {
			c.observe("cache_hit")
			if active {
				return PlanActive
			}
			return PlanInactive
		}
	}

	active, err := c.fetch(ctx, plate)
	if err != nil {
		c.logger.Warn("plan service unavailable, treating plate as without plan",
			zap.String("plate", plate),
			zap.Error(err),
		)
		c.observe("unknown")
		return PlanUnknown
	}

	status := PlanInactive
	if active {
		status = PlanActive
	}
	c.observe(status.String())

	if c.cache != nil {
		if err := c.cache.Set(ctx, plate, active); err != nil {
			c.logger.Debug("plan cache write failed", zap.String("plate", plate), zap.Error(err))
		}
	}
	return status
}

type planResponse struct {
	IsEnabled json.RawMessage `json:"is_enabled"`
}

func (c *PlanClient) fetch(ctx context.Context, plate string) (bool, error) {
	path := "/api/v1/users/payment-plan/" + url.PathEscape(plate)
	status, body, err := c.base.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("plan service returned status %d", status)
	}

	var resp planResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode plan response: %w", err)
	}
	if len(resp.IsEnabled) == 0 {
		return false, nil
	}
	return parseBoolish(resp.IsEnabled)
}

// parseBoolish accepts true/false, "true"/"false"/"1"/"0" and numbers.
func parseBoolish(raw json.RawMessage) (bool, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("decode is_enabled: %w", err)
	}
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case float64:
		return val != 0, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, fmt.Errorf("is_enabled: %w", err)
		}
		return parsed, nil
	default:
		return false, errors.New("is_enabled: unsupported value")
	}
}

func (c *PlanClient) observe(result string) {
	if c.observer != nil {
		c.observer.ObservePlanLookup(result)
	}
}

// StaticPlanChecker answers every lookup with a configured value.
type StaticPlanChecker struct {
	Active bool
}

// IsPlanActive returns the configured answer.
func (s StaticPlanChecker) IsPlanActive(context.Context, string) bool {
	return s.Active
}
