package statsfeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/platform/resilience"
	"github.com/matchpulse/livesync/internal/usecase"
)

const (
	defaultBaseURL       = "https://fantasy.premierleague.com/api"
	defaultTimeout       = 20 * time.Second
	maxResponseBodyBytes = 6 << 20
)

var apiTokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errStatsfeedTransient = crerr.New("statsfeed transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBodyBytes,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("statsfeed base url %q is not an absolute http url", baseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("statsfeed base url %q uses unsupported scheme %q", baseURL, parsed.Scheme)
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

// GameweekLive fetches the full live element payload for one gameweek.
func (c *Client) GameweekLive(ctx context.Context, gameweekID int) (usecase.ExternalLiveBundle, error) {
	if gameweekID <= 0 {
		return usecase.ExternalLiveBundle{}, fmt.Errorf("%w: gameweek id must be greater than zero", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/event/%d/live/", gameweekID)
	var envelope liveEnvelope
	if err := c.doJSON(ctx, path, &envelope); err != nil {
		return usecase.ExternalLiveBundle{}, fmt.Errorf("fetch live gameweek_id=%d: %w", gameweekID, err)
	}

	if envelope.Elements == nil {
		return usecase.ExternalLiveBundle{}, fmt.Errorf("%w: live payload is missing the elements array gameweek_id=%d", usecase.ErrPayloadSchema, gameweekID)
	}

	// Malformed elements are skipped and counted, never fatal: one bad
	// row must not block the rows that did transform. An empty array is
	// a legitimately empty gameweek, not a schema failure.
	elements := *envelope.Elements
	out := usecase.ExternalLiveBundle{
		GameweekID: gameweekID,
		Elements:   make([]usecase.ExternalLiveElement, 0, len(elements)),
	}
	for _, item := range elements {
		if item.ID <= 0 {
			out.Skipped++
			continue
		}
		element, err := mapLiveElement(item)
		if err != nil {
			out.Skipped++
			c.logger.WarnContext(ctx, "statsfeed element skipped",
				"gameweek_id", gameweekID,
				"player_id", item.ID,
				"error", err,
			)
			continue
		}
		out.Elements = append(out.Elements, element)
	}

	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "statsfeed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: stats provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.buildURL(path)
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errStatsfeedTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		if stderrors.Is(err, errStatsfeedTransient) {
			return fmt.Errorf("%w: %s", usecase.ErrProvider, sanitizeSensitiveText(err.Error(), c.token))
		}
		if stderrors.Is(err, usecase.ErrProvider) || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s", usecase.ErrProvider, sanitizeSensitiveText(err.Error(), c.token))
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected response payload type %T", usecase.ErrPayloadSchema, out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode provider payload: %v", usecase.ErrPayloadSchema, err)
	}

	return nil
}

func (c *Client) buildURL(path string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString(path)
	if c.token != "" {
		values := url.Values{}
		values.Set("api_token", c.token)
		_, _ = buf.WriteString("?")
		_, _ = buf.WriteString(values.Encode())
	}
	return buf.String()
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.roundTrip(ctx, fullURL)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errStatsfeedTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else if status >= 200 && status < 300 {
			return raw, nil
		} else if isRetryableStatus(status) {
			lastErr = fmt.Errorf("%w: provider status=%d body=%s", errStatsfeedTransient, status, abbreviateBody(raw))
		} else {
			return nil, fmt.Errorf("provider status=%d body=%s", status, abbreviateBody(raw))
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: provider request failed", errStatsfeedTransient)
	}
	c.logger.WarnContext(ctx, "statsfeed request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}

	// The response buffer is pooled, copy the body out before release.
	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

func mapLiveElement(item liveElement) (usecase.ExternalLiveElement, error) {
	influence, err := parseIndexMetric(item.Stats.Influence, "influence")
	if err != nil {
		return usecase.ExternalLiveElement{}, err
	}
	creativity, err := parseIndexMetric(item.Stats.Creativity, "creativity")
	if err != nil {
		return usecase.ExternalLiveElement{}, err
	}
	threat, err := parseIndexMetric(item.Stats.Threat, "threat")
	if err != nil {
		return usecase.ExternalLiveElement{}, err
	}
	ictIndex, err := parseIndexMetric(item.Stats.ICTIndex, "ict_index")
	if err != nil {
		return usecase.ExternalLiveElement{}, err
	}

	out := usecase.ExternalLiveElement{
		PlayerID: item.ID,
		Stats: usecase.ExternalLiveStats{
			Minutes:         item.Stats.Minutes,
			GoalsScored:     item.Stats.GoalsScored,
			Assists:         item.Stats.Assists,
			CleanSheets:     item.Stats.CleanSheets,
			GoalsConceded:   item.Stats.GoalsConceded,
			OwnGoals:        item.Stats.OwnGoals,
			PenaltiesSaved:  item.Stats.PenaltiesSaved,
			PenaltiesMissed: item.Stats.PenaltiesMissed,
			YellowCards:     item.Stats.YellowCards,
			RedCards:        item.Stats.RedCards,
			Saves:           item.Stats.Saves,
			Bonus:           item.Stats.Bonus,
			BPS:             item.Stats.BPS,
			Influence:       influence,
			Creativity:      creativity,
			Threat:          threat,
			ICTIndex:        ictIndex,
			Starts:          item.Stats.Starts,
			TotalPoints:     item.Stats.TotalPoints,
			InDreamTeam:     item.Stats.InDreamTeam,
		},
	}

	for _, block := range item.Explain {
		for _, entry := range block.Stats {
			identifier := strings.TrimSpace(entry.Identifier)
			if identifier == "" {
				continue
			}
			out.Explain = append(out.Explain, usecase.ExternalExplainEntry{
				Identifier: identifier,
				Points:     entry.Points,
				Value:      entry.Value,
			})
		}
	}

	return out, nil
}

func parseIndexMetric(raw, name string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s value %q", usecase.ErrPayloadSchema, name, value)
	}
	return parsed, nil
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	value = apiTokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
	return value
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("api_token") {
		query.Set("api_token", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
