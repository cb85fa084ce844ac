package adjudicator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/domain/service"
	"tradingcore/internal/service/cache"
	xhttp "tradingcore/pkg/http"
	"tradingcore/pkg/logger"
)

// HTTPAdjudicator posts the context packet to the external adjudication
// service and parses its verdict. Timeout, non-2xx and malformed
// responses all surface as errors; callers treat those as Abort.
type HTTPAdjudicator struct {
	url      string
	apiKey   string
	client   *xhttp.Client
	cache    cache.BytesCache
	cacheTTL time.Duration
	log      *logger.Logger
}

var _ service.Adjudicator = (*HTTPAdjudicator)(nil)

func New(url, apiKey string, timeout time.Duration, verdicts cache.BytesCache, cacheTTL time.Duration, log *logger.Logger) *HTTPAdjudicator {
	return &HTTPAdjudicator{
		url:      url,
		apiKey:   apiKey,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:    verdicts,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

type verdictResponse struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Adjudicate submits the packet, consulting the verdict cache keyed by
// candle open time first so a re-analyzed candle does not hit the service
// twice. Exit re-evaluations of an open position bypass the cache: they
// must not be answered with the entry verdict of the same candle.
func (a *HTTPAdjudicator) Adjudicate(ctx context.Context, packet *models.ContextPacket) (*models.Verdict, error) {
	key := fmt.Sprintf("verdict:%s:%d", packet.Symbol, packet.Candle.OpenTime)
	cacheable := a.cache != nil && packet.OpenTrade == nil
	if cacheable {
		if b, ok, err := a.cache.GetBytes(key); err == nil && ok {
			var v models.Verdict
			if err := json.Unmarshal(b, &v); err == nil {
				a.log.Debug("verdict cache hit", logger.String("key", key))
				return &v, nil
			}
		}
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if a.apiKey != "" {
		headers["Authorization"] = "Bearer " + a.apiKey
	}

	var resp verdictResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     a.url,
		Headers: headers,
		Body:    packet,
	}, &resp)
	if err != nil {
		return &models.Verdict{Action: models.ActionAbort, Reasoning: "adjudication failed"},
			fmt.Errorf("adjudicate: %w", err)
	}

	verdict, err := parseVerdict(resp)
	if err != nil {
		return &models.Verdict{Action: models.ActionAbort, Reasoning: "malformed verdict"}, err
	}

	if cacheable {
		if b, err := json.Marshal(verdict); err == nil {
			if err := a.cache.SetBytes(key, b, a.cacheTTL); err != nil {
				a.log.Warn("verdict cache set failed", logger.Error(err))
			}
		}
	}
	return verdict, nil
}

func parseVerdict(resp verdictResponse) (*models.Verdict, error) {
	action := models.Action(strings.ToUpper(strings.TrimSpace(resp.Action)))
	switch action {
	case models.ActionExecute, models.ActionAbort, models.ActionHold, models.ActionReanalyze:
	default:
		return nil, fmt.Errorf("unknown action %q", resp.Action)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", resp.Confidence)
	}
	return &models.Verdict{
		Action:     action,
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
	}, nil
}
