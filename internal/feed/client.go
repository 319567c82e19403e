// Package feed fetches support-program announcements from the Bizinfo open
// API and normalizes them into the canonical announcement shape.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gyeongnam-biz/collector-cli/internal/config"
	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/resilience"
)

// rawRecord mirrors one entry of the feed's jsonArray envelope field.
// Counters arrive as either numbers or strings, so they are decoded
// leniently.
type rawRecord struct {
	PblancID             string          `json:"pblancId"`
	PblancNm             string          `json:"pblancNm"`
	JrsdInsttNm          string          `json:"jrsdInsttNm"`
	ExcInsttNm           string          `json:"excInsttNm"`
	BsnsSumryCn          string          `json:"bsnsSumryCn"`
	TrgetNm              string          `json:"trgetNm"`
	PblancURL            string          `json:"pblancUrl"`
	RceptEngnHmpgURL     string          `json:"rceptEngnHmpgUrl"`
	FlpthNm              string          `json:"flpthNm"`
	PrintFlpthNm         string          `json:"printFlpthNm"`
	PrintFileNm          string          `json:"printFileNm"`
	FileNm               string          `json:"fileNm"`
	ReqstBeginEndDe      string          `json:"reqstBeginEndDe"`
	ReqstMthPapersCn     string          `json:"reqstMthPapersCn"`
	RefrncNm             string          `json:"refrncNm"`
	SportRealmLclasNm    string          `json:"pldirSportRealmLclasCodeNm"`
	SportRealmMlsfcNm    string          `json:"pldirSportRealmMlsfcCodeNm"`
	Hashtags             string          `json:"hashtags"`
	TotCnt               json.RawMessage `json:"totCnt"`
	InqireCo             json.RawMessage `json:"inqireCo"`
	CreatPnttm           string          `json:"creatPnttm"`
}

// envelope is the feed's top-level response shape. A missing jsonArray
// field means zero results, not an error.
type envelope struct {
	Records []rawRecord `json:"jsonArray"`
}

// Client fetches and normalizes announcements from the Bizinfo feed.
type Client struct {
	cfg     config.FeedConfig
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	now     func() time.Time
}

// NewClient creates a feed client from config.
func NewClient(cfg config.FeedConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("bizinfo", "fetch")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		retry:   retry,
		now:     time.Now,
	}
}

// Fetch requests up to count announcements, optionally filtered by hashtag,
// and returns the normalized records. All failure modes (network error,
// non-2xx status, malformed envelope) log the cause and return an empty
// slice; errors never cross this boundary.
func (c *Client) Fetch(ctx context.Context, count int, hashtags string) []model.Announcement {
	records, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]rawRecord, error) {
		return c.fetch(ctx, count, hashtags)
	})
	if err != nil {
		zap.L().Error("feed: fetch failed", zap.Int("count", count), zap.Error(err))
		return nil
	}

	fetchedAt := c.now()
	out := make([]model.Announcement, 0, len(records))
	for _, rec := range records {
		ann, ok := normalizeRecord(rec, fetchedAt)
		if !ok {
			continue
		}
		out = append(out, ann)
	}

	zap.L().Info("feed: fetched announcements",
		zap.Int("requested", count),
		zap.Int("received", len(records)),
		zap.Int("normalized", len(out)),
		zap.String("hashtags", hashtags),
	)
	return out
}

func (c *Client) fetch(ctx context.Context, count int, hashtags string) ([]rawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("crtfcKey", c.cfg.Key)
	q.Set("dataType", "json")
	q.Set("searchCnt", strconv.Itoa(count))
	if hashtags != "" {
		q.Set("hashtags", hashtags)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := error(&statusError{code: resp.StatusCode})
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			err = resilience.MarkTransient(err)
		}
		return nil, err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}

	if env.Records == nil {
		zap.L().Warn("feed: response envelope has no jsonArray field")
	}
	return env.Records, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "feed: unexpected status " + strconv.Itoa(e.code)
}
