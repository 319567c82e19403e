package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeongnam-biz/collector-cli/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.FeedConfig{
		Key:         "test-key",
		BaseURL:     srv.URL,
		TimeoutSecs: 5,
		RatePerSec:  100,
	})
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	c.retry.MaxAttempts = 1
	return c
}

func TestFetchSendsExpectedQuery(t *testing.T) {
	var got url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"jsonArray":[]}`))
	})

	anns := c.Fetch(context.Background(), 50, "경남")

	assert.Empty(t, anns)
	require.NotNil(t, got)
	assert.Equal(t, "test-key", got.Get("crtfcKey"))
	assert.Equal(t, "json", got.Get("dataType"))
	assert.Equal(t, "50", got.Get("searchCnt"))
	assert.Equal(t, "경남", got.Get("hashtags"))
}

func TestFetchOmitsEmptyHashtags(t *testing.T) {
	var got url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"jsonArray":[]}`))
	})

	c.Fetch(context.Background(), 10, "")

	require.NotNil(t, got)
	assert.False(t, got.Has("hashtags"))
}

func TestFetchNormalizesRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonArray":[
			{
				"pblancId": "PBLN_001",
				"pblancNm": "  창원시 중소기업 지원  ",
				"jrsdInsttNm": "창원시",
				"bsnsSumryCn": "<p>자금   지원</p>",
				"pblancUrl": "/web/lay1/bbs/S1T122C128/AS/74/view.do",
				"totCnt": "120",
				"inqireCo": 7,
				"creatPnttm": "2025-05-30 09:15:00"
			},
			{
				"pblancNm": "id가 없는 공고"
			}
		]}`))
	})

	anns := c.Fetch(context.Background(), 2, "경남")

	require.Len(t, anns, 1)
	a := anns[0]
	assert.Equal(t, "PBLN_001", a.ExternalID)
	assert.Equal(t, "창원시 중소기업 지원", a.Title)
	assert.Equal(t, "자금 지원", a.Summary)
	assert.Equal(t, "https://www.bizinfo.go.kr/web/lay1/bbs/S1T122C128/AS/74/view.do", a.URL)
	assert.Equal(t, 120, a.TotalCount)
	assert.Equal(t, 7, a.ViewCount)
	require.NotNil(t, a.SourceCreatedAt)
	assert.Equal(t, time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC), *a.SourceCreatedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), a.FetchedAt)
}

func TestFetchReturnsEmptyOnServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Nil(t, c.Fetch(context.Background(), 10, ""))
}

func TestFetchReturnsEmptyOnMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	assert.Nil(t, c.Fetch(context.Background(), 10, ""))
}

func TestFetchMissingEnvelopeFieldMeansZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	assert.Empty(t, c.Fetch(context.Background(), 10, ""))
}

func TestFetchReturnsEmptyWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(config.FeedConfig{Key: "k", BaseURL: srv.URL, TimeoutSecs: 1, RatePerSec: 100})
	c.retry.MaxAttempts = 1

	assert.Nil(t, c.Fetch(context.Background(), 10, ""))
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"jsonArray":[]}`))
	})
	c.retry.MaxAttempts = 2
	c.retry.InitialBackoff = time.Millisecond

	assert.Empty(t, c.Fetch(context.Background(), 10, ""))
	assert.Equal(t, 2, calls)
}

func TestFetchDoesNotRetryClientError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.retry.MaxAttempts = 3
	c.retry.InitialBackoff = time.Millisecond

	assert.Nil(t, c.Fetch(context.Background(), 10, ""))
	assert.Equal(t, 1, calls)
}
