package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gyeongnam-biz/collector-cli/internal/config"
	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
)

// fakeStore is an in-memory Store for orchestrator tests. Only the methods
// the orchestrator touches do real work.
type fakeStore struct {
	classified map[string]model.ClassificationResult
	failOn     map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classified: make(map[string]model.ClassificationResult),
		failOn:     make(map[string]bool),
	}
}

func (f *fakeStore) UpdateClassification(_ context.Context, externalID string, result model.ClassificationResult) error {
	if f.failOn[externalID] {
		return assert.AnError
	}
	f.classified[externalID] = result
	return nil
}

func (f *fakeStore) GetExistingIDs(context.Context) (map[string]struct{}, error) { return nil, nil }
func (f *fakeStore) BulkInsert(context.Context, []model.Announcement) (int, error) {
	return 0, nil
}
func (f *fakeStore) GetAnnouncement(context.Context, string) (*model.Announcement, error) {
	return nil, nil
}
func (f *fakeStore) GetUnclassified(context.Context, int) ([]model.Announcement, error) {
	return nil, nil
}
func (f *fakeStore) GetStats(context.Context) (*model.ClassificationStats, error) { return nil, nil }
func (f *fakeStore) Migrate(context.Context) error                                { return nil }
func (f *fakeStore) Ping(context.Context) error                                   { return nil }
func (f *fakeStore) Close() error                                                 { return nil }

func testClassifyConfig() config.ClassifyConfig {
	return config.ClassifyConfig{
		RunKeywordThreshold:  0.6,
		RunAIThreshold:       0.5,
		ItemKeywordThreshold: 0.7,
		ItemAIThreshold:      0.6,
		BacklogLimit:         100,
	}
}

func newTestOrchestrator(st *fakeStore, mg *mockGemini) *Orchestrator {
	taxonomy := region.NewTaxonomy()
	keyword := region.NewClassifier(taxonomy)
	var ai *AIClassifier
	if mg != nil {
		ai = newTestAIClassifier(mg)
	}
	return NewOrchestrator(keyword, ai, st, testClassifyConfig())
}

func TestOrchestratorRun_KeywordTierWins(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(st, nil)

	out := o.Run(context.Background(), []model.Announcement{
		{ExternalID: "PBLN_1", Title: "창원시 중소기업 지원사업", IssuingOrg: "창원시"},
		{ExternalID: "PBLN_2", Title: "거창군 농가 지원", IssuingOrg: "거창군"},
	})

	assert.Equal(t, 2, out.Keyword)
	assert.Zero(t, out.AI)
	assert.Zero(t, out.Failed)

	require.Contains(t, st.classified, "PBLN_1")
	assert.Equal(t, "GYEONGNAM_01", *st.classified["PBLN_1"].RegionCode)
	assert.Equal(t, model.MethodKeyword, st.classified["PBLN_1"].Method)
	require.Contains(t, st.classified, "PBLN_2")
	assert.Equal(t, "GYEONGNAM_17", *st.classified["PBLN_2"].RegionCode)
}

func TestOrchestratorRun_FallsBackToAI(t *testing.T) {
	st := newFakeStore()
	mg := new(mockGemini)
	mg.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"results":[{"announcement_id":1,"region_code":"ALL","confidence":0.9,"reason":"중앙부처 소관"}]}`, nil)
	o := newTestOrchestrator(st, mg)

	out := o.Run(context.Background(), []model.Announcement{
		{ExternalID: "PBLN_1", Title: "중소기업 기술개발 지원", IssuingOrg: "중소벤처기업부"},
	})

	assert.Zero(t, out.Keyword)
	assert.Equal(t, 1, out.AI)
	assert.Zero(t, out.Failed)
	require.Contains(t, st.classified, "PBLN_1")
	assert.Equal(t, "ALL", *st.classified["PBLN_1"].RegionCode)
	assert.Equal(t, model.MethodAI, st.classified["PBLN_1"].Method)
}

func TestOrchestratorRun_LowAIConfidenceStaysPending(t *testing.T) {
	st := newFakeStore()
	mg := new(mockGemini)
	mg.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"results":[{"announcement_id":1,"region_code":"ALL","confidence":0.3,"reason":"불확실"}]}`, nil)
	o := newTestOrchestrator(st, mg)

	out := o.Run(context.Background(), []model.Announcement{
		{ExternalID: "PBLN_1", Title: "기술개발 지원", IssuingOrg: "중소벤처기업부"},
	})

	assert.Zero(t, out.AI)
	assert.Equal(t, 1, out.Failed)
	assert.Empty(t, st.classified)
}

func TestOrchestratorRun_NoAITierLeavesRestPending(t *testing.T) {
	st := newFakeStore()
	o := newTestOrchestrator(st, nil)

	out := o.Run(context.Background(), []model.Announcement{
		{ExternalID: "PBLN_1", Title: "창원시 지원사업", IssuingOrg: "창원시"},
		{ExternalID: "PBLN_2", Title: "기술개발 지원", IssuingOrg: "중소벤처기업부"},
	})

	assert.Equal(t, 1, out.Keyword)
	assert.Equal(t, 1, out.Failed)
	assert.NotContains(t, st.classified, "PBLN_2")
}

func TestOrchestratorRun_PersistFailureIsIsolated(t *testing.T) {
	st := newFakeStore()
	st.failOn["PBLN_1"] = true
	o := newTestOrchestrator(st, nil)

	out := o.Run(context.Background(), []model.Announcement{
		{ExternalID: "PBLN_1", Title: "창원시 지원사업", IssuingOrg: "창원시"},
		{ExternalID: "PBLN_2", Title: "진주시 지원사업", IssuingOrg: "진주시"},
	})

	assert.Equal(t, 1, out.Keyword)
	assert.Equal(t, 1, out.Failed)
	assert.Contains(t, st.classified, "PBLN_2")
}

func TestClassifyOne_KeywordAboveThreshold(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), nil)

	res := o.ClassifyOne(context.Background(), model.Announcement{
		Title: "밀양시 청년창업 지원", IssuingOrg: "밀양시",
	})

	require.NotNil(t, res.RegionCode)
	assert.Equal(t, "GYEONGNAM_06", *res.RegionCode)
	assert.Equal(t, model.MethodKeyword, res.Method)
}

func TestClassifyOne_AIFallback(t *testing.T) {
	mg := new(mockGemini)
	mg.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"results":[{"announcement_id":1,"region_code":"GYEONGNAM","confidence":0.75,"reason":"경남테크노파크 수행"}]}`, nil)
	o := newTestOrchestrator(newFakeStore(), mg)

	res := o.ClassifyOne(context.Background(), model.Announcement{
		Title: "스마트공장 구축 지원", IssuingOrg: "중소벤처기업부",
	})

	require.NotNil(t, res.RegionCode)
	assert.Equal(t, region.CodeGyeongnam, *res.RegionCode)
	assert.Equal(t, model.MethodAI, res.Method)
}

func TestClassifyOne_DefaultsToNationwide(t *testing.T) {
	mg := new(mockGemini)
	mg.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"results":[{"announcement_id":1,"region_code":"ALL","confidence":0.2,"reason":"불확실"}]}`, nil)
	o := newTestOrchestrator(newFakeStore(), mg)

	res := o.ClassifyOne(context.Background(), model.Announcement{
		Title: "기술개발 지원", IssuingOrg: "중소벤처기업부",
	})

	require.NotNil(t, res.RegionCode)
	assert.Equal(t, region.CodeAll, *res.RegionCode)
	assert.InDelta(t, 0.1, res.Confidence, 1e-9)
	assert.Equal(t, model.MethodDefault, res.Method)
}
