// Package classify assigns region codes to announcements, first with the
// deterministic keyword tier and then with a Gemini fallback for anything
// the keywords could not settle.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gyeongnam-biz/collector-cli/internal/model"
	"github.com/gyeongnam-biz/collector-cli/internal/region"
	"github.com/gyeongnam-biz/collector-cli/pkg/gemini"
)

const (
	defaultBatchSize  = 4
	defaultBatchDelay = time.Second
	promptSummaryMax  = 200
)

// provinceCodes are the non-Gyeongnam region codes the model is allowed to
// answer with. They fold to OTHER when mapped back into the taxonomy.
var provinceCodes = map[string]string{
	"SEOUL":     "서울특별시",
	"BUSAN":     "부산광역시",
	"DAEGU":     "대구광역시",
	"INCHEON":   "인천광역시",
	"GWANGJU":   "광주광역시",
	"DAEJEON":   "대전광역시",
	"ULSAN":     "울산광역시",
	"SEJONG":    "세종특별자치시",
	"GYEONGGI":  "경기도",
	"GANGWON":   "강원특별자치도",
	"CHUNGBUK":  "충청북도",
	"CHUNGNAM":  "충청남도",
	"JEONBUK":   "전북특별자치도",
	"JEONNAM":   "전라남도",
	"GYEONGBUK": "경상북도",
	"JEJU":      "제주특별자치도",
}

// UsageStats is a snapshot of Gemini API consumption. Token counts are a
// word-count estimate, not billing data.
type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	EstimatedTokens    int     `json:"estimated_tokens"`
	SuccessRate        float64 `json:"success_rate"`
}

// AIClassifier classifies announcement batches with Gemini.
type AIClassifier struct {
	client     gemini.Client
	model      string
	batchSize  int
	batchDelay time.Duration
	taxonomy   *region.Taxonomy
	sleep      func(time.Duration)

	mu    sync.Mutex
	usage UsageStats
}

// NewAIClassifier creates an AI classifier. batchSize and batchDelaySecs
// fall back to sensible defaults when zero.
func NewAIClassifier(client gemini.Client, modelName string, batchSize, batchDelaySecs int, taxonomy *region.Taxonomy) *AIClassifier {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	delay := time.Duration(batchDelaySecs) * time.Second
	if delay <= 0 {
		delay = defaultBatchDelay
	}
	return &AIClassifier{
		client:     client,
		model:      modelName,
		batchSize:  batchSize,
		batchDelay: delay,
		taxonomy:   taxonomy,
		sleep:      time.Sleep,
	}
}

// ClassifyBatch classifies announcements in sub-batches, pausing between
// API calls to stay under the free-tier rate limit. The returned slice is
// always the same length as the input; a failed batch yields placeholder
// results with nil region and zero confidence rather than an error.
func (c *AIClassifier) ClassifyBatch(ctx context.Context, anns []model.Announcement) []model.ClassificationResult {
	results := make([]model.ClassificationResult, 0, len(anns))

	for start := 0; start < len(anns); start += c.batchSize {
		end := start + c.batchSize
		if end > len(anns) {
			end = len(anns)
		}
		batch := anns[start:end]

		batchResults, err := c.processBatch(ctx, batch)
		if err != nil {
			zap.L().Error("classify: ai batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			batchResults = placeholders(len(batch), "AI 분류 실패: "+err.Error())
		}
		results = append(results, batchResults...)

		if end < len(anns) {
			c.sleep(c.batchDelay)
		}
	}

	return results
}

func (c *AIClassifier) processBatch(ctx context.Context, batch []model.Announcement) ([]model.ClassificationResult, error) {
	prompt := c.buildPrompt(batch)

	c.mu.Lock()
	c.usage.TotalRequests++
	c.mu.Unlock()

	text, err := c.client.GenerateText(ctx, c.model, prompt)
	if err != nil {
		c.mu.Lock()
		c.usage.FailedRequests++
		c.mu.Unlock()
		return nil, eris.Wrap(err, "classify: generate")
	}

	c.mu.Lock()
	c.usage.SuccessfulRequests++
	c.usage.EstimatedTokens += len(strings.Fields(prompt)) + len(strings.Fields(text))
	c.mu.Unlock()

	return c.parseResponse(text, len(batch)), nil
}

// Usage returns a snapshot of API consumption with the success rate filled
// in as a percentage.
func (c *AIClassifier) Usage() UsageStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.usage
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests) * 100
	}
	return stats
}

// ResetUsage zeroes the usage counters.
func (c *AIClassifier) ResetUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = UsageStats{}
}

func (c *AIClassifier) buildPrompt(batch []model.Announcement) string {
	var codes strings.Builder
	for _, r := range c.taxonomy.All() {
		fmt.Fprintf(&codes, "- %s: %s\n", r.Code, r.Description())
	}
	for _, code := range provinceCodeOrder {
		fmt.Fprintf(&codes, "- %s: %s\n", code, provinceCodes[code])
	}

	var items strings.Builder
	for i, a := range batch {
		fmt.Fprintf(&items, "\n=== 공고 %d ===\n", i+1)
		fmt.Fprintf(&items, "공고명: %s\n", a.Title)
		fmt.Fprintf(&items, "소관기관: %s\n", a.IssuingOrg)
		fmt.Fprintf(&items, "수행기관: %s\n", a.ExecutingOrg)
		fmt.Fprintf(&items, "사업개요: %s\n", truncateRunes(a.Summary, promptSummaryMax))
		fmt.Fprintf(&items, "문의처: %s\n", a.Contact)
	}

	return fmt.Sprintf(`당신은 한국의 정부지원사업 데이터를 지역별로 분류하는 전문가입니다.

다음 지원사업 공고들을 분석하여 각각 어느 지역에 해당하는지 분류해주세요.

【분류 기준】
1. 공고명에 [지역명] 패턴이 있으면 최우선 적용
2. 소관기관이 중앙부처면 보통 전국(ALL) 사업
3. 소관기관이 지방자치단체면 해당 지역 사업
4. 수행기관의 지역성 고려
5. 사업 내용에서 특정 지역 언급 확인

【가능한 지역 코드】
%s
【분류할 공고 데이터】
%s
【응답 형식】 (JSON 형태로만 응답)
{
  "results": [
    {"announcement_id": 1, "region_code": "GYEONGNAM", "confidence": 0.85, "reason": "근거"}
  ]
}

중요:
- 반드시 JSON 형식으로만 응답
- 위에 나열된 지역 코드만 사용
- 확신이 없는 경우 confidence를 낮게 설정
`, codes.String(), items.String())
}

type aiResponse struct {
	Results []aiResult `json:"results"`
}

type aiResult struct {
	AnnouncementID int     `json:"announcement_id"`
	RegionCode     string  `json:"region_code"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// parseResponse extracts the JSON object from the model's reply, which may
// be wrapped in prose or code fences. It always returns exactly want
// results: unparseable replies, unknown codes, and missing entries all
// degrade to placeholders.
func (c *AIClassifier) parseResponse(text string, want int) []model.ClassificationResult {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		zap.L().Error("classify: no JSON object in ai response",
			zap.String("response", truncateRunes(text, 500)))
		return placeholders(want, "AI 응답 파싱 실패: JSON 없음")
	}

	var resp aiResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		zap.L().Error("classify: malformed ai response",
			zap.Error(err),
			zap.String("response", truncateRunes(text, 500)))
		return placeholders(want, "AI 응답 파싱 실패: "+err.Error())
	}
	if resp.Results == nil {
		zap.L().Error("classify: ai response missing results field")
		return placeholders(want, "AI 응답 파싱 실패: results 누락")
	}

	results := make([]model.ClassificationResult, 0, want)
	for i, r := range resp.Results {
		if i >= want {
			break
		}
		results = append(results, c.foldResult(r))
	}
	for len(results) < want {
		results = append(results, placeholder("AI 응답 파싱 오류 - 결과 누락"))
	}
	return results
}

// foldResult maps a model answer into the taxonomy. Taxonomy codes pass
// through, province codes fold to OTHER, anything else is discarded.
func (c *AIClassifier) foldResult(r aiResult) model.ClassificationResult {
	code := strings.ToUpper(strings.TrimSpace(r.RegionCode))

	switch {
	case c.taxonomy.Valid(code):
		// keep
	case provinceCodes[code] != "":
		code = region.CodeOther
	default:
		zap.L().Warn("classify: invalid region code from ai", zap.String("code", r.RegionCode))
		return placeholder("유효하지 않은 지역 코드: " + r.RegionCode)
	}

	return model.ClassificationResult{
		RegionCode: &code,
		Confidence: clampConfidence(r.Confidence),
		Method:     model.MethodAI,
		Reason:     r.Reason,
	}
}

// clampConfidence bounds a model-reported confidence to [0, 1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// provinceCodeOrder keeps prompt output stable across runs.
var provinceCodeOrder = []string{
	"SEOUL", "BUSAN", "DAEGU", "INCHEON", "GWANGJU", "DAEJEON", "ULSAN",
	"SEJONG", "GYEONGGI", "GANGWON", "CHUNGBUK", "CHUNGNAM", "JEONBUK",
	"JEONNAM", "GYEONGBUK", "JEJU",
}

func placeholder(reason string) model.ClassificationResult {
	return model.ClassificationResult{
		RegionCode: nil,
		Confidence: 0.0,
		Method:     model.MethodAI,
		Reason:     reason,
	}
}

func placeholders(n int, reason string) []model.ClassificationResult {
	out := make([]model.ClassificationResult, n)
	for i := range out {
		out[i] = placeholder(reason)
	}
	return out
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
