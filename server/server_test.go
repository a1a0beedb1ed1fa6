package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"privacy-advisor/engine"
	"privacy-advisor/geo"
	"privacy-advisor/middleware/ratelimit"
	"privacy-advisor/middleware/ratelimit/application"
	"privacy-advisor/middleware/ratelimit/domain"
	"privacy-advisor/middleware/ratelimit/infra"
	"privacy-advisor/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const avoidJSON = `{"verdict":"Avoid","reason":"Sells data.","riskLevel":"High","factors":{"dataCollection":"Extensive","consentClarity":"Poor","optOutEffectiveness":"Weak","trackRecord":"Poor","thirdPartySharing":"Extensive","keyRisk":"Broker sales"},"agreeingTo":["Tracking"],"yourRights":["Deletion"],"keyLimits":[],"realCost":null,"ifYouStay":[],"ifYouLeave":[]}`

// fakeAnthropic responde como a Messages API com o texto dado.
type fakeAnthropic struct {
	status   int
	text     string
	calls    atomic.Int32
	lastUser atomic.Value
}

func (f *fakeAnthropic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if len(req.Messages) > 0 {
		f.lastUser.Store(req.Messages[0].Content)
	}

	if f.status != 0 && f.status != http.StatusOK {
		http.Error(w, `{"type":"error"}`, f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"content": []map[string]any{
			{"type": "server_tool_use", "id": "srv_1", "name": "web_search"},
			{"type": "text", "text": f.text},
		},
	})
}

type harness struct {
	srv   *httptest.Server
	up    *fakeAnthropic
	stats *infra.MemoryStatsStore
}

func newHarness(t *testing.T, up *fakeAnthropic, apiKey string, opts ...func(*Options)) *harness {
	t.Helper()
	upstream := httptest.NewServer(up)
	t.Cleanup(upstream.Close)

	stats := infra.NewMemoryStatsStore()
	eng := engine.NewAnthropicClient(engine.AnthropicConfig{APIKey: apiKey, BaseURL: upstream.URL})
	svc := relay.New(relay.Config{
		Engine: eng,
		Admitter: application.Service{
			Counter: infra.NewMemoryCounter(),
			Policy:  domain.DefaultPolicy(),
			Stats:   stats,
			Scope:   "analyze",
		},
	})

	o := Options{
		Analyzer: svc,
		KeyFunc:  ratelimit.DefaultKeyFunc(ratelimit.KeyOptions{TrustXForwardedFor: true}),
		Stats:    stats,
	}
	for _, fn := range opts {
		fn(&o)
	}
	srv := httptest.NewServer(New(o).Routes())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, up: up, stats: stats}
}

func (h *harness) post(t *testing.T, body string, xff string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/analyze", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestAnalyze_TeenEUAvoid(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	resp := h.post(t, `{"domain":"example.com","userType":"teen","region":"EU"}`, "1.1.1.1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decode(t, resp)
	assert.Equal(t, "Avoid", body["verdict"])
	assert.Nil(t, body["realCost"])
	assert.Equal(t, []any{}, body["keyLimits"])

	user, _ := h.up.lastUser.Load().(string)
	assert.Contains(t, user, "example.com")
	assert.Contains(t, user, "Teen (13–17)")
	assert.Contains(t, user, "Region: EU")
}

func TestAnalyze_FencedRecommended(t *testing.T) {
	reply := "Sure, here you go:\n```json\n{\"verdict\":\"Recommended\",\"factors\":{\"dataCollection\":\"Low\",\"keyRisk\":\"None\"}}\n```"
	h := newHarness(t, &fakeAnthropic{text: reply}, "sk-test")

	resp := h.post(t, `{"domain":"example.com"}`, "1.1.1.1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Recommended", decode(t, resp)["verdict"])
}

func TestAnalyze_UpstreamFailureIs502WithOnlyError(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{status: http.StatusInternalServerError}, "sk-test")

	resp := h.post(t, `{"domain":"example.com"}`, "1.1.1.1")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, map[string]any{"error": relay.MsgUnavailable}, body)
	assert.Equal(t, int32(1), h.up.calls.Load())
}

func TestAnalyze_UnusableReplies(t *testing.T) {
	cases := []struct {
		name string
		text string
		msg  string
	}{
		{"prose", "Sorry, I could not find any policy.", relay.MsgAnalysisFailed},
		{"incomplete", `{"verdict":"Avoid"}`, relay.MsgIncompleteReceived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, &fakeAnthropic{text: tc.text}, "sk-test")
			resp := h.post(t, `{"domain":"example.com"}`, "1.1.1.1")
			require.Equal(t, http.StatusBadGateway, resp.StatusCode)
			assert.Equal(t, map[string]any{"error": tc.msg}, decode(t, resp))
		})
	}
}

func TestAnalyze_TwentyFirstRequestIs429(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	for i := 0; i < 20; i++ {
		resp := h.post(t, `{"domain":"example.com"}`, "5.5.5.5")
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp := h.post(t, `{"domain":"example.com"}`, "5.5.5.5")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, relay.MsgRateLimited, decode(t, resp)["error"])

	retry := resp.Header.Get("Retry-After")
	require.NotEmpty(t, retry)
	assert.NotEqual(t, "0", retry)

	assert.Equal(t, int32(20), h.up.calls.Load())
	assert.Equal(t, infra.Counters{Allowed: 20, Denied: 1}, h.stats.Total())

	// sem X-Forwarded-For o cliente é "unknown", com orçamento próprio
	resp = h.post(t, `{"domain":"example.com"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	cases := []struct {
		body string
		msg  string
	}{
		{`{}`, relay.MsgMissingDomain},
		{`{"domain":""}`, relay.MsgMissingDomain},
		{`{"domain":42}`, relay.MsgMissingDomain},
		{`not json`, relay.MsgMissingDomain},
		{`{"domain":"!!!"}`, relay.MsgInvalidDomain},
		{`{"domain":"` + strings.Repeat("a", 300) + `"}`, relay.MsgInvalidDomain},
	}
	for _, tc := range cases {
		resp := h.post(t, tc.body, "2.2.2.2")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.body)
		assert.Equal(t, tc.msg, decode(t, resp)["error"], tc.body)
	}
	assert.Equal(t, int32(0), h.up.calls.Load())
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	big := `{"domain":"example.com","region":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	resp := h.post(t, big, "3.3.3.3")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyze_MissingAPIKeyIs500(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "")

	resp := h.post(t, `{"domain":"example.com"}`, "1.1.1.1")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, relay.MsgNotConfigured, decode(t, resp)["error"])
	assert.Equal(t, int32(0), h.up.calls.Load())
}

func TestAnalyze_RegionFromGeo(t *testing.T) {
	up := &fakeAnthropic{text: avoidJSON}
	h := newHarness(t, up, "sk-test", func(o *Options) {
		o.Geo = geo.Static{"81.2.69.142": "GB"}
	})

	resp := h.post(t, `{"domain":"example.com"}`, "81.2.69.142")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user, _ := up.lastUser.Load().(string)
	assert.Contains(t, user, "Region: GB")

	resp = h.post(t, `{"domain":"example.com"}`, "10.0.0.1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user, _ = up.lastUser.Load().(string)
	assert.Contains(t, user, "Region: US")
}

func TestMethods(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	req, _ := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/analyze", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Empty(t, buf.String())

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req, _ := http.NewRequest(m, h.srv.URL+"/api/analyze", nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, m)
		assert.Equal(t, MsgMethodNotAllowed, decode(t, resp)["error"], m)
		_ = resp.Body.Close()
	}
}

func TestHealthzAndStats(t *testing.T) {
	h := newHarness(t, &fakeAnthropic{text: avoidJSON}, "sk-test")

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	h.post(t, `{"domain":"example.com"}`, "1.1.1.1")

	resp2, err := http.Get(h.srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body := decode(t, resp2)
	total, _ := body["total"].(map[string]any)
	assert.Equal(t, float64(1), total["allowed"])
}

func TestConcurrencyCapAnswers503(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	slow := analyzerFunc(func() {
		entered <- struct{}{}
		<-release
	})

	srv := httptest.NewServer(New(Options{
		Analyzer: slow,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            1,
			AcquireTimeout: 10 * time.Millisecond,
		},
	}).Routes())
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(`{"domain":"a.com"}`))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	<-entered

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(`{"domain":"b.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, MsgBusy, decode(t, resp)["error"])

	close(release)
	<-done
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(10*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
	assert.Equal(t, 61, retryAfterSeconds(time.Minute+time.Millisecond))
}
