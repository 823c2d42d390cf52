package protect

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquisitions/internal/cache"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

type failingRule struct{}

func (failingRule) Evaluate(context.Context, Request) (RuleResult, error) {
	return RuleResult{}, errors.New("upstream unavailable")
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func TestRequestFrom(t *testing.T) {
	r := httptest.NewRequest("GET", "/users?page=2", nil)
	r.Header.Set("User-Agent", browserUA)

	req := RequestFrom(r, "10.0.0.1")

	assert.Equal(t, Request{IP: "10.0.0.1", Method: "GET", Host: "example.com", Path: "/users", RawQuery: "page=2", UserAgent: browserUA}, req)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDryRun, ParseMode("dry_run"))
	assert.Equal(t, ModeLive, ParseMode("LIVE"))
	assert.Equal(t, ModeLive, ParseMode(""))
}

func TestShield(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
		want  Conclusion
	}{
		{name: "plain request", path: "/users", query: "page=1&search=john", want: Allow},
		{name: "path traversal", path: "/users/../../etc/passwd", want: Deny},
		{name: "encoded traversal", path: "/files", query: "name=%2e%2e%2fsecret", want: Deny},
		{name: "union select", path: "/users", query: "search=x%27%20UNION%20SELECT%20password%20FROM%20users", want: Deny},
		{name: "tautology", path: "/users", query: "search=' OR '1'='1", want: Deny},
		{name: "script tag", path: "/users", query: "search=%3Cscript%3Ealert(1)%3C/script%3E", want: Deny},
		{name: "env probe", path: "/.env", want: Deny},
		{name: "wordpress probe", path: "/wp-login.php", want: Deny},
	}

	rule := Shield{Mode: ModeLive}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rule.Evaluate(context.Background(), Request{Path: tt.path, RawQuery: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Conclusion)
			assert.Equal(t, ReasonShield, res.Reason)
		})
	}
}

func TestDetectBot(t *testing.T) {
	rule := DetectBot{
		Mode:  ModeLive,
		Allow: []BotCategory{CategorySearchEngine, CategoryPreview},
		Block: []BotCategory{CategoryAutomated},
	}

	tests := []struct {
		name    string
		ua      string
		want    Conclusion
		wantBot string
	}{
		{name: "browser", ua: browserUA, want: Allow},
		{name: "search engine", ua: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", want: Allow, wantBot: "googlebot"},
		{name: "link preview", ua: "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", want: Allow, wantBot: "slackbot"},
		{name: "curl", ua: "curl/8.4.0", want: Deny, wantBot: "curl"},
		{name: "python", ua: "python-requests/2.31.0", want: Deny, wantBot: "python"},
		{name: "postman", ua: "PostmanRuntime/7.36.0", want: Deny, wantBot: "postman"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rule.Evaluate(context.Background(), Request{UserAgent: tt.ua})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Conclusion)
			assert.Equal(t, tt.wantBot, res.Bot)
		})
	}
}

func TestSlidingWindow_MemoryStore(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	rule := SlidingWindow{
		Mode:     ModeLive,
		Name:     "user-rate-limit",
		Interval: time.Minute,
		Max:      2,
		Store:    NewMemoryWindowStore(),
		Now:      clock.now,
	}
	ctx := context.Background()
	req := Request{IP: "1.2.3.4"}

	res, err := rule.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Allow, res.Conclusion)
	assert.Equal(t, 1, res.Remaining)

	clock.t = clock.t.Add(10 * time.Second)
	res, err = rule.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Allow, res.Conclusion)
	assert.Equal(t, 0, res.Remaining)

	clock.t = clock.t.Add(10 * time.Second)
	res, err = rule.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Deny, res.Conclusion)
	assert.Equal(t, 40*time.Second, res.ResetAfter)

	other, err := rule.Evaluate(ctx, Request{IP: "5.6.7.8"})
	require.NoError(t, err)
	assert.Equal(t, Allow, other.Conclusion, "quotas are per client")

	// sliding: the first hit expires, the second is still counted
	clock.t = clock.t.Add(41 * time.Second)
	res, err = rule.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Allow, res.Conclusion)
	assert.Equal(t, 0, res.Remaining)
}

func TestSlidingWindow_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	rule := SlidingWindow{
		Mode:     ModeLive,
		Name:     "guest-rate-limit",
		Interval: time.Minute,
		Max:      3,
		Store:    NewRedisWindowStore(client, "protect:"),
		Now:      clock.now,
	}

	for i := 0; i < 3; i++ {
		res, err := rule.Evaluate(context.Background(), Request{IP: "1.2.3.4"})
		require.NoError(t, err)
		assert.Equal(t, Allow, res.Conclusion)
	}
	res, err := rule.Evaluate(context.Background(), Request{IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, Deny, res.Conclusion)
	assert.True(t, mr.Exists("protect:guest-rate-limit:1.2.3.4"))

	mr.Close()
	_, err = rule.Evaluate(context.Background(), Request{IP: "1.2.3.4"})
	assert.Error(t, err)
}

func TestClient_Protect(t *testing.T) {
	newWindow := func(mode Mode, max int) SlidingWindow {
		return SlidingWindow{Mode: mode, Name: "w", Interval: time.Minute, Max: max, Store: NewMemoryWindowStore()}
	}

	t.Run("allows clean requests", func(t *testing.T) {
		c := NewClient(Shield{Mode: ModeLive}, DetectBot{Mode: ModeLive, Block: []BotCategory{CategoryAutomated}})

		d, err := c.Protect(context.Background(), Request{IP: "1.1.1.1", Path: "/users", UserAgent: browserUA}, newWindow(ModeLive, 5))

		require.NoError(t, err)
		assert.False(t, d.IsDenied())
		assert.NotEmpty(t, d.ID)
		assert.Len(t, d.Results, 3)
		rl, ok := d.RateLimit()
		require.True(t, ok)
		assert.Equal(t, 4, rl.Remaining)
	})

	t.Run("first enforced denial is the reason", func(t *testing.T) {
		c := NewClient(Shield{Mode: ModeLive}, DetectBot{Mode: ModeLive, Block: []BotCategory{CategoryAutomated}})

		d, err := c.Protect(context.Background(), Request{IP: "1.1.1.1", Path: "/.env", UserAgent: "curl/8.0"})

		require.NoError(t, err)
		assert.True(t, d.IsDenied())
		assert.Equal(t, ReasonShield, d.Reason)
		assert.True(t, d.DeniedBy(ReasonShield))
		assert.True(t, d.DeniedBy(ReasonBot))
	})

	t.Run("dry run reports but allows", func(t *testing.T) {
		c := NewClient(DetectBot{Mode: ModeDryRun, Block: []BotCategory{CategoryAutomated}})

		d, err := c.Protect(context.Background(), Request{IP: "1.1.1.1", UserAgent: "curl/8.0"})

		require.NoError(t, err)
		assert.False(t, d.IsDenied())
		assert.Equal(t, Deny, d.Results[0].Conclusion)
		assert.False(t, d.DeniedBy(ReasonBot))
	})

	t.Run("live window reported over dry run window", func(t *testing.T) {
		c := NewClient(newWindow(ModeDryRun, 1))
		req := Request{IP: "2.2.2.2", UserAgent: browserUA}
		live := newWindow(ModeLive, 5)

		var d Decision
		for i := 0; i < 3; i++ {
			var err error
			d, err = c.Protect(context.Background(), req, live)
			require.NoError(t, err)
		}

		assert.False(t, d.IsDenied())
		rl, ok := d.RateLimit()
		require.True(t, ok)
		assert.Equal(t, ModeLive, rl.Mode)
		assert.Equal(t, 2, rl.Remaining)
	})

	t.Run("rule errors abort", func(t *testing.T) {
		c := NewClient(Shield{Mode: ModeLive})

		_, err := c.Protect(context.Background(), Request{}, failingRule{})

		assert.Error(t, err)
	})
}
