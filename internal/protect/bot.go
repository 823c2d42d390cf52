package protect

import (
	"context"
	"regexp"
)

// BotCategory groups known clients by purpose.
type BotCategory string

const (
	CategorySearchEngine BotCategory = "SEARCH_ENGINE"
	CategoryPreview      BotCategory = "PREVIEW"
	CategoryAutomated    BotCategory = "AUTOMATED"
)

type botSignature struct {
	name     string
	category BotCategory
	pattern  *regexp.Regexp
}

var botSignatures = []botSignature{
	{"googlebot", CategorySearchEngine, regexp.MustCompile(`(?i)googlebot`)},
	{"bingbot", CategorySearchEngine, regexp.MustCompile(`(?i)bingbot`)},
	{"duckduckbot", CategorySearchEngine, regexp.MustCompile(`(?i)duckduckbot`)},
	{"yandexbot", CategorySearchEngine, regexp.MustCompile(`(?i)yandex(bot)?`)},
	{"baiduspider", CategorySearchEngine, regexp.MustCompile(`(?i)baiduspider`)},
	{"applebot", CategorySearchEngine, regexp.MustCompile(`(?i)applebot`)},

	{"slackbot", CategoryPreview, regexp.MustCompile(`(?i)slack(bot|-imgproxy)`)},
	{"twitterbot", CategoryPreview, regexp.MustCompile(`(?i)twitterbot`)},
	{"facebookexternalhit", CategoryPreview, regexp.MustCompile(`(?i)facebookexternalhit`)},
	{"discordbot", CategoryPreview, regexp.MustCompile(`(?i)discordbot`)},
	{"linkedinbot", CategoryPreview, regexp.MustCompile(`(?i)linkedinbot`)},
	{"telegrambot", CategoryPreview, regexp.MustCompile(`(?i)telegrambot`)},
	{"whatsapp", CategoryPreview, regexp.MustCompile(`(?i)whatsapp`)},

	{"postman", CategoryAutomated, regexp.MustCompile(`(?i)postmanruntime`)},
	{"insomnia", CategoryAutomated, regexp.MustCompile(`(?i)insomnia`)},
	{"httpie", CategoryAutomated, regexp.MustCompile(`(?i)httpie`)},
	{"thunder-client", CategoryAutomated, regexp.MustCompile(`(?i)thunder client`)},
	{"bruno", CategoryAutomated, regexp.MustCompile(`(?i)bruno`)},
	{"hoppscotch", CategoryAutomated, regexp.MustCompile(`(?i)hoppscotch`)},
	{"curl", CategoryAutomated, regexp.MustCompile(`(?i)^curl/`)},
	{"wget", CategoryAutomated, regexp.MustCompile(`(?i)^wget/`)},
	{"python", CategoryAutomated, regexp.MustCompile(`(?i)python-(requests|urllib|httpx)|aiohttp`)},
	{"go-http-client", CategoryAutomated, regexp.MustCompile(`(?i)go-http-client`)},
	{"java", CategoryAutomated, regexp.MustCompile(`(?i)^java/|apache-httpclient|okhttp`)},
	{"node", CategoryAutomated, regexp.MustCompile(`(?i)node-fetch|^axios/|undici`)},
	{"scrapy", CategoryAutomated, regexp.MustCompile(`(?i)scrapy`)},
	{"headless-browser", CategoryAutomated, regexp.MustCompile(`(?i)headlesschrome|phantomjs|selenium|puppeteer|playwright`)},
	{"libwww-perl", CategoryAutomated, regexp.MustCompile(`(?i)libwww-perl`)},
}

// IdentifyBot returns the known client a user agent belongs to.
func IdentifyBot(userAgent string) (name string, category BotCategory, ok bool) {
	for _, sig := range botSignatures {
		if sig.pattern.MatchString(userAgent) {
			return sig.name, sig.category, true
		}
	}
	return "", "", false
}

// DetectBot denies user agents in a blocked category unless the category is
// explicitly allowed.
type DetectBot struct {
	Mode  Mode
	Allow []BotCategory
	Block []BotCategory
}

// Evaluate implements Rule.
func (d DetectBot) Evaluate(_ context.Context, req Request) (RuleResult, error) {
	res := RuleResult{Rule: "detect-bot", Reason: ReasonBot, Mode: d.Mode, Conclusion: Allow}

	name, category, ok := IdentifyBot(req.UserAgent)
	if !ok {
		return res, nil
	}
	res.Bot = name
	res.BotCategory = category

	if contains(d.Allow, category) {
		return res, nil
	}
	if contains(d.Block, category) {
		res.Conclusion = Deny
	}
	return res, nil
}

func contains(list []BotCategory, c BotCategory) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}
