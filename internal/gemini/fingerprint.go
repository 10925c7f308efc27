package gemini

import (
	"math/rand"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	fakeua "github.com/lib4u/fake-useragent"
)

// browserProfile pairs a TLS client profile with a matching User-Agent so the
// two layers tell the same story.
type browserProfile struct {
	profile    profiles.ClientProfile
	browser    string
	fallbackUA string
}

var browserProfiles = []browserProfile{
	{profiles.Chrome_133, "Chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"},
	{profiles.Chrome_131, "Chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"},
	{profiles.Chrome_120, "Chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
	{profiles.Firefox_135, "Firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0"},
	{profiles.Firefox_133, "Firefox", "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"},
}

var uaGenerator *fakeua.UserAgent

func init() {
	// Best effort; the per-profile fallback UA covers a failed init.
	uaGenerator, _ = fakeua.New()
}

// pickProfile selects a random browser identity for a session.
func pickProfile() (browserProfile, string) {
	p := browserProfiles[rand.Intn(len(browserProfiles))]
	return p, userAgentFor(p)
}

func userAgentFor(p browserProfile) string {
	if uaGenerator == nil {
		return p.fallbackUA
	}

	var ua string
	switch p.browser {
	case "Chrome":
		ua = uaGenerator.Filter().Chrome().Get()
	case "Firefox":
		ua = uaGenerator.Filter().Firefox().Get()
	default:
		ua = uaGenerator.Filter().Get()
	}

	if ua == "" {
		return p.fallbackUA
	}
	return ua
}

// clientOptions builds the TLS client options for a profile. The timeout set
// here is the only timeout the session ever enforces; individual generate
// calls add none of their own.
func clientOptions(p browserProfile, timeoutSeconds int) []tls_client.HttpClientOption {
	return []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(p.profile),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
		tls_client.WithRandomTLSExtensionOrder(),
	}
}
