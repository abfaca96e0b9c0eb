package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func localeThroughMiddleware(t *testing.T, headers map[string]string, fallback string) string {
	t.Helper()
	var got string
	handler := I18N(fallback, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestDetectLocaleFromAcceptLanguage(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"exact match", "id-ID", "id"},
		{"quality ordering", "fr-CH;q=0.8, es;q=0.9", "es"},
		{"regional variant collapses to base", "en-GB", "en"},
		{"unsupported falls back", "zz", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := localeThroughMiddleware(t, map[string]string{"Accept-Language": tc.header}, "en")
			if got != tc.want {
				t.Fatalf("locale = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestXLocaleHeaderWins(t *testing.T) {
	got := localeThroughMiddleware(t, map[string]string{
		"X-Locale":        "ja",
		"Accept-Language": "en-US",
	}, "en")
	if got != "ja" {
		t.Fatalf("locale = %q, want ja", got)
	}
}

func TestFallbackLocaleWithoutHeaders(t *testing.T) {
	if got := localeThroughMiddleware(t, nil, "de"); got != "de" {
		t.Fatalf("locale = %q, want de", got)
	}
}

func TestResolveCountryPrefersProxyHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "nl")
	req.Header.Set("Accept-Language", "fr-FR")
	if got := ResolveCountry(req, nil); got != "NL" {
		t.Fatalf("country = %q, want NL", got)
	}
}

func TestResolveCountryUsesLookup(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4123"
	lookup := func(ip string) (string, error) {
		if ip != "203.0.113.9" {
			t.Fatalf("lookup ip = %q", ip)
		}
		return "br", nil
	}
	if got := ResolveCountry(req, lookup); got != "BR" {
		t.Fatalf("country = %q, want BR", got)
	}
}

func TestResolveCountryFallsBackToLanguageRegion(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "pt-BR")
	if got := ResolveCountry(req, nil); got != "BR" {
		t.Fatalf("country = %q, want BR", got)
	}
}

func TestClientIPFromForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ip = %q", got)
	}
}
