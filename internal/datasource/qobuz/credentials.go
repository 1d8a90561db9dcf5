// Package qobuz adapts the Qobuz streaming catalog to the data source
// contract. Browsing is search-driven: Qobuz exposes no cheap way to
// enumerate a user's library through the public endpoints, so listing
// operations report themselves as unimplemented.
package qobuz

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	loginPageURL = "https://play.qobuz.com/login"
	apiBaseURL   = "https://www.qobuz.com/api.json/0.2"
)

// AppCredentials is the application id/secret pair every Qobuz API call
// must be signed with.
type AppCredentials struct {
	AppID     string
	AppSecret string
}

// FetchAppCredentials scrapes the web player bundle for a working app id
// and secret. The bundle layout shifts between releases, so several
// patterns are tried and each candidate secret is validated against the
// API before being returned.
func FetchAppCredentials() (AppCredentials, error) {
	bundleURL, err := findBundleURL()
	if err != nil {
		return AppCredentials{}, fmt.Errorf("failed to locate web player bundle: %w", err)
	}
	appID, secrets, err := scrapeBundle(bundleURL)
	if err != nil {
		return AppCredentials{}, fmt.Errorf("failed to scrape bundle: %w", err)
	}
	secret, err := pickWorkingSecret(appID, secrets)
	if err != nil {
		return AppCredentials{}, err
	}
	return AppCredentials{AppID: appID, AppSecret: secret}, nil
}

func findBundleURL() (string, error) {
	resp, err := http.Get(loginPageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	pattern := regexp.MustCompile(`<script[^>]+src="([^"]*bundle[^"]*\.js)"`)
	matches := pattern.FindSubmatch(body)
	if len(matches) < 2 {
		pattern = regexp.MustCompile(`"(/resources/\d+\.\d+\.\d+-[^/]+/bundle\.js)"`)
		matches = pattern.FindSubmatch(body)
		if len(matches) < 2 {
			return "", fmt.Errorf("bundle script not found in login page")
		}
	}

	path := string(matches[1])
	if !strings.HasPrefix(path, "http") {
		path = "https://play.qobuz.com" + path
	}
	return path, nil
}

func scrapeBundle(bundleURL string) (string, []string, error) {
	resp, err := http.Get(bundleURL)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	bundle := string(body)

	appIDPattern := regexp.MustCompile(`production:\{api:\{appId:"(\d{9})"`)
	appIDMatches := appIDPattern.FindStringSubmatch(bundle)
	if len(appIDMatches) < 2 {
		appIDPattern = regexp.MustCompile(`app_id:\s*["'](\d{9})["']`)
		appIDMatches = appIDPattern.FindStringSubmatch(bundle)
		if len(appIDMatches) < 2 {
			return "", nil, fmt.Errorf("app id not found in bundle")
		}
	}

	secrets := scrapeSecrets(bundle)
	if len(secrets) == 0 {
		return "", nil, fmt.Errorf("no secret candidates found in bundle")
	}
	return appIDMatches[1], secrets, nil
}

func scrapeSecrets(bundle string) []string {
	var secrets []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			secrets = append(secrets, s)
		}
	}

	// newer bundles split the secret into base64 seed/info/extras chunks
	chunked := regexp.MustCompile(`\{[^{}]*?seed:"([^"]+)"[^{}]*?info:"([^"]+)"[^{}]*?extras:"([^"]+)"[^{}]*?\}`)
	for _, match := range chunked.FindAllStringSubmatch(bundle, -1) {
		if secret, err := joinSecretChunks(match[1], match[2], match[3]); err == nil {
			add(secret)
		}
	}

	// older bundles carry the secret as a bare 32-char hex literal
	direct := regexp.MustCompile(`["']([a-f0-9]{32})["']`)
	for _, match := range direct.FindAllStringSubmatch(bundle, -1) {
		add(match[1])
	}
	return secrets
}

func joinSecretChunks(seed, info, extras string) (string, error) {
	var parts []string
	for _, chunk := range []string{seed, info, extras} {
		decoded, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(decoded))
	}
	return strings.Join(parts, ""), nil
}

func pickWorkingSecret(appID string, secrets []string) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	for _, secret := range secrets {
		if secretWorks(client, appID, secret) {
			return secret, nil
		}
	}
	return "", fmt.Errorf("no working secret among %d candidates", len(secrets))
}

// secretWorks probes track/getFileUrl, the one endpoint that verifies the
// request signature. Any response other than 400 means the signature was
// accepted; 401 for a logged-out probe still counts.
func secretWorks(client *http.Client, appID, secret string) bool {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	const probeTrackID = "5966783"

	sigInput := fmt.Sprintf("track/getFileUrlformat5intentstreamtrack_id%srequest_ts%s%s",
		probeTrackID, timestamp, secret)
	hash := md5.Sum([]byte(sigInput))
	signature := hex.EncodeToString(hash[:])

	url := fmt.Sprintf("%s/track/getFileUrl?track_id=%s&format_id=5&intent=stream&request_ts=%s&request_sig=%s&app_id=%s",
		apiBaseURL, probeTrackID, timestamp, signature, appID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode != http.StatusBadRequest
}
