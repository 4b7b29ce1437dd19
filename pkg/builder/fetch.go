package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

var varMatcher = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// expandURL fills {VERSION}-style placeholders in the URL template. Unknown
// placeholders are replaced with an empty string.
func expandURL(template string, vars map[string]string) string {
	return varMatcher.ReplaceAllStringFunc(template, func(varName string) string {
		value, ok := vars[varName[1:len(varName)-1]]
		if !ok {
			return ""
		}

		return value
	})
}

// archiveSuffix returns the archive extension of the given URL; the extract
// phase uses it to pick the right decompressor.
func archiveSuffix(url string) string {
	for _, suffix := range []string{".tar.gz", ".tar.xz", ".tgz"} {
		if strings.HasSuffix(url, suffix) {
			return suffix
		}
	}

	return path.Ext(url)
}

// httpStatusError marks download failures caused by an HTTP error response
// as opposed to connection problems.
type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.url, e.status)
}

// retryable reports whether a download error is worth another attempt.
// Connection failures and transient status codes are; anything else (404 and
// friends) aborts immediately.
func retryable(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return statusErr.status >= 500
		}
	}

	return true
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// fetch downloads the source archive and its detached signature into the
// scratch area and returns the path of the archive.
func (b *Builder) fetch(ctx context.Context, version *semver.Version) (string, error) {
	sourceURL := expandURL(b.cfg.Fetch.URL, map[string]string{
		"VERSION": version.String(),
	})

	client := &http.Client{
		Timeout: b.cfg.Fetch.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: b.cfg.Fetch.ConnectTimeout,
			}).DialContext,
		},
	}

	archivePath := filepath.Join(filepath.Dir(b.cfg.SrcDir), "python"+archiveSuffix(sourceURL))
	if err := b.download(ctx, client, sourceURL, archivePath); err != nil {
		return "", err
	}

	// The upstream release signature is kept next to the sources, but
	// nothing checks it against the release manager keys yet.
	if err := b.download(ctx, client, sourceURL+".asc", archivePath+".asc"); err != nil {
		return "", err
	}
	log(ctx).Warn().Str("phase", "fetch").Msg("Source signature downloaded but not verified")

	return archivePath, nil
}

// download retrieves a single URL, retrying transient failures with
// exponential backoff.
func (b *Builder) download(ctx context.Context, client *http.Client, url, dest string) error {
	log(ctx).Info().Str("phase", "fetch").Msgf("Downloading %s", url)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(b.cfg.Fetch.Retries)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := downloadOnce(client, url, dest)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}, policy)
}

func downloadOnce(client *http.Client, url, dest string) error {
	resp, err := client.Get(url)
	if err != nil {
		return eris.Wrapf(err, "Failed to start download for %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{status: resp.StatusCode, url: url}
	}

	handle, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "Failed to create %s", dest)
	}

	bar := getProgressBar(resp.ContentLength, "     download")
	if _, err := io.Copy(io.MultiWriter(handle, bar), resp.Body); err != nil {
		handle.Close()
		return eris.Wrapf(err, "Failed during download of %s", url)
	}
	bar.Finish()

	if err := handle.Close(); err != nil {
		return eris.Wrapf(err, "Failed to write download to file %s", dest)
	}

	return nil
}
