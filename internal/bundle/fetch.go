package bundle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"predictd/internal/common/fsutil"
)

// Fetch makes the bundle at src available in dir and returns its local path.
// src is a local path or an http(s) URL; the base name is kept. A nil client
// gets a default retrying client.
func Fetch(ctx context.Context, src, dir string, client *retryablehttp.Client) (string, error) {
	if src == "" {
		return "", fmt.Errorf("empty bundle source")
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return download(ctx, u, dir, client)
	}
	return copyLocal(src, dir)
}

func download(ctx context.Context, u *url.URL, dir string, client *retryablehttp.Client) (string, error) {
	name := path.Base(u.Path)
	if !isBundleExt(path.Ext(name)) {
		return "", fmt.Errorf("cannot infer bundle format from %s", u.Redacted())
	}
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = nil
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", u.Redacted(), resp.StatusCode)
	}
	return writeAtomic(filepath.Join(dir, name), resp.Body)
}

func copyLocal(src, dir string) (string, error) {
	abs, err := fsutil.AbsPath(src)
	if err != nil {
		return "", err
	}
	destDir, err := fsutil.AbsPath(dir)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filepath.Base(abs))
	if dest == abs {
		return dest, nil
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return writeAtomic(dest, f)
}

// writeAtomic writes r to a temp file next to dest and renames it into place.
func writeAtomic(dest string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+strings.TrimPrefix(filepath.Base(dest), ".")+".*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dest, nil
}
