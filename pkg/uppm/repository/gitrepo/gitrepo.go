// Package gitrepo implements the Git repository backend of spec.md
// §4.E: a bare HTTPS Git URL is cloned (or fetched, if already checked
// out) into a caller-provided temporary folder, then walked like a
// filesystem repository.
package gitrepo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitclient "github.com/go-git/go-git/v5/plumbing/transport/client"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/loader"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
)

// gitURLPattern recognizes remote Git repository URLs per spec.md §6.
var gitURLPattern = regexp.MustCompile(`^https?://.*?\.git([?:]|$)`)

// Looks reports whether url has the shape of a remote Git repository
// reference, without touching the network.
func Looks(url string) bool {
	return gitURLPattern.MatchString(url)
}

// CertificatePolicy controls TLS handling for the HTTPS clone/fetch
// transport, per spec.md §3's Git repository data model.
type CertificatePolicy struct {
	// CABundle is a PEM-encoded certificate bundle used instead of the
	// system trust store, mirroring go-git's CloneOptions/FetchOptions
	// CABundle field.
	CABundle []byte
	// InsecureSkipVerify disables TLS verification entirely.
	InsecureSkipVerify bool
}

// Repository is a Git-backed repository.Repository. It shares
// go-git/v5's plain clone/fetch/worktree API rather than the low-level
// object-store plumbing, since uppm only ever needs a read-only
// checkout of one branch.
type Repository struct {
	url        string
	tempDir    string
	branch     string
	httpClient *http.Client
	engines    *engine.Registry

	certificatePolicy CertificatePolicy
	credentials       transport.AuthMethod
	customHeaders     map[string]string

	mu              sync.Mutex
	ready           bool
	fetchedOnce     bool
	lastRefreshErr  error
	checkoutPath    string
	catalog         map[reference.Complete]repository.CatalogEntry
	remoteReachable bool
	synchronized    bool
}

// Options configures a Repository beyond its URL.
type Options struct {
	// TempDir is the caller-provided temporary folder checkouts live
	// under (spec.md §6's "Persisted state").
	TempDir string
	// Branch is the branch to fetch and check out; defaults to "master"
	// per spec.md §4.E's "Git catalog build" note.
	Branch string
	// HTTPClient is used for the Exists() HEAD probe.
	HTTPClient *http.Client

	// CertificatePolicy governs TLS verification for clone/fetch.
	CertificatePolicy CertificatePolicy
	// Credentials authenticates clone/fetch, e.g. basic auth or an SSH
	// public-key method.
	Credentials transport.AuthMethod
	// CustomHeaders are attached to every HTTP request go-git issues
	// against this repository, e.g. an internal proxy's auth header.
	CustomHeaders map[string]string
	// NotSynchronized marks the repository as forbidden from
	// synchronizing with its remote: Refresh fails immediately and every
	// subsequent try_get_package reuses that failure without rescanning,
	// per spec.md §8's boundary test.
	NotSynchronized bool
}

// New constructs a Git repository for url, rooted under opts.TempDir.
func New(url string, engines *engine.Registry, opts Options) *Repository {
	branch := opts.Branch
	if branch == "" {
		branch = "master"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Repository{
		url:               url,
		tempDir:           opts.TempDir,
		branch:            branch,
		httpClient:        httpClient,
		engines:           engines,
		certificatePolicy: opts.CertificatePolicy,
		credentials:       opts.Credentials,
		customHeaders:     opts.CustomHeaders,
		synchronized:      !opts.NotSynchronized,
	}
}

func (r *Repository) URL() string { return r.url }

func (r *Repository) ReferenceSyntacticallyValid() bool { return Looks(r.url) }

// Exists probes reachability with an HTTP HEAD, per spec.md §4.E, and
// records the result as remote_reachable.
func (r *Repository) Exists(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.url, nil)
	if err != nil {
		r.setRemoteReachable(false)
		return false
	}
	for k, v := range r.customHeaders {
		req.Header.Set(k, v)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.setRemoteReachable(false)
		return false
	}
	defer resp.Body.Close()
	reachable := resp.StatusCode == http.StatusOK
	r.setRemoteReachable(reachable)
	return reachable
}

func (r *Repository) setRemoteReachable(v bool) {
	r.mu.Lock()
	r.remoteReachable = v
	r.mu.Unlock()
}

// RemoteReachable reports the outcome of the most recent Exists probe.
func (r *Repository) RemoteReachable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remoteReachable
}

// Synchronized reports whether this repository is allowed to fetch
// from its remote.
func (r *Repository) Synchronized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.synchronized
}

// SetSynchronized toggles whether Refresh is allowed to contact the
// remote. Marking a repository not-synchronized does not clear its
// existing catalog; it only blocks further refreshes.
func (r *Repository) SetSynchronized(v bool) {
	r.mu.Lock()
	r.synchronized = v
	r.mu.Unlock()
}

func (r *Repository) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// checkoutDir derives a stable local folder name from the SHA1 of the
// whole URL string (not from its host and path), so repeated runs
// against the same URL reuse one clone.
func (r *Repository) checkoutDir() string {
	sum := sha1.Sum([]byte(r.url))
	return filepath.Join(r.tempDir, hex.EncodeToString(sum[:]))
}

// Refresh opens the existing checkout, or clones the repository when
// there is none, then checks out r.branch and rescans the catalog. An
// opened checkout is fetched only on the first successful Refresh in
// this process; later calls check out and rescan without fetching.
func (r *Repository) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if !r.synchronized {
		r.mu.Unlock()
		err := errors.New("repository is marked not-synchronized")
		r.markFailed(err)
		return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: %s", r.url, err)
	}
	alreadyFetched := r.fetchedOnce
	dir := r.checkoutDir()
	r.mu.Unlock()

	restoreHeaders := r.installCustomHeaders()
	defer restoreHeaders()

	cloned := false
	repo, err := git.PlainOpen(dir)
	if err != nil && !alreadyFetched {
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:             r.url,
			Depth:           1,
			Auth:            r.credentials,
			CABundle:        r.certificatePolicy.CABundle,
			InsecureSkipTLS: r.certificatePolicy.InsecureSkipVerify,
		})
		cloned = true
	}
	if err != nil {
		r.markFailed(err)
		return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: %s", r.url, err)
	}

	if !cloned && !alreadyFetched {
		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName:      "origin",
			Auth:            r.credentials,
			CABundle:        r.certificatePolicy.CABundle,
			InsecureSkipTLS: r.certificatePolicy.InsecureSkipVerify,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			r.markFailed(err)
			return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: fetch: %s", r.url, err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		r.markFailed(err)
		return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: worktree: %s", r.url, err)
	}

	branchRef := plumbing.NewRemoteReferenceName("origin", r.branch)
	ref, err := repo.Reference(branchRef, true)
	if err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Hash: ref.Hash(), Force: true}); err != nil {
			r.markFailed(err)
			return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: checkout: %s", r.url, err)
		}
	} else if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(r.branch), Force: true}); err != nil {
		r.markFailed(err)
		return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: checkout %s: %s", r.url, r.branch, err)
	}

	catalog, err := walkCatalog(dir, r.url, r.engines)
	if err != nil {
		r.markFailed(err)
		return errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: scan: %s", r.url, err)
	}

	r.mu.Lock()
	r.fetchedOnce = true
	r.ready = true
	r.lastRefreshErr = nil
	r.checkoutPath = dir
	r.catalog = catalog
	r.mu.Unlock()
	return nil
}

// transportMu serializes the global HTTPS transport swap below, since
// go-git only exposes custom headers at the process-wide protocol
// level, not per CloneOptions/FetchOptions call.
var transportMu sync.Mutex

// installCustomHeaders swaps in go-git's HTTPS transport for the
// duration of one refresh so r.customHeaders reach every clone/fetch
// request, then restores the default transport.
func (r *Repository) installCustomHeaders() (restore func()) {
	if len(r.customHeaders) == 0 {
		return func() {}
	}
	transportMu.Lock()
	headers := r.customHeaders
	gitclient.InstallProtocol("https", githttp.NewClient(&http.Client{
		Transport: headerRoundTripper{headers: headers, base: http.DefaultTransport},
	}))
	return func() {
		gitclient.InstallProtocol("https", githttp.DefaultClient)
		transportMu.Unlock()
	}
}

// headerRoundTripper injects a fixed set of headers into every
// request before delegating to base.
type headerRoundTripper struct {
	headers map[string]string
	base    http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.base.RoundTrip(req)
}

func (r *Repository) markFailed(err error) {
	r.mu.Lock()
	r.ready = false
	r.lastRefreshErr = err
	r.mu.Unlock()
	logrus.WithError(err).WithField("url", r.url).Warn("gitrepo: refresh failed")
}

func (r *Repository) Catalog() map[reference.Complete]repository.CatalogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[reference.Complete]repository.CatalogEntry, len(r.catalog))
	for k, v := range r.catalog {
		out[k] = v
	}
	return out
}

func (r *Repository) entry(ref reference.Complete) (repository.CatalogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return repository.CatalogEntry{}, false
	}
	e, ok := r.catalog[ref]
	return e, ok
}

func (r *Repository) TryGetPackageText(ref reference.Complete) (string, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return "", false
	}
	data, err := readFile(e.Locator)
	if err != nil {
		logrus.WithError(err).WithField("path", e.Locator).Warn("gitrepo: failed to read package text")
		return "", false
	}
	return data, true
}

func (r *Repository) TryGetScriptEngine(ref reference.Complete, engines *engine.Registry) (engine.Engine, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return nil, false
	}
	return engines.Lookup(e.Extension)
}

func (r *Repository) LookupEngineExtension(ref reference.Complete) (string, bool) {
	e, ok := r.entry(ref)
	if !ok {
		return "", false
	}
	return e.Extension, true
}

func (r *Repository) TryInferReference(partial reference.Partial) (reference.Complete, bool) {
	return repository.InferReference(partial, r.url, r.Catalog())
}

func (r *Repository) TryGetPackage(partial reference.Partial, engines *engine.Registry) (repository.Package, bool, error) {
	r.mu.Lock()
	ready := r.ready
	lastErr := r.lastRefreshErr
	r.mu.Unlock()
	if !ready {
		if lastErr != nil {
			return repository.Package{}, false, errors.Wrapf(repository.ErrRepositoryRefreshFailed, "%s: %s", r.url, lastErr)
		}
		return repository.Package{}, false, repository.ErrRepositoryRefreshFailed
	}

	loaded, err := loader.Load(r, partial, engines)
	if err != nil {
		return repository.Package{}, false, err
	}
	entry, _ := r.entry(loaded.Ref)
	return repository.Package{Entry: entry, Engine: loaded.Engine, Text: loaded.Text, Meta: loaded.Meta}, true, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
