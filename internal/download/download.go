// Package download fetches the WebDriver executables, and optionally a
// Chromium snapshot, that local test runs drive.
package download

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/google/go-github/v27/github"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// Pinned driver versions. Update these periodically.
const (
	ChromeDriverVersion = "131.0.6778.85"
	EdgeDriverVersion   = "131.0.2903.70"
)

// File describes how to download a file from the Web.
type File struct {
	url      string
	Name     string
	hash     string
	hashType string // default is sha256
	// Rename moves Rename[0] to Rename[1], both relative to the download
	// directory, once the archive is unpacked.
	Rename []string
	// Browser marks browser builds, as opposed to driver executables.
	Browser bool

	directory string
}

// Path is the location of the downloaded file.
func (f File) Path() string {
	if f.directory != "" {
		return filepath.Join(f.directory, f.Name)
	}
	return f.Name
}

// URL is where the file is fetched from.
func (f File) URL() string {
	return f.url
}

// ChromeDriverFile describes the Chrome for Testing chromedriver build for
// version. The executable is installed as chromedriver-<version>.
func ChromeDriverFile(version string) File {
	return File{
		url:    fmt.Sprintf("https://storage.googleapis.com/chrome-for-testing-public/%s/linux64/chromedriver-linux64.zip", version),
		Name:   "chromedriver.zip",
		Rename: []string{"chromedriver-linux64/chromedriver", "chromedriver-" + version},
	}
}

// EdgeDriverFile describes the msedgedriver build for version. The executable
// is installed as msedgedriver-<version>.
func EdgeDriverFile(version string) File {
	return File{
		url:    fmt.Sprintf("https://msedgedriver.azureedge.net/%s/edgedriver_linux64.zip", version),
		Name:   "msedgedriver.zip",
		Rename: []string{"msedgedriver", "msedgedriver-" + version},
	}
}

// release is the part of a GitHub release the downloader looks at.
type release struct {
	tag    string
	assets map[string]string // asset name -> download URL
}

var latestRelease = func(ctx context.Context, owner, repo string) (release, error) {
	rel, _, err := github.NewClient(nil).Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return release{}, err
	}
	r := release{tag: rel.GetTagName(), assets: make(map[string]string)}
	for _, a := range rel.Assets {
		r.assets[a.GetName()] = a.GetBrowserDownloadURL()
	}
	return r, nil
}

// GeckodriverFile describes the geckodriver of the latest GitHub release.
func GeckodriverFile(ctx context.Context) (File, error) {
	return latestGithubRelease(ctx, "mozilla", "geckodriver", `geckodriver-.*linux64\.tar\.gz$`, "geckodriver.tar.gz", "geckodriver")
}

// latestGithubRelease describes the asset of the latest release of
// owner/repo that matches assetName. The unpacked binary is installed as
// <binary>-<release version>.
func latestGithubRelease(ctx context.Context, owner, repo, assetName, localFileName, binary string) (File, error) {
	rel, err := latestRelease(ctx, owner, repo)
	if err != nil {
		return File{}, err
	}
	assetNameRE, err := regexp.Compile(assetName)
	if err != nil {
		return File{}, fmt.Errorf("invalid asset name regular expression %q: %s", assetName, err)
	}
	names := make([]string, 0, len(rel.assets))
	for name := range rel.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	version := strings.TrimPrefix(rel.tag, "v")
	for _, name := range names {
		if !assetNameRE.MatchString(name) {
			continue
		}
		u := rel.assets[name]
		if u == "" {
			return File{}, fmt.Errorf("%s does not have a download URL", name)
		}
		return File{
			url:    u,
			Name:   localFileName,
			Rename: []string{binary, binary + "-" + version},
		}, nil
	}
	return File{}, fmt.Errorf("release for %s not found at https://github.com/%s/%s/releases", assetName, owner, repo)
}

// ChromiumSnapshotFile describes the latest Chromium snapshot build.
func ChromiumSnapshotFile(ctx context.Context) (File, error) {
	const (
		storageBktName = "chromium-browser-snapshots"
		prefixLinux64  = "Linux_x64"
		lastChangeFile = "Linux_x64/LAST_CHANGE"
		chromeFilename = "chrome-linux.zip"
	)

	gcsPath := fmt.Sprintf("gs://%s/", storageBktName)
	client, err := storage.NewClient(ctx, option.WithHTTPClient(http.DefaultClient))
	if err != nil {
		return File{}, fmt.Errorf("cannot create a storage client for downloading the chrome browser: %v", err)
	}
	defer client.Close()

	bkt := client.Bucket(storageBktName)
	r, err := bkt.Object(lastChangeFile).NewReader(ctx)
	if err != nil {
		return File{}, fmt.Errorf("cannot create a reader for %s%s file: %v", gcsPath, lastChangeFile, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("cannot read from %s%s file: %v", gcsPath, lastChangeFile, err)
	}

	build := strings.TrimSpace(string(data))
	pkg := path.Join(prefixLinux64, build, chromeFilename)
	attrs, err := bkt.Object(pkg).Attrs(ctx)
	if err != nil {
		return File{}, fmt.Errorf("cannot get the chrome package %s%s attrs: %v", gcsPath, pkg, err)
	}

	return File{
		Name:     chromeFilename,
		Browser:  true,
		hash:     hex.EncodeToString(attrs.MD5),
		hashType: "md5",
		url:      attrs.MediaLink,
	}, nil
}

// Files lists the downloads for the named browsers. Unknown names are an
// error. The Chromium snapshot is included when withBrowser is set and
// chrome is requested.
func Files(ctx context.Context, browsers []string, withBrowser bool) ([]File, error) {
	var files []File
	for _, b := range browsers {
		switch strings.ToLower(b) {
		case "chrome":
			files = append(files, ChromeDriverFile(ChromeDriverVersion))
			if withBrowser {
				f, err := ChromiumSnapshotFile(ctx)
				if err != nil {
					return nil, err
				}
				files = append(files, f)
			}
		case "firefox":
			f, err := GeckodriverFile(ctx)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		case "edge":
			files = append(files, EdgeDriverFile(EdgeDriverVersion))
		default:
			return nil, fmt.Errorf("no driver download known for browser %q", b)
		}
	}
	return files, nil
}

// Download a file if it is not already present. If directory is the empty
// string, the files will be downloaded to the current directory.
func Download(file File, directory string) error {
	file.directory = directory

	if file.hash != "" && fileSameHash(file) {
		glog.Infof("Skipping file %q which has already been downloaded.", file.Name)
	} else {
		glog.Infof("Downloading %q from %q", file.Name, file.url)
		if err := downloadFile(file); err != nil {
			return err
		}
	}

	if err := unzipArchive(file); err != nil {
		return err
	}

	if rename := file.Rename; len(rename) == 2 {
		from := filepath.Join(file.directory, rename[0])
		to := filepath.Join(file.directory, rename[1])
		glog.Infof("Renaming %q to %q", from, to)
		os.RemoveAll(to) // Ignore error.
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("renaming %q to %q: %w", from, to, err)
		}
		if !file.Browser {
			if err := os.Chmod(to, 0o755); err != nil {
				return fmt.Errorf("making %q executable: %w", to, err)
			}
		}
	}
	return nil
}

// DownloadAll fetches files into directory in parallel.
func DownloadAll(ctx context.Context, files []File, directory string) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	wg, _ := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		wg.Go(func() error {
			if err := Download(file, directory); err != nil {
				return fmt.Errorf("error handling %s: %w", file.Name, err)
			}
			return nil
		})
	}
	return wg.Wait()
}

func newHash(hashType string) hash.Hash {
	switch strings.ToLower(hashType) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	default:
		return sha256.New()
	}
}

func downloadFile(file File) (err error) {
	f, err := os.Create(file.Path())
	if err != nil {
		return fmt.Errorf("error creating %q: %v", file.Path(), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %q: %v", file.Path(), closeErr)
		}
	}()

	resp, err := http.Get(file.url)
	if err != nil {
		return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: downloading %q: %s", file.Name, file.url, resp.Status)
	}

	if file.hash == "" {
		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.url, err)
		}
		return nil
	}
	h := newHash(file.hashType)
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.url, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != file.hash {
		return fmt.Errorf("%s: got %s hash %q, want %q", file.Name, file.hashType, got, file.hash)
	}
	return nil
}

func fileSameHash(file File) bool {
	f, err := os.Open(file.Path())
	if err != nil {
		return false
	}
	defer f.Close()

	h := newHash(file.hashType)
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.hash)
		return false
	}
	return true
}

func unzipArchive(file File) error {
	dir := "."
	if file.directory != "" {
		dir = file.directory
	}

	var unzipCmd []string
	switch path.Ext(file.Name) {
	case ".zip":
		unzipCmd = []string{"unzip", "-d", dir, "-o", file.Path()}
	case ".gz":
		unzipCmd = []string{"tar", "-xzf", file.Path(), "-C", dir}
	case ".bz2":
		unzipCmd = []string{"tar", "-xjf", file.Path(), "-C", dir}
	default:
		return nil
	}

	glog.Infof("Unzipping %q", file.Path())
	if out, err := exec.Command(unzipCmd[0], unzipCmd[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("error unzipping %q: %v\n%s", file.Name, err, out)
	}
	return nil
}
