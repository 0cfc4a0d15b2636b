package resources

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/yargevad/filepathx"
)

// NormalizeExtensions strips leading dots and empty entries, so `.tar`,
// `tar` and `tar,` all mean the same filter.
func NormalizeExtensions(exts []string) []string {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return normalized
}

func hasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}
	return false
}

// PathInfo describes one discovered shard. Size is zero when the location
// does not report one (http URLs).
type PathInfo struct {
	Path string
	Size int64
}

// ExpandPaths
// Expands input locations into shard paths. See ExpandPathInfos.
func ExpandPaths(locations []string, exts []string, s3c S3Client) ([]string,
	error) {
	infos, err := ExpandPathInfos(locations, exts, s3c)
	if err != nil {
		return nil, err
	}
	return GetPaths(infos), nil
}

// GetPaths returns just the paths of infos, in order.
func GetPaths(infos []PathInfo) []string {
	paths := make([]string, len(infos))
	for idx := range infos {
		paths[idx] = infos[idx].Path
	}
	return paths
}

// ExpandPathInfos
// Expands input locations into shard paths and sizes. Local directories are
// searched recursively for files with one of the extensions, `s3://`
// prefixes are listed recursively, and literal files and http(s) URLs are
// kept as-is.
// Each location's matches are sorted, and a path seen earlier is dropped.
// A literal local path that does not exist, or an S3 prefix with no objects,
// is an error. An empty extension filter matches every file.
func ExpandPathInfos(locations []string, exts []string,
	s3c S3Client) ([]PathInfo, error) {
	exts = NormalizeExtensions(exts)
	seen := make(map[string]struct{})
	infos := make([]PathInfo, 0)
	for _, location := range locations {
		var expanded []PathInfo
		var err error
		switch {
		case IsS3URI(location):
			expanded, err = expandS3(location, exts, s3c)
		case isValidUrl(location):
			expanded = []PathInfo{{Path: location}}
		default:
			expanded, err = expandLocal(location, exts)
		}
		if err != nil {
			return nil, err
		}
		SortPathInfoByPath(expanded, true)
		for _, info := range expanded {
			if _, dup := seen[info.Path]; dup {
				continue
			}
			seen[info.Path] = struct{}{}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func expandLocal(location string, exts []string) ([]PathInfo, error) {
	stat, statErr := os.Stat(location)
	if statErr != nil {
		return nil, &IOError{"stat", location, statErr}
	}
	if !stat.IsDir() {
		return []PathInfo{{filepath.Clean(location), stat.Size()}}, nil
	}
	// The directory itself is a single escaped glob segment: filepathx
	// joins already matched paths into later segments unescaped, so any
	// `**/*.ext` suffix would miss everything under a name like `a[1]`.
	// Walking the whole tree and filtering gives the same matches. The walk
	// does not descend into a symlinked root, so it starts from the target.
	base := filepath.Clean(location)
	root := base
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		root = resolved
	}
	globbed, globErr := filepathx.Globs{escapeGlob(root)}.Expand()
	if globErr != nil {
		return nil, &IOError{"glob", location, globErr}
	}
	matches := make([]PathInfo, 0)
	for _, match := range globbed {
		if !hasExtension(match, exts) {
			continue
		}
		info, err := os.Stat(match)
		if err != nil {
			return nil, &IOError{"stat", match, err}
		} else if !info.Mode().IsRegular() {
			// Directories named like shards.
			continue
		}
		path := match
		if rel, relErr := filepath.Rel(root, match); relErr == nil {
			path = filepath.Join(base, rel)
		}
		matches = append(matches, PathInfo{path, info.Size()})
	}
	return matches, nil
}

// escapeGlob quotes the filepath.Match metacharacters in path.
func escapeGlob(path string) string {
	var escaped strings.Builder
	for _, r := range path {
		if strings.ContainsRune(`\*?[`, r) {
			escaped.WriteRune('\\')
		}
		escaped.WriteRune(r)
	}
	return escaped.String()
}

func expandS3(location string, exts []string, s3c S3Client) ([]PathInfo,
	error) {
	if s3c == nil {
		return nil, &IOError{"list", location, errNoS3Client}
	}
	bucket, prefix, parseErr := ParseS3URI(location)
	if parseErr != nil {
		return nil, &IOError{"list", location, parseErr}
	}

	// A key naming an object is a literal shard, like a local file.
	// Anything else is a directory: listing `data/` keeps `data_backup/`
	// and `data/a.tar.old/` out.
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		obj, statErr := statObjectS3(s3c, bucket, prefix)
		if statErr != nil {
			return nil, &IOError{"list", location, statErr}
		}
		if obj != nil {
			return []PathInfo{{s3URI(bucket, prefix),
				aws.Int64Value(obj.Size)}}, nil
		}
		prefix += "/"
	}

	objects := make(chan *s3.Object, 1024)
	listErr := make(chan error, 1)
	go func() {
		listErr <- getObjectsS3Recursively(s3c, bucket, prefix, objects)
		close(objects)
	}()

	listed := 0
	matches := make([]PathInfo, 0)
	for obj := range objects {
		listed++
		key := aws.StringValue(obj.Key)
		if key == "" || strings.HasSuffix(key, "/") ||
			!hasExtension(key, exts) {
			continue
		}
		matches = append(matches,
			PathInfo{s3URI(bucket, key), aws.Int64Value(obj.Size)})
	}
	if err := <-listErr; err != nil {
		return nil, &IOError{"list", location, err}
	}
	if listed == 0 {
		return nil, &IOError{"list", location,
			errors.New("no objects found")}
	}
	return matches, nil
}
