package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hugr-lab/lazyscan/cloud"
)

// S3 expands s3:// and s3a:// paths with ListObjectsV2.
type S3 struct {
	client s3.ListObjectsV2APIClient
}

// NewS3 creates an S3 expander over client.
func NewS3(client s3.ListObjectsV2APIClient) *S3 {
	return &S3{client: client}
}

// Expand implements Expander.
//
// A key that exists as an object is a literal file. Otherwise the key is
// treated as a directory prefix and every object below it is returned.
// Patterns are listed under their literal prefix and matched key by key.
func (s *S3) Expand(ctx context.Context, p string) (Listing, error) {
	u, err := cloud.Parse(p)
	if err != nil {
		return Listing{}, &Error{Op: "list", Path: p, Err: err}
	}
	if !u.IsS3() {
		return Listing{}, &Error{Op: "list", Path: p, Err: fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)}
	}

	if HasGlob(u.Key) {
		return s.glob(ctx, p, u)
	}

	key := strings.TrimSuffix(u.Key, "/")
	keys, err := s.list(ctx, p, u.Bucket, key)
	if err != nil {
		return Listing{}, err
	}

	if key != "" && !strings.HasSuffix(u.Key, "/") {
		for _, k := range keys {
			if k == key {
				return Listing{Files: []string{p}}, nil
			}
		}
	}

	dir := key
	if dir != "" {
		dir += "/"
	}
	var files []string
	for _, k := range keys {
		if !strings.HasPrefix(k, dir) || strings.HasSuffix(k, "/") || hiddenKey(k[len(dir):]) {
			continue
		}
		files = append(files, cloud.URL{Scheme: u.Scheme, Bucket: u.Bucket, Key: k}.String())
	}
	if len(files) == 0 {
		return Listing{}, &Error{Op: "list", Path: p, Err: ErrNotFound}
	}
	sort.Strings(files)

	base := cloud.URL{Scheme: u.Scheme, Bucket: u.Bucket, Key: key}.String()
	return Listing{Files: files, Depth: len(Components(base))}, nil
}

func (s *S3) glob(ctx context.Context, p string, u cloud.URL) (Listing, error) {
	idx := GlobStartIndex(u.Key)
	prefix := u.Key[:strings.LastIndex(u.Key[:idx], "/")+1]

	keys, err := s.list(ctx, p, u.Bucket, prefix)
	if err != nil {
		return Listing{}, err
	}

	var files []string
	for _, k := range keys {
		if strings.HasSuffix(k, "/") {
			continue
		}
		ok, err := matchPath(u.Key, k)
		if err != nil {
			return Listing{}, &Error{Op: "glob", Path: p, Err: err}
		}
		if ok {
			files = append(files, cloud.URL{Scheme: u.Scheme, Bucket: u.Bucket, Key: k}.String())
		}
	}
	if len(files) == 0 {
		return Listing{}, &Error{Op: "glob", Path: p, Err: ErrNoMatch}
	}
	sort.Strings(files)

	base := cloud.URL{Scheme: u.Scheme, Bucket: u.Bucket, Key: strings.TrimSuffix(prefix, "/")}.String()
	return Listing{Files: files, Depth: len(Components(base))}, nil
}

// list returns every key under prefix, following continuation tokens.
func (s *S3) list(ctx context.Context, p, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	pager := s3.NewListObjectsV2Paginator(s.client, input)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "list", Path: p, Err: fmt.Errorf("%w: %w", ErrListing, err)}
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// hiddenKey reports whether any segment of a relative key is hidden.
func hiddenKey(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if hiddenName(seg) {
			return true
		}
	}
	return false
}
