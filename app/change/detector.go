package change

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/lysyi3m/landing-comb/app/content"
)

// Change is a post that is new to the cache or whose fingerprint moved.
type Change struct {
	Post  content.Post
	IsNew bool
}

// Checksum fingerprints a post by slug, title and modified, concatenated as-is.
func Checksum(slug, title, modified string) string {
	sum := md5.Sum([]byte(slug + title + modified))
	return hex.EncodeToString(sum[:])
}

func PostChecksum(post content.Post) string {
	return Checksum(post.Slug, post.Title, post.Modified)
}

// Fingerprint converts a fetched post to its cache record.
func Fingerprint(post content.Post) content.CachedPost {
	return content.CachedPost{
		Slug:       post.Slug,
		Title:      post.Title,
		Modified:   post.Modified,
		Checksum:   PostChecksum(post),
		Categories: post.Categories,
		Date:       post.Date,
	}
}

// FingerprintAll returns one cache record per slug; the first occurrence of a slug wins.
func FingerprintAll(posts []content.Post) []content.CachedPost {
	records := make([]content.CachedPost, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, post := range posts {
		if seen[post.Slug] {
			continue
		}
		seen[post.Slug] = true
		records = append(records, Fingerprint(post))
	}
	return records
}

// Detect classifies latest against cached and returns the new and updated posts in latest order.
// Only the first occurrence of a slug within latest is considered.
func Detect(latest []content.Post, cached []content.CachedPost) []Change {
	known := make(map[string]string, len(cached))
	for _, record := range cached {
		sum := record.Checksum
		if sum == "" {
			sum = Checksum(record.Slug, record.Title, record.Modified)
		}
		known[record.Slug] = sum
	}

	seen := make(map[string]bool)
	var changes []Change
	for _, post := range latest {
		if seen[post.Slug] {
			continue
		}
		seen[post.Slug] = true

		previous, ok := known[post.Slug]
		switch {
		case !ok:
			changes = append(changes, Change{Post: post, IsNew: true})
		case previous != PostChecksum(post):
			changes = append(changes, Change{Post: post, IsNew: false})
		}
	}

	return changes
}
