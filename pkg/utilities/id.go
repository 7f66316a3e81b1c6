package utilities

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
	"golang.org/x/text/unicode/norm"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// snowflakeNode returns the process-wide node. The node ID comes from the
// SNOWFLAKE_NODE environment variable and defaults to 1.
func snowflakeNode() *snowflake.Node {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	return node
}

// NewSnowflakeID generates a snowflake ID string. IDs generated by one
// process are unique and increase over time.
func NewSnowflakeID() string {
	return snowflakeNode().Generate().String()
}

// Slugify lowercases s, strips accents and replaces every run of
// non-alphanumeric characters with a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NewSlug returns a slug for title that is unique across the process, made
// of the slugified title and a snowflake ID.
func NewSlug(title string) string {
	base := Slugify(title)
	if len(base) > 40 {
		base = strings.TrimSuffix(base[:40], "-")
	}
	if base == "" {
		return NewSnowflakeID()
	}
	return base + "-" + NewSnowflakeID()
}
