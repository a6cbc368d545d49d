package objectkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName string
	Folder   string // "properties", "investments", "uploads", ...
}

// DefaultFolder is used when no folder is given.
const DefaultFolder = "uploads"

// FlatGenerator keeps one directory per folder: {folder}/{objectID}_{filename}
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	folder, filename := parts(metadata)
	if filename == "" {
		return fmt.Sprintf("%s/%s", folder, objectID)
	}
	return fmt.Sprintf("%s/%s_%s", folder, objectID, filename)
}

// GitLikeGenerator shards keys Git-style below a folder:
// images/{folder}/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
	// Prefix is the root directory of every key (default: images)
	Prefix string
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		ShardLength: 2,
		Prefix:      "images",
	}
}

func (g *GitLikeGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	objectIDStr := strings.ReplaceAll(objectID.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength > len(objectIDStr) {
		shardLength = 2
	}
	shardDir := objectIDStr[:shardLength]
	remaining := objectIDStr[shardLength:]

	folder, filename := parts(metadata)
	if filename != "" {
		remaining = fmt.Sprintf("%s_%s", remaining, filename)
	}
	if g.Prefix == "" {
		return fmt.Sprintf("%s/%s/%s", folder, shardDir, remaining)
	}
	return fmt.Sprintf("%s/%s/%s/%s", g.Prefix, folder, shardDir, remaining)
}

// NewRecommendedGenerator returns the generator used for new installations
func NewRecommendedGenerator() Generator {
	return NewGitLikeGenerator()
}

func parts(metadata *KeyMetadata) (folder, filename string) {
	folder = DefaultFolder
	if metadata == nil {
		return folder, ""
	}
	if metadata.Folder != "" {
		folder = sanitizePathComponent(metadata.Folder)
	}
	return folder, sanitizeFilename(metadata.FileName)
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
	"#", "_",
	"%", "_",
)

// sanitizeFilename replaces characters that break paths or URLs
func sanitizeFilename(filename string) string {
	return unsafeChars.Replace(filename)
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(unsafeChars.Replace(component))
}
