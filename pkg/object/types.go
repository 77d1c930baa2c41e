package object

// Hash is a lowercase hex-encoded digest of an object's stored bytes.
type Hash string

// Short returns the first eight characters of h for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// Kind identifies what an object or index entry refers to.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

// ParseKind parses the kind column of a manifest or index line. Only blob
// and tree appear there; commits are never tree or index members.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindBlob, KindTree:
		return Kind(s), true
	}
	return "", false
}

// TreeEntry is one child of a directory manifest.
type TreeEntry struct {
	Kind Kind
	Hash Hash
	Name string
}

// TreeObj is a directory manifest. Entries are serialized sorted by Name.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj links a root tree to its parent commit.
type CommitObj struct {
	TreeHash  Hash
	Parent    Hash // empty for the first commit
	Author    string
	Timestamp string
	Message   string
}
