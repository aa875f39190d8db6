package github

// Entry is one item in a directory listing from the contents API.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// File is the contents-API representation of a single file. Content is
// transport-encoded; use DecodeContent to recover the original text.
// SHA is the version token required for optimistic updates and deletes.
type File struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Committer is the authorship recorded on a commit.
type Committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PutRequest is the body for a contents-API create or update.
// An empty SHA asserts the file must not already exist (create); a
// non-empty SHA asserts it must match the stored version (update).
type PutRequest struct {
	Message   string    `json:"message"`
	Content   string    `json:"content"`
	Committer Committer `json:"committer"`
	SHA       string    `json:"sha,omitempty"`
}

// DeleteRequest is the body for a contents-API delete. SHA is mandatory.
type DeleteRequest struct {
	Message   string    `json:"message"`
	SHA       string    `json:"sha"`
	Committer Committer `json:"committer"`
}

// User is the authenticated identity.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}
