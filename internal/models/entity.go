package models

// Links are computed per response from the service base URL, never stored.
type Links struct {
	Self     string `json:"self"`
	Archives string `json:"archives"`
}

type EntityMeta struct {
	Links Links `json:"links"`
}

// UserEntity is the wire representation of a user. The pass field carries the
// stored password hash verbatim; known issue inherited from the upstream
// contract, kept for compatibility rather than silently dropped.
type UserEntity struct {
	ID          int64            `json:"ID"`
	Login       string           `json:"login"`
	Pass        string           `json:"pass"`
	Nicename    string           `json:"nicename"`
	Email       string           `json:"email"`
	URL         string           `json:"url"`
	Registered  string           `json:"registered"`
	DisplayName string           `json:"display_name"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Nickname    string           `json:"nickname"`
	Description string           `json:"description"`
	Meta        EntityMeta       `json:"meta"`
	UserMeta    map[string][]any `json:"user_meta,omitempty"`
}

// UserPatch is a partial-update payload. ID, login, pass and registered are
// deliberately not representable here: submitting them is silently ignored,
// never an error. An empty string means "leave the stored value alone".
type UserPatch struct {
	Nicename    string         `json:"nicename"`
	Email       string         `json:"email"`
	URL         string         `json:"url"`
	DisplayName string         `json:"display_name"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Nickname    string         `json:"nickname"`
	Description string         `json:"description"`
	UserMeta    map[string]any `json:"user_meta"`
}
