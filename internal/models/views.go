package models

// PostView is a post as rendered to clients.
type PostView struct {
	Post
	Author *Author `json:"author"`
}

// CommentView is a comment as rendered to clients. Root comments carry
// their replies; replies carry an empty list.
type CommentView struct {
	Comment
	Author  *Author       `json:"author"`
	Replies []CommentView `json:"replies"`
}
