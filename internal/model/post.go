package model

import "time"

type Post struct {
	ID          int64
	AuthorID    int64
	Title       string
	Content     string
	PublishedAt time.Time
}

// PostThread is a post together with its comments ordered by id.
type PostThread struct {
	Post
	Comments []Comment
}
