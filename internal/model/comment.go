package model

import "time"

type Comment struct {
	ID          int64
	PostID      int64
	AuthorID    int64
	Title       string
	Content     string
	PublishedAt time.Time
}
