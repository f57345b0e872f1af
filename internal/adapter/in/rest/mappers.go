package rest

import (
	"time"

	"blogapi/internal/model"
	"blogapi/pkg/pagination"
)

const dateLayout = "02-01-2006 15:04:05"

type userDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type commentDTO struct {
	ID                  int64  `json:"id"`
	PostID              int64  `json:"post_id"`
	AuthorID            int64  `json:"author_id"`
	Title               string `json:"title"`
	Content             string `json:"content"`
	PublicationDatetime string `json:"publication_datetime"`
}

type postDTO struct {
	ID                  int64        `json:"id"`
	AuthorID            int64        `json:"author_id"`
	Title               string       `json:"title"`
	Content             string       `json:"content"`
	PublicationDatetime string       `json:"publication_datetime"`
	Comments            []commentDTO `json:"comments"`
}

type pageInfoDTO struct {
	Count           int    `json:"count"`
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	StartCursor     string `json:"start_cursor"`
	EndCursor       string `json:"end_cursor"`
}

type postsPageDTO struct {
	Data       []postDTO   `json:"data"`
	Pagination pageInfoDTO `json:"pagination"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func toUserDTO(u model.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Username: u.Username}
}

func toCommentDTO(c model.Comment) commentDTO {
	return commentDTO{
		ID:                  c.ID,
		PostID:              c.PostID,
		AuthorID:            c.AuthorID,
		Title:               c.Title,
		Content:             c.Content,
		PublicationDatetime: formatTime(c.PublishedAt),
	}
}

func toPostDTO(t model.PostThread) postDTO {
	comments := make([]commentDTO, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, toCommentDTO(c))
	}
	return postDTO{
		ID:                  t.ID,
		AuthorID:            t.AuthorID,
		Title:               t.Title,
		Content:             t.Content,
		PublicationDatetime: formatTime(t.PublishedAt),
		Comments:            comments,
	}
}

func toPostsPageDTO(p pagination.Page[model.PostThread]) postsPageDTO {
	data := make([]postDTO, 0, len(p.Items))
	for _, t := range p.Items {
		data = append(data, toPostDTO(t))
	}
	return postsPageDTO{
		Data: data,
		Pagination: pageInfoDTO{
			Count:           p.Count,
			HasNextPage:     p.HasNextPage,
			HasPreviousPage: p.HasPreviousPage,
			StartCursor:     p.StartCursor,
			EndCursor:       p.EndCursor,
		},
	}
}
