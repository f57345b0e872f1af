package tableinfo

const (
	UsersTableName = "users"

	UserIDColumn       = "id"
	UserEmailColumn    = "email"
	UserUsernameColumn = "username"
	UserPasswordColumn = "password"

	UserEmailConstraint    = "users_email_key"
	UserUsernameConstraint = "users_username_key"
)

const (
	PostsTableName = "posts"

	PostIDColumn          = "id"
	PostAuthorIDColumn    = "author_id"
	PostTitleColumn       = "title"
	PostContentColumn     = "content"
	PostPublishedAtColumn = "publication_datetime"
)

const (
	CommentsTableName = "comments"

	CommentIDColumn          = "id"
	CommentPostIDColumn      = "post_id"
	CommentAuthorIDColumn    = "author_id"
	CommentTitleColumn       = "title"
	CommentContentColumn     = "content"
	CommentPublishedAtColumn = "publication_datetime"
)
