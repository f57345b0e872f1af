package service

import (
	"context"

	"blogapi/pkg/schema"
)

var (
	postSchema = schema.New([]schema.Field{
		{Name: "title", Required: true, Rules: "min=1,max=255"},
		{Name: "content", Required: true, Rules: "min=1"},
	}, schema.DumpOnly("id", "author_id", "publication_datetime", "comments"))

	postPatchSchema = postSchema.Partial("title", "content")

	commentSchema = schema.New([]schema.Field{
		{Name: "title", Required: true, Rules: "min=1,max=255"},
		{Name: "content", Required: true, Rules: "min=1"},
	}, schema.DumpOnly("id", "author_id", "post_id", "publication_datetime"))

	commentPatchSchema = commentSchema.Partial("title", "content")
)

// Passwords are capped at 72, the most bcrypt accepts.
func registrationSchema(users UserStorage) *schema.Schema {
	return schema.New([]schema.Field{
		{
			Name:     "email",
			Required: true,
			Rules:    "email,max=128",
			Checks:   []schema.Check{unique(users.EmailExists, uniqueMessage("email"))},
		},
		{
			Name:     "username",
			Required: true,
			Rules:    "min=3,max=128",
			Checks:   []schema.Check{unique(users.UsernameExists, uniqueMessage("username"))},
		},
		{
			Name:     "password",
			Required: true,
			Rules:    "min=4,max=72",
		},
	}, schema.DumpOnly("id"))
}

func unique(exists func(ctx context.Context, v string) (bool, error), msg string) schema.Check {
	return func(ctx context.Context, v string) (string, error) {
		taken, err := exists(ctx, v)
		if err != nil {
			return "", err
		}
		if taken {
			return msg, nil
		}
		return "", nil
	}
}

func uniqueMessage(field string) string {
	if field == "username" {
		return "name already exists"
	}
	return field + " already exists"
}
