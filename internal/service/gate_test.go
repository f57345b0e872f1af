package service

import (
	"testing"

	"blogapi/internal/model"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	alice := &model.User{ID: 1}
	bob := &model.User{ID: 2}
	post := &model.Post{ID: 10, AuthorID: 1}
	comment := &model.Comment{ID: 5, PostID: 10, AuthorID: 2}

	tests := []struct {
		name     string
		targets  []Target
		ownerKey string
		actor    *model.User
		wantErr  error
		wantMsg  string
	}{
		{
			name:    "no targets",
			wantErr: nil,
		},
		{
			name:    "present without owner key",
			targets: []Target{PostTarget(post)},
			wantErr: nil,
		},
		{
			name:    "missing without actor",
			targets: []Target{PostTarget(nil)},
			wantErr: ErrNotFound,
			wantMsg: "post not found",
		},
		{
			name:     "first missing target wins",
			targets:  []Target{PostTarget(nil), CommentTarget(nil)},
			ownerKey: "comment",
			actor:    bob,
			wantErr:  ErrNotFound,
			wantMsg:  "post not found",
		},
		{
			name:     "comment missing under existing post",
			targets:  []Target{PostTarget(post), CommentTarget(nil)},
			ownerKey: "comment",
			actor:    bob,
			wantErr:  ErrNotFound,
			wantMsg:  "comment not found",
		},
		{
			name:     "owner passes",
			targets:  []Target{PostTarget(post)},
			ownerKey: "post",
			actor:    alice,
		},
		{
			name:     "non owner is forbidden",
			targets:  []Target{PostTarget(post)},
			ownerKey: "post",
			actor:    bob,
			wantErr:  ErrForbidden,
			wantMsg:  "you cannot edit this post",
		},
		{
			name:     "ownership is checked on the keyed target only",
			targets:  []Target{PostTarget(post), CommentTarget(comment)},
			ownerKey: "comment",
			actor:    bob,
		},
		{
			name:     "post author does not own the comment",
			targets:  []Target{PostTarget(post), CommentTarget(comment)},
			ownerKey: "comment",
			actor:    alice,
			wantErr:  ErrForbidden,
			wantMsg:  "you cannot edit this comment",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Check(tt.targets, tt.ownerKey, tt.actor)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			require.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestCheck_Panics(t *testing.T) {
	t.Parallel()

	post := &model.Post{ID: 10, AuthorID: 1}

	require.Panics(t, func() {
		_ = Check([]Target{PostTarget(post)}, "post", nil)
	})
	require.Panics(t, func() {
		_ = Check([]Target{PostTarget(post)}, "comment", &model.User{ID: 1})
	})
	require.NotPanics(t, func() {
		_ = Check([]Target{PostTarget(nil)}, "post", nil)
	})
}
