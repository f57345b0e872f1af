package model

type User struct {
	ID             int64
	Email          string
	Username       string
	PasswordDigest string
}
