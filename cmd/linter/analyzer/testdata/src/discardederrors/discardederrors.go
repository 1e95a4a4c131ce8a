package discardederrors

import (
	"errors"

	"apperror"
)

var errStore = errors.New("store down")

func DeleteBookmark() {
	apperror.Write("delete", errStore) // want "result of apperror.Write is discarded"
}

func ListBookmarks() {
	_ = apperror.Fetch("list", errStore) // want "result of apperror.Fetch is discarded"
}

func CheckSession() {
	apperror.New(apperror.KindAuth, "session", errStore) // want "result of apperror.New is discarded"
}

func SignOut() error {
	return apperror.Auth("sign-out", errStore)
}

func InsertBookmark(onError func(error)) {
	err := apperror.Write("insert", errStore)
	onError(err)
	_ = apperror.IsKind(err, apperror.KindWrite)
}
